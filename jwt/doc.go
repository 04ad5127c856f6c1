// Package jwt signs and verifies the short-lived session tokens handed out after
// a credential validates. A token names one case id as its subject and is never
// refreshed.
package jwt
