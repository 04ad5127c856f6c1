// Package security derives the read-only security posture report exposed by
// goIntake.Engine.SecurityReport from a configuration snapshot.
package security
