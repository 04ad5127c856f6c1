// Package cmd holds the cobra command tree of the goIntake binary: serve,
// issue, deactivate and version.
package cmd
