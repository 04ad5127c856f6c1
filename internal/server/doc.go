// Package server is the intake HTTP API: chi routes over goIntake.Engine and
// a textgen.Completer, with the error to status mapping in errors.go.
package server
