package flows

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Issue      IssueDeps
	Validate   ValidateDeps
	Deactivate DeactivateDeps
	Finalize   FinalizeDeps
	Reports    ReportsDeps
	Health     HealthDeps
}
