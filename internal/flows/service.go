package flows

import (
	"context"
	"time"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Validate.LoadCredential != nil
}

func (s Service) Issue(ctx context.Context) (*IssueResult, error) {
	return RunIssue(ctx, s.deps.Issue)
}

func (s Service) Validate(ctx context.Context, caseID, passcode string) (*ValidateResult, error) {
	return RunValidate(ctx, caseID, passcode, s.deps.Validate)
}

func (s Service) Deactivate(ctx context.Context, caseID string) error {
	return RunDeactivate(ctx, caseID, s.deps.Deactivate)
}

func (s Service) Finalize(ctx context.Context, req FinalizeRequest) (*FinalizeReport, error) {
	return RunFinalize(ctx, req, s.deps.Finalize)
}

func (s Service) ListReports(ctx context.Context, newestFirst bool) ([]FinalizeReport, error) {
	return RunListReports(ctx, newestFirst, s.deps.Reports)
}

func (s Service) GetReport(ctx context.Context, id string) (*FinalizeReport, error) {
	return RunGetReport(ctx, id, s.deps.Reports)
}

func (s Service) DeleteReport(ctx context.Context, id string) error {
	return RunDeleteReport(ctx, id, s.deps.Reports)
}

func (s Service) Health(ctx context.Context) (bool, time.Duration) {
	return RunHealth(ctx, s.deps.Health)
}
