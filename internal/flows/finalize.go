package flows

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FinalizeRequest is the case report submitted at the end of an intake
// session.
type FinalizeRequest struct {
	CaseID        string
	ClientName    string
	ClientEmail   string
	ClientPhone   string
	ReportContent string
	SessionToken  string
}

// FinalizeReport is the report as persisted.
type FinalizeReport struct {
	ID          string
	CaseID      string
	ClientName  string
	ClientEmail string
	ClientPhone string
	Content     string
	CreatedAt   time.Time
}

type FinalizeMetrics struct {
	ReportFinalized       int
	FinalizeFailure       int
	CredentialDeactivated int
}

type FinalizeEvents struct {
	ReportFinalized string
}

type FinalizeErrors struct {
	EngineNotReady      error
	Validation          error
	CredentialNotFound  error
	CredentialExpired   error
	SessionTokenInvalid error
	StoreUnavailable    error
}

// FinalizeDeps captures report submission dependencies. With Atomic set the
// report write and the credential transition happen in one store transaction;
// otherwise the report is written first and the credential deactivated after.
type FinalizeDeps struct {
	Atomic              bool
	RequireSessionToken bool
	MaxContentBytes     int
	MaxFieldBytes       int

	Now                func() time.Time
	NewReportID        func() string
	VerifySessionToken func(token, caseID string) error

	LoadCredential    func(ctx context.Context, caseID string) (CredentialView, error)
	SaveAndDeactivate func(ctx context.Context, report FinalizeReport) error
	SaveReport        func(ctx context.Context, report FinalizeReport) error
	Deactivate        func(ctx context.Context, caseID string, now time.Time) (bool, error)

	IsNotFound    func(error) bool
	IsNotActive   func(error) bool
	MapStoreError func(error) error

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, error, func() map[string]string)

	Metrics FinalizeMetrics
	Events  FinalizeEvents
	Errors  FinalizeErrors
}

// RunFinalize persists the report and retires the credential it was
// submitted under. It returns the persisted report.
func RunFinalize(ctx context.Context, req FinalizeRequest, deps FinalizeDeps) (*FinalizeReport, error) {
	normalizeFinalizeDeps(&deps)

	if deps.Atomic && deps.SaveAndDeactivate == nil {
		return nil, deps.Errors.EngineNotReady
	}
	if !deps.Atomic && (deps.SaveReport == nil || deps.Deactivate == nil || deps.LoadCredential == nil) {
		return nil, deps.Errors.EngineNotReady
	}

	report, reason := buildFinalizeReport(req, deps)
	if reason != "" {
		deps.MetricInc(deps.Metrics.FinalizeFailure)
		deps.EmitAudit(ctx, deps.Events.ReportFinalized, false, report.CaseID, deps.Errors.Validation, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return nil, fmt.Errorf("%w: %s", deps.Errors.Validation, strings.ReplaceAll(reason, "_", " "))
	}

	if deps.RequireSessionToken {
		if deps.VerifySessionToken == nil || deps.VerifySessionToken(req.SessionToken, report.CaseID) != nil {
			deps.MetricInc(deps.Metrics.FinalizeFailure)
			deps.EmitAudit(ctx, deps.Events.ReportFinalized, false, report.CaseID, deps.Errors.SessionTokenInvalid, nil)
			return nil, deps.Errors.SessionTokenInvalid
		}
	}

	var err error
	if deps.Atomic {
		err = finalizeAtomic(ctx, report, deps)
	} else {
		err = finalizeSequential(ctx, report, deps)
	}
	if err != nil {
		deps.MetricInc(deps.Metrics.FinalizeFailure)
		deps.EmitAudit(ctx, deps.Events.ReportFinalized, false, report.CaseID, err, func() map[string]string {
			return map[string]string{"report_id": report.ID}
		})
		return nil, err
	}

	deps.MetricInc(deps.Metrics.ReportFinalized)
	deps.MetricInc(deps.Metrics.CredentialDeactivated)
	deps.EmitAudit(ctx, deps.Events.ReportFinalized, true, report.CaseID, nil, func() map[string]string {
		return map[string]string{"report_id": report.ID}
	})
	return &report, nil
}

func finalizeAtomic(ctx context.Context, report FinalizeReport, deps FinalizeDeps) error {
	err := deps.SaveAndDeactivate(ctx, report)
	if err == nil {
		return nil
	}
	return classifyFinalizeError(err, deps)
}

// finalizeSequential checks the credential, writes the report, then retires
// the credential. If the last step fails the report stays persisted and the
// error is returned to the caller.
func finalizeSequential(ctx context.Context, report FinalizeReport, deps FinalizeDeps) error {
	cred, err := deps.LoadCredential(ctx, report.CaseID)
	if err != nil {
		return classifyFinalizeError(err, deps)
	}
	if !cred.Active {
		return deps.Errors.CredentialExpired
	}

	if err := deps.SaveReport(ctx, report); err != nil {
		return classifyFinalizeError(err, deps)
	}

	changed, err := deps.Deactivate(ctx, report.CaseID, report.CreatedAt)
	if err != nil {
		return classifyFinalizeError(err, deps)
	}
	if !changed {
		// Another finalize retired the credential between our check and now.
		return deps.Errors.CredentialExpired
	}
	return nil
}

func classifyFinalizeError(err error, deps FinalizeDeps) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case deps.IsNotFound(err):
		return deps.Errors.CredentialNotFound
	case deps.IsNotActive(err):
		return deps.Errors.CredentialExpired
	default:
		return deps.MapStoreError(err)
	}
}

func buildFinalizeReport(req FinalizeRequest, deps FinalizeDeps) (FinalizeReport, string) {
	report := FinalizeReport{
		CaseID:      strings.TrimSpace(req.CaseID),
		ClientName:  strings.TrimSpace(req.ClientName),
		ClientEmail: strings.TrimSpace(req.ClientEmail),
		ClientPhone: strings.TrimSpace(req.ClientPhone),
		Content:     strings.TrimSpace(req.ReportContent),
	}

	switch {
	case report.CaseID == "":
		return report, "missing_case_id"
	case report.ClientName == "":
		return report, "missing_client_name"
	case report.ClientEmail == "":
		return report, "missing_client_email"
	case report.Content == "":
		return report, "missing_report_content"
	}

	if !validEmail(report.ClientEmail) {
		return report, "invalid_client_email"
	}
	if deps.MaxFieldBytes > 0 {
		for _, v := range []string{report.CaseID, report.ClientName, report.ClientEmail, report.ClientPhone} {
			if len(v) > deps.MaxFieldBytes {
				return report, "field_too_long"
			}
		}
	}
	if deps.MaxContentBytes > 0 && len(report.Content) > deps.MaxContentBytes {
		return report, "report_too_long"
	}

	report.ID = deps.NewReportID()
	report.CreatedAt = deps.Now().UTC()
	return report, ""
}

// validEmail accepts a bare address only, no display name or angle brackets.
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Name == "" && addr.Address == s
}

func normalizeFinalizeDeps(deps *FinalizeDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewReportID == nil {
		deps.NewReportID = uuid.NewString
	}
	if deps.IsNotFound == nil {
		deps.IsNotFound = func(error) bool { return false }
	}
	if deps.IsNotActive == nil {
		deps.IsNotActive = func(error) bool { return false }
	}
	if deps.MapStoreError == nil {
		deps.MapStoreError = func(error) error { return deps.Errors.StoreUnavailable }
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
}
