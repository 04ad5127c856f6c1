package goIntake

import (
	"context"
	"errors"
	"time"

	internalflows "github.com/MrEthical07/goIntake/internal/flows"
	"github.com/MrEthical07/goIntake/internal/stores"
)

// FinalizeReport persists a case report and retires the credential it was
// submitted under. Depending on Config.Security.AtomicFinalize both writes
// happen in one transaction or one after the other.
func (e *Engine) FinalizeReport(ctx context.Context, req FinalizeRequest) (*Report, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	rep, err := e.flows.Finalize(ctx, internalflows.FinalizeRequest{
		CaseID:        req.CaseID,
		ClientName:    req.ClientName,
		ClientEmail:   req.ClientEmail,
		ClientPhone:   req.ClientPhone,
		ReportContent: req.ReportContent,
		SessionToken:  req.SessionToken,
	})
	if err != nil {
		return nil, err
	}
	out := reportFromFlow(*rep)
	return &out, nil
}

// ListReports returns every stored report. The slice is empty, not nil, when
// there are none.
func (e *Engine) ListReports(ctx context.Context, order ReportOrder) ([]Report, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	reps, err := e.flows.ListReports(ctx, order != OldestFirst)
	if err != nil {
		return nil, err
	}
	out := make([]Report, 0, len(reps))
	for _, r := range reps {
		out = append(out, reportFromFlow(r))
	}
	return out, nil
}

func (e *Engine) GetReport(ctx context.Context, id string) (*Report, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	rep, err := e.flows.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	out := reportFromFlow(*rep)
	return &out, nil
}

// DeleteReport removes one report. An empty id is ErrValidation and an
// unknown one ErrReportNotFound.
func (e *Engine) DeleteReport(ctx context.Context, id string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flows.DeleteReport(ctx, id)
}

func (e *Engine) finalizeFlowDeps() internalflows.FinalizeDeps {
	cfg := e.config
	deps := internalflows.FinalizeDeps{
		Atomic:              cfg.Security.AtomicFinalize,
		RequireSessionToken: cfg.SessionToken.RequireForFinalize,
		MaxContentBytes:     cfg.Report.MaxContentBytes,
		MaxFieldBytes:       cfg.Report.MaxFieldBytes,
		Now:                 e.now,
		VerifySessionToken:  e.VerifySessionToken,
		LoadCredential:      e.loadCredentialView,
		SaveAndDeactivate: func(ctx context.Context, rep internalflows.FinalizeReport) error {
			return e.reports.SaveAndDeactivate(ctx, reportRecord(rep), rep.CreatedAt)
		},
		SaveReport: func(ctx context.Context, rep internalflows.FinalizeReport) error {
			return e.reports.Save(ctx, reportRecord(rep))
		},
		Deactivate: e.deactivateCredential,
		IsNotFound: func(err error) bool {
			return errors.Is(err, stores.ErrCredentialNotFound)
		},
		IsNotActive: func(err error) bool {
			return errors.Is(err, stores.ErrCredentialNotActive)
		},
		MapStoreError: mapStoreError,
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		EmitAudit: e.emitAudit,
		Metrics: internalflows.FinalizeMetrics{
			ReportFinalized:       int(MetricReportFinalized),
			FinalizeFailure:       int(MetricFinalizeFailure),
			CredentialDeactivated: int(MetricCredentialDeactivated),
		},
		Events: internalflows.FinalizeEvents{
			ReportFinalized: auditEventReportFinalized,
		},
		Errors: internalflows.FinalizeErrors{
			EngineNotReady:      ErrEngineNotReady,
			Validation:          ErrValidation,
			CredentialNotFound:  ErrCredentialNotFound,
			CredentialExpired:   ErrCredentialExpired,
			SessionTokenInvalid: ErrSessionTokenInvalid,
			StoreUnavailable:    ErrStoreUnavailable,
		},
	}
	return deps
}

func (e *Engine) reportsFlowDeps() internalflows.ReportsDeps {
	return internalflows.ReportsDeps{
		ListReports: func(ctx context.Context, newestFirst bool) ([]internalflows.FinalizeReport, error) {
			recs, err := e.reports.List(ctx, newestFirst)
			if err != nil {
				return nil, err
			}
			out := make([]internalflows.FinalizeReport, 0, len(recs))
			for i := range recs {
				out = append(out, flowReport(&recs[i]))
			}
			return out, nil
		},
		GetReport: func(ctx context.Context, id string) (internalflows.FinalizeReport, error) {
			rec, err := e.reports.Get(ctx, id)
			if err != nil {
				return internalflows.FinalizeReport{}, err
			}
			return flowReport(rec), nil
		},
		DeleteReport: e.reports.Delete,
		IsNotFound: func(err error) bool {
			return errors.Is(err, stores.ErrReportNotFound)
		},
		MapStoreError: mapStoreError,
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		EmitAudit: e.emitAudit,
		Metrics: internalflows.ReportsMetrics{
			ReportDeleted: int(MetricReportDeleted),
		},
		Events: internalflows.ReportsEvents{
			ReportDeleted: auditEventReportDeleted,
		},
		Errors: internalflows.ReportsErrors{
			EngineNotReady:   ErrEngineNotReady,
			Validation:       ErrValidation,
			ReportNotFound:   ErrReportNotFound,
			StoreUnavailable: ErrStoreUnavailable,
		},
	}
}

func reportRecord(rep internalflows.FinalizeReport) *stores.ReportRecord {
	return &stores.ReportRecord{
		ID:          rep.ID,
		CaseID:      rep.CaseID,
		ClientName:  rep.ClientName,
		ClientEmail: rep.ClientEmail,
		ClientPhone: rep.ClientPhone,
		Content:     rep.Content,
		CreatedAt:   rep.CreatedAt,
	}
}

func flowReport(rec *stores.ReportRecord) internalflows.FinalizeReport {
	return internalflows.FinalizeReport{
		ID:          rec.ID,
		CaseID:      rec.CaseID,
		ClientName:  rec.ClientName,
		ClientEmail: rec.ClientEmail,
		ClientPhone: rec.ClientPhone,
		Content:     rec.Content,
		CreatedAt:   rec.CreatedAt,
	}
}

func reportFromFlow(rep internalflows.FinalizeReport) Report {
	return Report{
		ID:            rep.ID,
		CaseID:        rep.CaseID,
		ClientName:    rep.ClientName,
		ClientEmail:   rep.ClientEmail,
		ClientPhone:   rep.ClientPhone,
		ReportContent: rep.Content,
		CreatedAt:     rep.CreatedAt.UTC().Truncate(time.Millisecond),
	}
}
