package flows

import (
	"context"
	"errors"
	"strings"
	"time"
)

type ReportsMetrics struct {
	ReportDeleted int
}

type ReportsEvents struct {
	ReportDeleted string
}

type ReportsErrors struct {
	EngineNotReady   error
	Validation       error
	ReportNotFound   error
	StoreUnavailable error
}

// ReportsDeps captures case report read/delete dependencies.
type ReportsDeps struct {
	ListReports  func(ctx context.Context, newestFirst bool) ([]FinalizeReport, error)
	GetReport    func(ctx context.Context, id string) (FinalizeReport, error)
	DeleteReport func(ctx context.Context, id string) error

	IsNotFound    func(error) bool
	MapStoreError func(error) error

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, error, func() map[string]string)

	Metrics ReportsMetrics
	Events  ReportsEvents
	Errors  ReportsErrors
}

// RunListReports returns every report ordered by creation time. The result is
// never nil.
func RunListReports(ctx context.Context, newestFirst bool, deps ReportsDeps) ([]FinalizeReport, error) {
	normalizeReportsDeps(&deps)
	if deps.ListReports == nil {
		return nil, deps.Errors.EngineNotReady
	}

	reports, err := deps.ListReports(ctx, newestFirst)
	if err != nil {
		return nil, mapReportsError(err, deps)
	}
	if reports == nil {
		reports = []FinalizeReport{}
	}
	return reports, nil
}

func RunGetReport(ctx context.Context, id string, deps ReportsDeps) (*FinalizeReport, error) {
	normalizeReportsDeps(&deps)
	if deps.GetReport == nil {
		return nil, deps.Errors.EngineNotReady
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, deps.Errors.Validation
	}

	report, err := deps.GetReport(ctx, id)
	if err != nil {
		return nil, mapReportsError(err, deps)
	}
	return &report, nil
}

func RunDeleteReport(ctx context.Context, id string, deps ReportsDeps) error {
	normalizeReportsDeps(&deps)
	if deps.DeleteReport == nil {
		return deps.Errors.EngineNotReady
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return deps.Errors.Validation
	}

	if err := deps.DeleteReport(ctx, id); err != nil {
		mapped := mapReportsError(err, deps)
		deps.EmitAudit(ctx, deps.Events.ReportDeleted, false, "", mapped, func() map[string]string {
			return map[string]string{"report_id": id}
		})
		return mapped
	}

	deps.MetricInc(deps.Metrics.ReportDeleted)
	deps.EmitAudit(ctx, deps.Events.ReportDeleted, true, "", nil, func() map[string]string {
		return map[string]string{"report_id": id}
	})
	return nil
}

func mapReportsError(err error, deps ReportsDeps) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case deps.IsNotFound(err):
		return deps.Errors.ReportNotFound
	default:
		return deps.MapStoreError(err)
	}
}

func normalizeReportsDeps(deps *ReportsDeps) {
	if deps.IsNotFound == nil {
		deps.IsNotFound = func(error) bool { return false }
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

// HealthDeps captures store liveness dependencies.
type HealthDeps struct {
	Now  func() time.Time
	Ping func(context.Context) error
}

// RunHealth pings the store and reports reachability plus round-trip latency.
func RunHealth(ctx context.Context, deps HealthDeps) (bool, time.Duration) {
	if deps.Ping == nil {
		return false, 0
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	start := now()
	err := deps.Ping(ctx)
	return err == nil, now().Sub(start)
}
