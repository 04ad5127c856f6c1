package internaldefs

import (
	goIntake "github.com/MrEthical07/goIntake"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   goIntake.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   goIntake.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter. Names are stable; dashboards
// depend on them.
var CounterDefs = []CounterDef{
	{ID: goIntake.MetricCredentialIssued, Name: "gointake_credential_issued_total", Help: "Credentials issued."},
	{ID: goIntake.MetricIssueFailure, Name: "gointake_credential_issue_failure_total", Help: "Credential issue calls that failed."},
	{ID: goIntake.MetricIssueThrottled, Name: "gointake_credential_issue_throttled_total", Help: "Credential issue calls rejected by the issuance throttle."},
	{ID: goIntake.MetricValidateSuccess, Name: "gointake_validate_success_total", Help: "Successful credential validations."},
	{ID: goIntake.MetricValidateNotFound, Name: "gointake_validate_not_found_total", Help: "Validations for unknown case ids."},
	{ID: goIntake.MetricValidateExpired, Name: "gointake_validate_expired_total", Help: "Validations for used credentials."},
	{ID: goIntake.MetricValidateMismatch, Name: "gointake_validate_mismatch_total", Help: "Validations with a wrong passcode."},
	{ID: goIntake.MetricRateLimitHit, Name: "gointake_rate_limit_hit_total", Help: "Requests denied by the sliding window."},
	{ID: goIntake.MetricCredentialDeactivated, Name: "gointake_credential_deactivated_total", Help: "Credentials moved from active to used."},
	{ID: goIntake.MetricReportFinalized, Name: "gointake_report_finalized_total", Help: "Case reports persisted."},
	{ID: goIntake.MetricFinalizeFailure, Name: "gointake_report_finalize_failure_total", Help: "Finalize calls that failed."},
	{ID: goIntake.MetricReportDeleted, Name: "gointake_report_deleted_total", Help: "Case reports deleted."},
}

var HistogramDefs = []HistogramDef{
	{ID: goIntake.MetricValidateLatency, Name: "gointake_validate_latency_seconds", Help: "Credential validation latency."},
}

// HistogramBounds are the upper bounds of the engine's latency buckets, in
// seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramUpperBounds are the finite bounds of HistogramBounds.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix is HistogramBounds rendered for metric names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into cumulative ones.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
