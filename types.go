package goIntake

import "time"

// IssuedCredential is returned once by IssueCredential. Passcode is the only
// copy of the plaintext; the store keeps its hash.
type IssuedCredential struct {
	CaseID   string `json:"caseId"`
	Passcode string `json:"passcode"`
}

// ValidationResult is returned by a successful ValidateCredential call.
// SessionToken is empty unless session tokens are enabled.
type ValidationResult struct {
	CaseID       string `json:"caseId"`
	SessionToken string `json:"sessionToken,omitempty"`
}

// FinalizeRequest is the case report a client submits when the intake
// session ends. ClientPhone is optional.
type FinalizeRequest struct {
	CaseID        string `json:"caseId"`
	ClientName    string `json:"clientName"`
	ClientEmail   string `json:"clientEmail"`
	ClientPhone   string `json:"clientPhone,omitempty"`
	ReportContent string `json:"reportContent"`
	SessionToken  string `json:"-"`
}

// Report is a persisted case report.
type Report struct {
	ID            string    `json:"id"`
	CaseID        string    `json:"caseId"`
	ClientName    string    `json:"clientName"`
	ClientEmail   string    `json:"clientEmail"`
	ClientPhone   string    `json:"clientPhone,omitempty"`
	ReportContent string    `json:"reportContent"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ReportOrder selects the createdAt direction of ListReports.
type ReportOrder uint8

const (
	NewestFirst ReportOrder = iota
	OldestFirst
)

// RateDecision mirrors the sliding window's answer for one request.
type RateDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// HealthStatus reports store reachability.
type HealthStatus struct {
	StoreAvailable bool          `json:"storeAvailable"`
	StoreLatency   time.Duration `json:"storeLatency"`
}
