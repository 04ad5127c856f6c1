package stores

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/goIntake/internal/docstore"
)

const (
	CredentialCollection = "credentials"

	StatusActive = "active"
	StatusUsed   = "used"

	fieldPasscodeHash = "passcodeHash"
	fieldStatus       = "status"
	fieldCreatedAt    = "createdAt"
	fieldUsedAt       = "usedAt"
)

var (
	ErrCredentialNotFound    = errors.New("credential not found")
	ErrCredentialExists      = errors.New("credential already exists")
	ErrCredentialNotActive   = errors.New("credential not active")
	ErrCredentialCorrupt     = errors.New("credential record corrupt")
	ErrCredentialUnavailable = errors.New("credential store unavailable")
)

// CredentialRecord is the persisted state of one access credential. It holds
// the passcode hash only, never the passcode.
type CredentialRecord struct {
	CaseID       string
	PasscodeHash string
	Status       string
	CreatedAt    time.Time
	UsedAt       time.Time
}

// Active reports whether the credential can still authenticate.
func (r *CredentialRecord) Active() bool {
	return r != nil && r.Status == StatusActive
}

type CredentialStore struct {
	docs *docstore.Store
}

func NewCredentialStore(docs *docstore.Store) *CredentialStore {
	return &CredentialStore{docs: docs}
}

// Create persists record only if its case id is unused.
func (s *CredentialStore) Create(ctx context.Context, record *CredentialRecord) error {
	doc, err := encodeCredential(record)
	if err != nil {
		return err
	}

	err = s.docs.Create(ctx, CredentialCollection, record.CaseID, doc)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, docstore.ErrExists):
		return ErrCredentialExists
	default:
		return fmt.Errorf("%w: %v", ErrCredentialUnavailable, err)
	}
}

// Put persists record under its case id, overwriting any previous credential.
func (s *CredentialStore) Put(ctx context.Context, record *CredentialRecord) error {
	doc, err := encodeCredential(record)
	if err != nil {
		return err
	}
	if err := s.docs.Set(ctx, CredentialCollection, record.CaseID, doc); err != nil {
		return fmt.Errorf("%w: %v", ErrCredentialUnavailable, err)
	}
	return nil
}

func (s *CredentialStore) Get(ctx context.Context, caseID string) (*CredentialRecord, error) {
	doc, err := s.docs.Get(ctx, CredentialCollection, caseID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrCredentialUnavailable, err)
	}
	return decodeCredential(caseID, doc)
}

// Deactivate moves an active credential to used in one atomic step. It returns
// true when this call performed the transition and false when the credential
// was already used. A missing credential is ErrCredentialNotFound.
func (s *CredentialStore) Deactivate(ctx context.Context, caseID string, now time.Time) (bool, error) {
	prev, err := s.docs.CompareAndSet(ctx,
		CredentialCollection, caseID,
		fieldStatus, StatusActive, StatusUsed,
		docstore.Document{fieldUsedAt: formatMillis(now)},
	)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return false, ErrCredentialNotFound
		}
		return false, fmt.Errorf("%w: %v", ErrCredentialUnavailable, err)
	}

	switch prev {
	case StatusActive:
		return true, nil
	case StatusUsed:
		return false, nil
	default:
		return false, fmt.Errorf("%w: status %q", ErrCredentialCorrupt, prev)
	}
}

// MarkUsed writes status=used without checking the current status. The record
// must exist.
func (s *CredentialStore) MarkUsed(ctx context.Context, caseID string, now time.Time) error {
	err := s.docs.Update(ctx, CredentialCollection, caseID, docstore.Document{
		fieldStatus: StatusUsed,
		fieldUsedAt: formatMillis(now),
	})
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrCredentialNotFound
		}
		return fmt.Errorf("%w: %v", ErrCredentialUnavailable, err)
	}
	return nil
}

func encodeCredential(record *CredentialRecord) (docstore.Document, error) {
	if record == nil || record.CaseID == "" {
		return nil, fmt.Errorf("%w: missing case id", ErrCredentialCorrupt)
	}
	if record.PasscodeHash == "" {
		return nil, fmt.Errorf("%w: missing passcode hash", ErrCredentialCorrupt)
	}
	status := record.Status
	if status == "" {
		status = StatusActive
	}

	doc := docstore.Document{
		fieldPasscodeHash: record.PasscodeHash,
		fieldStatus:       status,
		fieldCreatedAt:    formatMillis(record.CreatedAt),
	}
	if !record.UsedAt.IsZero() {
		doc[fieldUsedAt] = formatMillis(record.UsedAt)
	}
	return doc, nil
}

func decodeCredential(caseID string, doc docstore.Document) (*CredentialRecord, error) {
	record := &CredentialRecord{
		CaseID:       caseID,
		PasscodeHash: doc[fieldPasscodeHash],
		Status:       doc[fieldStatus],
	}
	if record.PasscodeHash == "" || record.Status == "" {
		return nil, ErrCredentialCorrupt
	}

	createdAt, err := parseMillis(doc[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCredentialCorrupt, err)
	}
	record.CreatedAt = createdAt

	if raw, ok := doc[fieldUsedAt]; ok {
		usedAt, err := parseMillis(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCredentialCorrupt, err)
		}
		record.UsedAt = usedAt
	}

	return record, nil
}

func formatMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func parseMillis(raw string) (time.Time, error) {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
