package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goIntake/internal/docstore"
)

const (
	ReportCollection = "reports"

	fieldCaseID        = "caseId"
	fieldClientName    = "clientName"
	fieldClientEmail   = "clientEmail"
	fieldClientPhone   = "clientPhone"
	fieldReportContent = "reportContent"
)

var (
	ErrReportNotFound    = errors.New("report not found")
	ErrReportCorrupt     = errors.New("report record corrupt")
	ErrReportUnavailable = errors.New("report store unavailable")
)

// OrderedFields is the docstore index layout the stores rely on.
func OrderedFields() map[string][]string {
	return map[string][]string{
		ReportCollection: {fieldCreatedAt},
	}
}

// ReportRecord is a persisted case report.
type ReportRecord struct {
	ID          string
	CaseID      string
	ClientName  string
	ClientEmail string
	ClientPhone string
	Content     string
	CreatedAt   time.Time
}

type ReportStore struct {
	docs *docstore.Store
}

func NewReportStore(docs *docstore.Store) *ReportStore {
	return &ReportStore{docs: docs}
}

// Save writes the report without touching its credential.
func (s *ReportStore) Save(ctx context.Context, record *ReportRecord) error {
	doc, err := encodeReport(record)
	if err != nil {
		return err
	}
	if err := s.docs.Set(ctx, ReportCollection, record.ID, doc); err != nil {
		return fmt.Errorf("%w: %v", ErrReportUnavailable, err)
	}
	return nil
}

// SaveAndDeactivate writes the report and moves its credential from active to
// used in a single transaction. Nothing is written unless the credential is
// active when the transaction executes.
func (s *ReportStore) SaveAndDeactivate(ctx context.Context, record *ReportRecord, now time.Time) error {
	doc, err := encodeReport(record)
	if err != nil {
		return err
	}

	err = s.docs.Commit(ctx,
		docstore.Guard{
			Collection: CredentialCollection,
			Key:        record.CaseID,
			Field:      fieldStatus,
			Equals:     StatusActive,
		},
		docstore.Mutation{
			Collection: ReportCollection,
			Key:        record.ID,
			Fields:     doc,
			Replace:    true,
		},
		docstore.Mutation{
			Collection: CredentialCollection,
			Key:        record.CaseID,
			Fields: docstore.Document{
				fieldStatus: StatusUsed,
				fieldUsedAt: formatMillis(now),
			},
		},
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, docstore.ErrNotFound):
		return ErrCredentialNotFound
	case errors.Is(err, docstore.ErrConditionFailed):
		return ErrCredentialNotActive
	default:
		return fmt.Errorf("%w: %v", ErrReportUnavailable, err)
	}
}

func (s *ReportStore) Get(ctx context.Context, id string) (*ReportRecord, error) {
	doc, err := s.docs.Get(ctx, ReportCollection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrReportUnavailable, err)
	}
	return decodeReport(id, doc)
}

// List returns all reports ordered by creation time. Undecodable records are
// skipped rather than failing the whole listing.
func (s *ReportStore) List(ctx context.Context, newestFirst bool) ([]ReportRecord, error) {
	dir := docstore.Ascending
	if newestFirst {
		dir = docstore.Descending
	}

	recs, err := s.docs.QueryOrdered(ctx, ReportCollection, fieldCreatedAt, dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReportUnavailable, err)
	}

	out := make([]ReportRecord, 0, len(recs))
	for _, rec := range recs {
		report, err := decodeReport(rec.Key, rec.Doc)
		if err != nil {
			continue
		}
		out = append(out, *report)
	}
	return out, nil
}

func (s *ReportStore) Delete(ctx context.Context, id string) error {
	err := s.docs.Delete(ctx, ReportCollection, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, docstore.ErrNotFound):
		return ErrReportNotFound
	default:
		return fmt.Errorf("%w: %v", ErrReportUnavailable, err)
	}
}

func encodeReport(record *ReportRecord) (docstore.Document, error) {
	if record == nil || record.ID == "" || record.CaseID == "" {
		return nil, fmt.Errorf("%w: missing id or case id", ErrReportCorrupt)
	}

	doc := docstore.Document{
		fieldCaseID:        record.CaseID,
		fieldClientName:    record.ClientName,
		fieldClientEmail:   record.ClientEmail,
		fieldReportContent: record.Content,
		fieldCreatedAt:     formatMillis(record.CreatedAt),
	}
	if record.ClientPhone != "" {
		doc[fieldClientPhone] = record.ClientPhone
	}
	return doc, nil
}

func decodeReport(id string, doc docstore.Document) (*ReportRecord, error) {
	createdAt, err := parseMillis(doc[fieldCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReportCorrupt, err)
	}

	return &ReportRecord{
		ID:          id,
		CaseID:      doc[fieldCaseID],
		ClientName:  doc[fieldClientName],
		ClientEmail: doc[fieldClientEmail],
		ClientPhone: doc[fieldClientPhone],
		Content:     doc[fieldReportContent],
		CreatedAt:   createdAt,
	}, nil
}
