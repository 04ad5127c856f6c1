package stores

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goIntake/internal/docstore"
)

func newTestStores(t *testing.T) (*miniredis.Miniredis, *CredentialStore, *ReportStore) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	docs := docstore.New(rdb, docstore.Options{Prefix: "t", OrderedFields: OrderedFields()})
	return mr, NewCredentialStore(docs), NewReportStore(docs)
}

func activeCredential(caseID string) *CredentialRecord {
	return &CredentialRecord{
		CaseID:       caseID,
		PasscodeHash: "$2a$10$fakehashfakehashfakehashfakehashfakehashfakehashfake",
		Status:       StatusActive,
		CreatedAt:    time.UnixMilli(1700000000000).UTC(),
	}
}

func TestCredentialCreateAndGet(t *testing.T) {
	_, creds, _ := newTestStores(t)
	ctx := context.Background()

	if err := creds.Create(ctx, activeCredential("CI-20240101-AB12")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := creds.Get(ctx, "CI-20240101-AB12")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Active() || got.PasscodeHash == "" {
		t.Fatalf("unexpected record %#v", got)
	}
	if !got.CreatedAt.Equal(time.UnixMilli(1700000000000)) {
		t.Fatalf("createdAt = %v", got.CreatedAt)
	}
	if !got.UsedAt.IsZero() {
		t.Fatalf("fresh credential has usedAt %v", got.UsedAt)
	}
}

func TestCredentialCreateCollision(t *testing.T) {
	_, creds, _ := newTestStores(t)
	ctx := context.Background()

	_ = creds.Create(ctx, activeCredential("CI-1"))
	if err := creds.Create(ctx, activeCredential("CI-1")); !errors.Is(err, ErrCredentialExists) {
		t.Fatalf("expected ErrCredentialExists, got %v", err)
	}
}

func TestCredentialRejectsMissingHash(t *testing.T) {
	_, creds, _ := newTestStores(t)
	err := creds.Create(context.Background(), &CredentialRecord{CaseID: "CI-1"})
	if !errors.Is(err, ErrCredentialCorrupt) {
		t.Fatalf("expected ErrCredentialCorrupt, got %v", err)
	}
}

func TestCredentialGetMissing(t *testing.T) {
	_, creds, _ := newTestStores(t)
	if _, err := creds.Get(context.Background(), "CI-none"); !errors.Is(err, ErrCredentialNotFound) {
		t.Fatalf("expected ErrCredentialNotFound, got %v", err)
	}
}

func TestCredentialDeactivateTransitions(t *testing.T) {
	_, creds, _ := newTestStores(t)
	ctx := context.Background()
	_ = creds.Create(ctx, activeCredential("CI-1"))

	now := time.UnixMilli(1700000005000)
	changed, err := creds.Deactivate(ctx, "CI-1", now)
	if err != nil || !changed {
		t.Fatalf("first Deactivate: changed=%v err=%v", changed, err)
	}

	changed, err = creds.Deactivate(ctx, "CI-1", now.Add(time.Minute))
	if err != nil || changed {
		t.Fatalf("second Deactivate must be a no-op: changed=%v err=%v", changed, err)
	}

	got, _ := creds.Get(ctx, "CI-1")
	if got.Status != StatusUsed {
		t.Fatalf("status = %q", got.Status)
	}
	if !got.UsedAt.Equal(now) {
		t.Fatalf("usedAt = %v, want first transition time %v", got.UsedAt, now)
	}
}

func TestCredentialDeactivateMissing(t *testing.T) {
	_, creds, _ := newTestStores(t)
	ctx := context.Background()

	if _, err := creds.Deactivate(ctx, "CI-ghost", time.Now()); !errors.Is(err, ErrCredentialNotFound) {
		t.Fatalf("expected ErrCredentialNotFound, got %v", err)
	}
	if _, err := creds.Get(ctx, "CI-ghost"); !errors.Is(err, ErrCredentialNotFound) {
		t.Fatalf("deactivate must not create a record, got %v", err)
	}
}

func TestCredentialMarkUsed(t *testing.T) {
	_, creds, _ := newTestStores(t)
	ctx := context.Background()

	if err := creds.MarkUsed(ctx, "CI-ghost", time.Now()); !errors.Is(err, ErrCredentialNotFound) {
		t.Fatalf("expected ErrCredentialNotFound, got %v", err)
	}

	_ = creds.Create(ctx, activeCredential("CI-1"))
	if err := creds.MarkUsed(ctx, "CI-1", time.Now()); err != nil {
		t.Fatalf("MarkUsed: %v", err)
	}
	got, _ := creds.Get(ctx, "CI-1")
	if got.Active() {
		t.Fatalf("credential still active after MarkUsed")
	}
}

func TestCredentialConcurrentDeactivateSingleTransition(t *testing.T) {
	_, creds, _ := newTestStores(t)
	ctx := context.Background()
	_ = creds.Create(ctx, activeCredential("CI-1"))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		changes int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			changed, err := creds.Deactivate(ctx, "CI-1", time.Now())
			if err == nil && changed {
				mu.Lock()
				changes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if changes != 1 {
		t.Fatalf("expected one transition, got %d", changes)
	}
}

func newReport(id, caseID string, createdAt int64) *ReportRecord {
	return &ReportRecord{
		ID:          id,
		CaseID:      caseID,
		ClientName:  "Ada",
		ClientEmail: "ada@example.com",
		Content:     "summary " + id,
		CreatedAt:   time.UnixMilli(createdAt).UTC(),
	}
}

func TestReportSaveGetDelete(t *testing.T) {
	_, _, reports := newTestStores(t)
	ctx := context.Background()

	rec := newReport("r1", "CI-1", 1000)
	rec.ClientPhone = "+15550100"
	if err := reports.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := reports.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.CaseID != "CI-1" || got.ClientPhone != "+15550100" || got.Content != "summary r1" {
		t.Fatalf("unexpected report %#v", got)
	}

	if err := reports.Delete(ctx, "r1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := reports.Delete(ctx, "r1"); !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}
	if _, err := reports.Get(ctx, "r1"); !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}
}

func TestReportListOrdering(t *testing.T) {
	_, _, reports := newTestStores(t)
	ctx := context.Background()

	_ = reports.Save(ctx, newReport("b", "CI-2", 2000))
	_ = reports.Save(ctx, newReport("a", "CI-1", 1000))
	_ = reports.Save(ctx, newReport("c", "CI-3", 3000))

	newest, err := reports.List(ctx, true)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if ids(newest) != "cba" {
		t.Fatalf("newest first = %q", ids(newest))
	}

	oldest, _ := reports.List(ctx, false)
	if ids(oldest) != "abc" {
		t.Fatalf("oldest first = %q", ids(oldest))
	}
}

func TestReportListEmpty(t *testing.T) {
	_, _, reports := newTestStores(t)
	got, err := reports.List(context.Background(), true)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestSaveAndDeactivate(t *testing.T) {
	_, creds, reports := newTestStores(t)
	ctx := context.Background()
	_ = creds.Create(ctx, activeCredential("CI-1"))

	if err := reports.SaveAndDeactivate(ctx, newReport("r1", "CI-1", 5000), time.UnixMilli(5000)); err != nil {
		t.Fatalf("SaveAndDeactivate: %v", err)
	}

	cred, _ := creds.Get(ctx, "CI-1")
	if cred.Active() {
		t.Fatalf("credential still active")
	}
	if _, err := reports.Get(ctx, "r1"); err != nil {
		t.Fatalf("report not persisted: %v", err)
	}

	err := reports.SaveAndDeactivate(ctx, newReport("r2", "CI-1", 6000), time.UnixMilli(6000))
	if !errors.Is(err, ErrCredentialNotActive) {
		t.Fatalf("expected ErrCredentialNotActive, got %v", err)
	}
	if _, err := reports.Get(ctx, "r2"); !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("second report must not be written, got %v", err)
	}
}

func TestSaveAndDeactivateMissingCredential(t *testing.T) {
	_, creds, reports := newTestStores(t)
	ctx := context.Background()

	err := reports.SaveAndDeactivate(ctx, newReport("r1", "CI-ghost", 1), time.Now())
	if !errors.Is(err, ErrCredentialNotFound) {
		t.Fatalf("expected ErrCredentialNotFound, got %v", err)
	}
	if _, err := creds.Get(ctx, "CI-ghost"); !errors.Is(err, ErrCredentialNotFound) {
		t.Fatalf("finalize must not create a credential, got %v", err)
	}
	list, _ := reports.List(ctx, true)
	if len(list) != 0 {
		t.Fatalf("no report expected, got %d", len(list))
	}
}

func TestStoresUnavailable(t *testing.T) {
	mr, creds, reports := newTestStores(t)
	mr.Close()
	ctx := context.Background()

	if _, err := creds.Get(ctx, "CI-1"); !errors.Is(err, ErrCredentialUnavailable) {
		t.Fatalf("expected ErrCredentialUnavailable, got %v", err)
	}
	if err := reports.Save(ctx, newReport("r", "CI-1", 1)); !errors.Is(err, ErrReportUnavailable) {
		t.Fatalf("expected ErrReportUnavailable, got %v", err)
	}
	if _, err := reports.List(ctx, true); !errors.Is(err, ErrReportUnavailable) {
		t.Fatalf("expected ErrReportUnavailable, got %v", err)
	}
}

func ids(list []ReportRecord) string {
	var b strings.Builder
	for _, r := range list {
		b.WriteString(r.ID)
	}
	return b.String()
}
