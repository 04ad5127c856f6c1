package docstore

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestCompareAndSetSwaps(t *testing.T) {
	_, s := newTestStore(t)
	ctx := context.Background()

	_ = s.Set(ctx, "credentials", "CI-1", Document{"status": "active"})

	prev, err := s.CompareAndSet(ctx, "credentials", "CI-1", "status", "active", "used", Document{"usedAt": "42"})
	if err != nil {
		t.Fatalf("CompareAndSet: %v", err)
	}
	if prev != "active" {
		t.Fatalf("expected previous active, got %q", prev)
	}

	doc, _ := s.Get(ctx, "credentials", "CI-1")
	if doc["status"] != "used" || doc["usedAt"] != "42" {
		t.Fatalf("unexpected document after swap: %v", doc)
	}
}

func TestCompareAndSetNoSwapOnMismatch(t *testing.T) {
	_, s := newTestStore(t)
	ctx := context.Background()

	_ = s.Set(ctx, "credentials", "CI-1", Document{"status": "used", "usedAt": "1"})

	prev, err := s.CompareAndSet(ctx, "credentials", "CI-1", "status", "active", "used", Document{"usedAt": "99"})
	if err != nil {
		t.Fatalf("CompareAndSet: %v", err)
	}
	if prev != "used" {
		t.Fatalf("expected previous used, got %q", prev)
	}

	doc, _ := s.Get(ctx, "credentials", "CI-1")
	if doc["usedAt"] != "1" {
		t.Fatalf("extra fields must not be written without a swap: %v", doc)
	}
}

func TestCompareAndSetMissingDocument(t *testing.T) {
	_, s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CompareAndSet(ctx, "credentials", "ghost", "status", "active", "used", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Get(ctx, "credentials", "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("conditional update must not create a document, got %v", err)
	}
}

func TestCompareAndSetRejectsOrderableExtra(t *testing.T) {
	_, s := newTestStore(t)
	_ = s.Set(context.Background(), "reports", "r", Document{"createdAt": "1", "state": "a"})

	_, err := s.CompareAndSet(context.Background(), "reports", "r", "state", "a", "b", Document{"createdAt": "2"})
	if !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
}

func TestCompareAndSetConcurrentSingleTransition(t *testing.T) {
	_, s := newTestStore(t)
	ctx := context.Background()
	_ = s.Set(ctx, "credentials", "CI-1", Document{"status": "active"})

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		swaps int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prev, err := s.CompareAndSet(ctx, "credentials", "CI-1", "status", "active", "used", nil)
			if err == nil && prev == "active" {
				mu.Lock()
				swaps++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if swaps != 1 {
		t.Fatalf("expected exactly one transition, got %d", swaps)
	}
}

func TestCommitAppliesAllMutations(t *testing.T) {
	_, s := newTestStore(t)
	ctx := context.Background()
	_ = s.Set(ctx, "credentials", "CI-1", Document{"status": "active"})

	err := s.Commit(ctx,
		Guard{Collection: "credentials", Key: "CI-1", Field: "status", Equals: "active"},
		Mutation{Collection: "reports", Key: "r1", Fields: Document{"caseId": "CI-1", "createdAt": "10"}, Replace: true},
		Mutation{Collection: "credentials", Key: "CI-1", Fields: Document{"status": "used"}},
	)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	cred, _ := s.Get(ctx, "credentials", "CI-1")
	if cred["status"] != "used" {
		t.Fatalf("credential not transitioned: %v", cred)
	}
	recs, _ := s.QueryOrdered(ctx, "reports", "createdAt", Ascending)
	if len(recs) != 1 || recs[0].Doc["caseId"] != "CI-1" {
		t.Fatalf("report not written/indexed: %#v", recs)
	}
}

func TestCommitGuardFailureWritesNothing(t *testing.T) {
	_, s := newTestStore(t)
	ctx := context.Background()
	_ = s.Set(ctx, "credentials", "CI-1", Document{"status": "used"})

	err := s.Commit(ctx,
		Guard{Collection: "credentials", Key: "CI-1", Field: "status", Equals: "active"},
		Mutation{Collection: "reports", Key: "r1", Fields: Document{"createdAt": "10"}},
	)
	if !errors.Is(err, ErrConditionFailed) {
		t.Fatalf("expected ErrConditionFailed, got %v", err)
	}
	var ce *ConditionError
	if !errors.As(err, &ce) || ce.Observed != "used" {
		t.Fatalf("expected ConditionError with observed=used, got %#v", err)
	}
	if _, err := s.Get(ctx, "reports", "r1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("report must not be written when guard fails, got %v", err)
	}
}

func TestCommitMissingGuardDocument(t *testing.T) {
	_, s := newTestStore(t)
	err := s.Commit(context.Background(),
		Guard{Collection: "credentials", Key: "ghost", Field: "status", Equals: "active"},
		Mutation{Collection: "reports", Key: "r1", Fields: Document{"createdAt": "10"}},
	)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCommitRequiresMutations(t *testing.T) {
	_, s := newTestStore(t)
	err := s.Commit(context.Background(), Guard{Collection: "credentials", Key: "CI-1", Field: "status"})
	if !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
}

func TestCommitConcurrentSingleWinner(t *testing.T) {
	_, s := newTestStore(t)
	ctx := context.Background()
	_ = s.Set(ctx, "credentials", "CI-1", Document{"status": "active"})

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := s.Commit(ctx,
				Guard{Collection: "credentials", Key: "CI-1", Field: "status", Equals: "active"},
				Mutation{Collection: "reports", Key: "r" + string(rune('0'+n)), Fields: Document{"createdAt": "1"}},
				Mutation{Collection: "credentials", Key: "CI-1", Fields: Document{"status": "used"}},
			)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one committed finalize, got %d", wins)
	}
	recs, _ := s.QueryOrdered(ctx, "reports", "createdAt", Ascending)
	if len(recs) != 1 {
		t.Fatalf("expected exactly one report, got %d", len(recs))
	}
}
