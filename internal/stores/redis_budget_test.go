package stores

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goIntake/internal/docstore"
)

// cmdCounter is a go-redis hook counting commands and pipeline round-trips.
type cmdCounter struct {
	commands  atomic.Int64
	pipelines atomic.Int64
}

func (h *cmdCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *cmdCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.commands.Add(1)
		return next(ctx, cmd)
	}
}

func (h *cmdCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		h.pipelines.Add(1)
		h.commands.Add(int64(len(cmds)))
		return next(ctx, cmds)
	}
}

func (h *cmdCounter) Reset() {
	h.commands.Store(0)
	h.pipelines.Store(0)
}

func newCountedStores(t *testing.T) (*CredentialStore, *ReportStore, *cmdCounter) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	counter := &cmdCounter{}
	rdb.AddHook(counter)

	// the first use may carry handshake commands
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("warmup ping: %v", err)
	}
	counter.Reset()

	docs := docstore.New(rdb, docstore.Options{Prefix: "b", OrderedFields: OrderedFields()})
	return NewCredentialStore(docs), NewReportStore(docs), counter
}

func TestCredentialLookupRedisBudget(t *testing.T) {
	creds, _, counter := newCountedStores(t)
	ctx := context.Background()

	if err := creds.Create(ctx, activeCredential("CI-20240101-BGT1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	counter.Reset()
	if _, err := creds.Get(ctx, "CI-20240101-BGT1"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := counter.commands.Load(); got != 1 {
		t.Fatalf("credential lookup used %d commands, want 1", got)
	}
	if got := counter.pipelines.Load(); got != 0 {
		t.Fatalf("credential lookup used %d pipelines, want 0", got)
	}
}

func TestDeactivateRedisBudget(t *testing.T) {
	creds, _, counter := newCountedStores(t)
	ctx := context.Background()
	now := time.UnixMilli(1700000100000)

	for _, id := range []string{"CI-20240101-WARM", "CI-20240101-BGT2"} {
		if err := creds.Create(ctx, activeCredential(id)); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	// loads the script so the measured call is a plain EVALSHA
	if _, err := creds.Deactivate(ctx, "CI-20240101-WARM", now); err != nil {
		t.Fatalf("warm deactivate: %v", err)
	}

	counter.Reset()
	changed, err := creds.Deactivate(ctx, "CI-20240101-BGT2", now)
	if err != nil || !changed {
		t.Fatalf("deactivate: changed=%v err=%v", changed, err)
	}
	if got := counter.commands.Load(); got != 1 {
		t.Fatalf("deactivate used %d commands, want 1", got)
	}
}

func TestListReportsRedisBudget(t *testing.T) {
	_, reports, counter := newCountedStores(t)
	ctx := context.Background()

	const n = 25
	base := time.UnixMilli(1700000000000).UTC()
	for i := 0; i < n; i++ {
		rec := &ReportRecord{
			ID:          fmt.Sprintf("rep-%02d", i),
			CaseID:      fmt.Sprintf("CI-20240101-R%03d", i),
			ClientName:  "Budget",
			ClientEmail: "budget@example.com",
			Content:     "content",
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		}
		if err := reports.Save(ctx, rec); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	counter.Reset()
	got, err := reports.List(ctx, true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != n {
		t.Fatalf("list returned %d reports, want %d", len(got), n)
	}
	// one index read plus one pipelined fetch, independent of n
	if p := counter.pipelines.Load(); p != 1 {
		t.Fatalf("list used %d pipelines, want 1", p)
	}
	if c := counter.commands.Load(); c != 1+n {
		t.Fatalf("list used %d commands, want %d", c, 1+n)
	}
}
