package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goIntake "github.com/MrEthical07/goIntake"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func main() {
	var (
		credentials = flag.Int("credentials", 2000, "number of credentials to issue before the validate phase")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per phase (validate + admit)")
		identities  = flag.Int("identities", 5000, "distinct client identities for the admit phase")
		bcryptCost  = flag.Int("bcrypt-cost", 4, "passcode bcrypt cost")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "gi-load", "store key prefix")
	)
	flag.Parse()

	if *credentials <= 0 || *concurrency <= 0 || *ops <= 0 || *identities <= 0 {
		fmt.Fprintln(os.Stderr, "credentials, concurrency, ops, and identities must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := goIntake.DefaultConfig()
	cfg.Passcode.BcryptCost = *bcryptCost
	cfg.Store.Prefix = *prefix
	// 6-char suffixes keep collisions rare at this volume
	cfg.Credential.SuffixLength = 6

	engine, err := goIntake.New().WithConfig(cfg).WithRedis(client).Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("issuing %d credentials...\n", *credentials)
	issued, issueStats := runIssuePhase(ctx, engine, *credentials, *concurrency)
	if len(issued) == 0 {
		fmt.Fprintln(os.Stderr, "no credentials issued")
		os.Exit(1)
	}

	validateStats := runValidatePhase(ctx, engine, issued, *ops, *concurrency)
	admitStats := runAdmitPhase(ctx, engine, *identities, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("issue", issueStats)
	printStats("validate", validateStats)
	printStats("admit", admitStats)
	fmt.Printf("tracked identities: %d\n", engine.TrackedIdentities())
}

// run spreads ops calls of fn across concurrency workers. fn reports whether
// the call failed.
func run(ops, concurrency int, seed int64, fn func(r *rand.Rand, i int) bool) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				failed := fn(r, i)
				d := time.Since(t0)
				if failed {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

func runIssuePhase(ctx context.Context, engine *goIntake.Engine, n, concurrency int) ([]goIntake.IssuedCredential, phaseStats) {
	var (
		mu  sync.Mutex
		out = make([]goIntake.IssuedCredential, 0, n)
	)
	stats := run(n, concurrency, 7919, func(_ *rand.Rand, _ int) bool {
		cred, err := engine.IssueCredential(ctx)
		if err != nil {
			return true
		}
		mu.Lock()
		out = append(out, *cred)
		mu.Unlock()
		return false
	})
	return out, stats
}

// runValidatePhase sends one wrong passcode in ten so the mismatch path is
// timed too; those count as failures only when the error is not the
// expected rejection.
func runValidatePhase(ctx context.Context, engine *goIntake.Engine, creds []goIntake.IssuedCredential, ops, concurrency int) phaseStats {
	return run(ops, concurrency, 6151, func(r *rand.Rand, i int) bool {
		cred := creds[r.Intn(len(creds))]
		passcode := cred.Passcode
		if i%10 == 0 {
			passcode = "WRONGPWD"
		}
		_, err := engine.ValidateCredential(ctx, cred.CaseID, passcode)
		if i%10 == 0 {
			return !errors.Is(err, goIntake.ErrCredentialInvalid)
		}
		return err != nil
	})
}

// runAdmitPhase counts denials as failures.
func runAdmitPhase(ctx context.Context, engine *goIntake.Engine, identities, ops, concurrency int) phaseStats {
	return run(ops, concurrency, 4099, func(r *rand.Rand, _ int) bool {
		id := r.Intn(identities)
		ip := fmt.Sprintf("10.%d.%d.%d", id>>16&0xff, id>>8&0xff, id&0xff)
		return !engine.Admit(ctx, "loadtest", ip).Allowed
	})
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
