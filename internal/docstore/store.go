package docstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix     = "gi"
	defaultMaxRetries = 4
)

var (
	ErrNotFound         = errors.New("document not found")
	ErrExists           = errors.New("document already exists")
	ErrConditionFailed  = errors.New("document condition failed")
	ErrConflict         = errors.New("document transaction conflict")
	ErrInvalidDocument  = errors.New("invalid document")
	ErrUnindexedField   = errors.New("field is not orderable")
	ErrStoreUnavailable = errors.New("document store unavailable")
)

// Document is a flat field map. Missing optional fields are simply absent.
type Document map[string]string

// Record pairs a document with its key.
type Record struct {
	Key string
	Doc Document
}

// Direction orders QueryOrdered results.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// Options configures a Store.
type Options struct {
	Prefix string
	// OrderedFields lists, per collection, the fields QueryOrdered may sort by.
	// Their values must parse as float64.
	OrderedFields map[string][]string
	MaxTxRetries  int
}

// Store is a Redis-backed document store.
type Store struct {
	redis      redis.UniversalClient
	prefix     string
	ordered    map[string][]string
	maxRetries int
}

func New(client redis.UniversalClient, opts Options) *Store {
	if opts.Prefix == "" {
		opts.Prefix = defaultPrefix
	}
	if opts.MaxTxRetries <= 0 {
		opts.MaxTxRetries = defaultMaxRetries
	}

	ordered := make(map[string][]string, len(opts.OrderedFields))
	for collection, fields := range opts.OrderedFields {
		ordered[collection] = append([]string(nil), fields...)
	}

	return &Store{
		redis:      client,
		prefix:     opts.Prefix,
		ordered:    ordered,
		maxRetries: opts.MaxTxRetries,
	}
}

func (s *Store) docKey(collection, key string) string {
	return s.prefix + ":doc:" + collection + ":" + key
}

func (s *Store) indexKey(collection, field string) string {
	return s.prefix + ":idx:" + collection + ":" + field
}

// Ping checks that Redis answers.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Set writes doc under key, replacing any previous document.
func (s *Store) Set(ctx context.Context, collection, key string, doc Document) error {
	if err := validateRef(collection, key); err != nil {
		return err
	}
	scores, err := s.scores(collection, doc)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		s.queueWrite(ctx, pipe, collection, key, doc, scores, true)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Create writes doc only when no document exists under key.
func (s *Store) Create(ctx context.Context, collection, key string, doc Document) error {
	if err := validateRef(collection, key); err != nil {
		return err
	}
	scores, err := s.scores(collection, doc)
	if err != nil {
		return err
	}

	dk := s.docKey(collection, key)
	return s.guarded(ctx, dk, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, dk).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrExists
		}
		return nil
	}, func(pipe redis.Pipeliner) {
		s.queueWrite(ctx, pipe, collection, key, doc, scores, false)
	})
}

// Get returns the document stored under key.
func (s *Store) Get(ctx context.Context, collection, key string) (Document, error) {
	if err := validateRef(collection, key); err != nil {
		return nil, err
	}

	fields, err := s.redis.HGetAll(ctx, s.docKey(collection, key)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return Document(fields), nil
}

// Update merges partial into an existing document. It never creates one.
func (s *Store) Update(ctx context.Context, collection, key string, partial Document) error {
	if err := validateRef(collection, key); err != nil {
		return err
	}
	if len(partial) == 0 {
		return fmt.Errorf("%w: empty update", ErrInvalidDocument)
	}
	scores, err := s.scores(collection, partial)
	if err != nil {
		return err
	}

	dk := s.docKey(collection, key)
	return s.guarded(ctx, dk, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, dk).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	}, func(pipe redis.Pipeliner) {
		s.queueWrite(ctx, pipe, collection, key, partial, scores, false)
	})
}

// Delete removes the document and its index entries.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	if err := validateRef(collection, key); err != nil {
		return err
	}

	var del *redis.IntCmd
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.docKey(collection, key))
		for _, field := range s.ordered[collection] {
			pipe.ZRem(ctx, s.indexKey(collection, field), key)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

// QueryOrdered returns every document of collection sorted by orderField.
// Index entries whose document has disappeared are skipped.
func (s *Store) QueryOrdered(ctx context.Context, collection, orderField string, dir Direction) ([]Record, error) {
	if !s.isOrdered(collection, orderField) {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnindexedField, collection, orderField)
	}

	idx := s.indexKey(collection, orderField)
	var (
		keys []string
		err  error
	)
	if dir == Descending {
		keys, err = s.redis.ZRevRange(ctx, idx, 0, -1).Result()
	} else {
		keys, err = s.redis.ZRange(ctx, idx, 0, -1).Result()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(keys) == 0 {
		return []Record{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(keys))
	_, err = s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, key := range keys {
			cmds[i] = pipe.HGetAll(ctx, s.docKey(collection, key))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	out := make([]Record, 0, len(keys))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		out = append(out, Record{Key: keys[i], Doc: Document(fields)})
	}
	return out, nil
}

func (s *Store) isOrdered(collection, field string) bool {
	for _, f := range s.ordered[collection] {
		if f == field {
			return true
		}
	}
	return false
}

// scores parses the orderable fields present in doc.
func (s *Store) scores(collection string, doc Document) (map[string]float64, error) {
	fields := s.ordered[collection]
	if len(fields) == 0 {
		return nil, nil
	}

	out := make(map[string]float64, len(fields))
	for _, field := range fields {
		raw, ok := doc[field]
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q is not numeric", ErrInvalidDocument, field)
		}
		out[field] = v
	}
	return out, nil
}

// queueWrite queues the hash write and index maintenance for one document.
// With replace set, the previous hash is dropped and absent orderable fields
// are removed from their indexes.
func (s *Store) queueWrite(
	ctx context.Context,
	pipe redis.Pipeliner,
	collection, key string,
	doc Document,
	scores map[string]float64,
	replace bool,
) {
	dk := s.docKey(collection, key)
	if replace {
		pipe.Del(ctx, dk)
	}
	if len(doc) > 0 {
		values := make([]interface{}, 0, len(doc)*2)
		for k, v := range doc {
			values = append(values, k, v)
		}
		pipe.HSet(ctx, dk, values...)
	}

	for _, field := range s.ordered[collection] {
		score, ok := scores[field]
		switch {
		case ok:
			pipe.ZAdd(ctx, s.indexKey(collection, field), redis.Z{Score: score, Member: key})
		case replace:
			pipe.ZRem(ctx, s.indexKey(collection, field), key)
		}
	}
}

// guarded runs check under WATCH on watchKey and, when it passes, applies
// writes in MULTI/EXEC. Contention is retried up to maxRetries times.
func (s *Store) guarded(
	ctx context.Context,
	watchKey string,
	check func(tx *redis.Tx) error,
	writes func(pipe redis.Pipeliner),
) error {
	for i := 0; i < s.maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			if err := check(tx); err != nil {
				return err
			}
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				writes(pipe)
				return nil
			})
			return err
		}, watchKey)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, ErrNotFound),
				errors.Is(err, ErrExists),
				errors.Is(err, ErrConditionFailed),
				errors.Is(err, ErrInvalidDocument):
				return err
			default:
				return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
		}
		return nil
	}

	return ErrConflict
}

func validateRef(collection, key string) error {
	if collection == "" || strings.Contains(collection, ":") {
		return fmt.Errorf("%w: invalid collection %q", ErrInvalidDocument, collection)
	}
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidDocument)
	}
	return nil
}
