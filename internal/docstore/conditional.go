package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// compareAndSetLua transitions one hash field atomically.
// KEYS[1] = document key
// ARGV[1] = field
// ARGV[2] = expected current value
// ARGV[3] = new value
// ARGV[4..] = extra field/value pairs written only when the swap happens
//
// Returns the value observed before the call ("" when the field is absent),
// or error string "not_found" when the document does not exist.
var compareAndSetLua = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {err='not_found'}
end

local current = redis.call('HGET', KEYS[1], ARGV[1])
if not current then
  current = ''
end

if current == ARGV[2] then
  redis.call('HSET', KEYS[1], ARGV[1], ARGV[3])
  for i = 4, #ARGV, 2 do
    redis.call('HSET', KEYS[1], ARGV[i], ARGV[i + 1])
  end
end

return current
`)

// CompareAndSet sets field to `to` only when it currently equals `from`, and
// returns the value observed before the call. Callers compare the returned
// value with `from` to learn whether the swap happened. extra fields are
// written together with a successful swap; they must not be orderable.
func (s *Store) CompareAndSet(
	ctx context.Context,
	collection, key, field, from, to string,
	extra Document,
) (string, error) {
	if err := validateRef(collection, key); err != nil {
		return "", err
	}
	if field == "" {
		return "", fmt.Errorf("%w: empty field", ErrInvalidDocument)
	}
	for k := range extra {
		if s.isOrdered(collection, k) {
			return "", fmt.Errorf("%w: orderable field %q in conditional extra", ErrInvalidDocument, k)
		}
	}

	args := make([]interface{}, 0, 3+len(extra)*2)
	args = append(args, field, from, to)
	for k, v := range extra {
		args = append(args, k, v)
	}

	res, err := compareAndSetLua.Run(ctx, s.redis, []string{s.docKey(collection, key)}, args...).Result()
	if err != nil {
		if err.Error() == "not_found" {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	previous, ok := res.(string)
	if !ok {
		return "", fmt.Errorf("%w: unexpected lua result type", ErrStoreUnavailable)
	}
	return previous, nil
}

// Guard is the precondition of a Commit: the field of the guarded document must
// equal Equals.
type Guard struct {
	Collection string
	Key        string
	Field      string
	Equals     string
}

// Mutation is one document write inside a Commit. Replace drops the previous
// document first; otherwise Fields are merged (creating the document if absent).
type Mutation struct {
	Collection string
	Key        string
	Fields     Document
	Replace    bool
}

// Commit applies every mutation in one MULTI/EXEC, provided the guard holds
// at EXEC time. A missing guard document yields ErrNotFound, a mismatching
// field yields an error wrapping ErrConditionFailed that names the observed value.
func (s *Store) Commit(ctx context.Context, guard Guard, mutations ...Mutation) error {
	if err := validateRef(guard.Collection, guard.Key); err != nil {
		return err
	}
	if guard.Field == "" {
		return fmt.Errorf("%w: empty guard field", ErrInvalidDocument)
	}
	if len(mutations) == 0 {
		return fmt.Errorf("%w: no mutations", ErrInvalidDocument)
	}

	scores := make([]map[string]float64, len(mutations))
	for i, m := range mutations {
		if err := validateRef(m.Collection, m.Key); err != nil {
			return err
		}
		sc, err := s.scores(m.Collection, m.Fields)
		if err != nil {
			return err
		}
		scores[i] = sc
	}

	gk := s.docKey(guard.Collection, guard.Key)
	return s.guarded(ctx, gk, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, gk).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}

		current, err := tx.HGet(ctx, gk, guard.Field).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != guard.Equals {
			return &ConditionError{Field: guard.Field, Observed: current}
		}
		return nil
	}, func(pipe redis.Pipeliner) {
		for i, m := range mutations {
			s.queueWrite(ctx, pipe, m.Collection, m.Key, m.Fields, scores[i], m.Replace)
		}
	})
}

// ConditionError reports the value seen when a Commit guard failed.
type ConditionError struct {
	Field    string
	Observed string
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("%s: %s=%q", ErrConditionFailed.Error(), e.Field, e.Observed)
}

func (e *ConditionError) Unwrap() error {
	return ErrConditionFailed
}
