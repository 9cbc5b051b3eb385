// Package numbering issues sequential, human-readable identifiers such as
// invoice and journal numbers, scoped per tenant and calendar year.
package numbering

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/harbor-books/harbor-books/internal/shared"
)

// SequenceStore reports the highest sequence already committed for a prefix
// and year. It is consulted once per counter to seed the atomic counter;
// after that the counter alone owns the sequence.
type SequenceStore interface {
	HighestIssuedSequence(ctx context.Context, tenantID int64, prefix string, year int) (int64, error)
}

// Service allocates numbers via an atomic per-(tenant, prefix, year) counter,
// so concurrent callers can never observe the same sequence.
type Service struct {
	rdb   *redis.Client
	store SequenceStore
	now   func() time.Time
}

// NewService constructs the numbering service.
func NewService(rdb *redis.Client, store SequenceStore) *Service {
	return &Service{rdb: rdb, store: store, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// NextNumber returns "{PREFIX}-{year}-{sequence:04d}", one greater than the
// highest sequence previously issued for the tenant and year.
func (s *Service) NextNumber(ctx context.Context, tenantID int64, prefix string) (string, error) {
	if tenantID == 0 {
		return "", errors.New("numbering: tenant required")
	}
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return "", errors.New("numbering: prefix required")
	}
	year := s.now().Year()
	key := shared.NumberCounterKey(tenantID, prefix, year)

	exists, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("numbering: counter lookup: %w", err)
	}
	if exists == 0 && s.store != nil {
		highest, err := s.store.HighestIssuedSequence(ctx, tenantID, prefix, year)
		if err != nil {
			return "", fmt.Errorf("numbering: seed counter: %w", err)
		}
		// SetNX so only the first concurrent caller seeds; losers just INCR.
		if err := s.rdb.SetNX(ctx, key, highest, 0).Err(); err != nil {
			return "", fmt.Errorf("numbering: seed counter: %w", err)
		}
	}
	seq, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("numbering: increment: %w", err)
	}
	return fmt.Sprintf("%s-%d-%04d", prefix, year, seq), nil
}
