package reports

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/harbor-books/harbor-books/internal/ledger"
	"github.com/harbor-books/harbor-books/internal/shared"
)

const cacheTTL = 30 * time.Second

// ReadPort is the read-only slice of ledger storage statements are built from.
type ReadPort interface {
	ListAccounts(ctx context.Context, tenantID int64, includeInactive bool) ([]ledger.Account, error)
	AccountActivity(ctx context.Context, tenantID int64, from, to *time.Time) ([]ledger.ActivityRow, error)
}

// Service derives statements from the registry and ledger store. It never
// mutates state and never raises business errors: an empty chart of accounts
// simply yields zero-valued statements.
type Service struct {
	repo  ReadPort
	group singleflight.Group
	cache statementCache
}

// NewService constructs the statement generator.
func NewService(repo ReadPort) *Service {
	return &Service{repo: repo, cache: statementCache{ttl: cacheTTL}}
}

// Bust drops cached statements; the posting path calls this after a commit.
func (s *Service) Bust() {
	s.cache.bust()
}

// TrialBalance reports every account's running balance in its natural column.
func (s *Service) TrialBalance(ctx context.Context, tenantID int64) (TrialBalance, error) {
	key := shared.StatementCacheKey(tenantID, "tb", "now")
	v, err := s.build(ctx, key, func(ctx context.Context) (any, error) {
		accounts, err := s.repo.ListAccounts(ctx, tenantID, true)
		if err != nil {
			return nil, err
		}
		return BuildTrialBalance(accounts), nil
	})
	if err != nil {
		return TrialBalance{}, err
	}
	return v.(TrialBalance), nil
}

// ProfitAndLoss scans posted transactions dated within [from, to].
func (s *Service) ProfitAndLoss(ctx context.Context, tenantID int64, from, to time.Time) (ProfitAndLoss, error) {
	key := shared.StatementCacheKey(tenantID, "pl", fmt.Sprintf("%s..%s", from.Format("2006-01-02"), to.Format("2006-01-02")))
	v, err := s.build(ctx, key, func(ctx context.Context) (any, error) {
		rows, err := s.repo.AccountActivity(ctx, tenantID, &from, &to)
		if err != nil {
			return nil, err
		}
		return BuildProfitAndLoss(rows), nil
	})
	if err != nil {
		return ProfitAndLoss{}, err
	}
	return v.(ProfitAndLoss), nil
}

// BalanceSheet reconstructs balances from posted transactions up to asOf.
func (s *Service) BalanceSheet(ctx context.Context, tenantID int64, asOf time.Time) (BalanceSheet, error) {
	key := shared.StatementCacheKey(tenantID, "bs", asOf.Format("2006-01-02"))
	v, err := s.build(ctx, key, func(ctx context.Context) (any, error) {
		rows, err := s.repo.AccountActivity(ctx, tenantID, nil, &asOf)
		if err != nil {
			return nil, err
		}
		return BuildBalanceSheet(rows), nil
	})
	if err != nil {
		return BalanceSheet{}, err
	}
	return v.(BalanceSheet), nil
}

// build collapses concurrent identical requests and serves a short TTL cache.
func (s *Service) build(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	if v, ok := s.cache.get(key); ok {
		return v, nil
	}
	ch := s.group.DoChan(key, func() (any, error) {
		v, err := fn(ctx)
		if err == nil {
			s.cache.set(key, v)
		}
		return v, err
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

type cacheItem struct {
	value   any
	expires time.Time
}

type statementCache struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]cacheItem
}

func (c *statementCache) get(key string) (any, bool) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(item.expires) {
		return nil, false
	}
	return item.value, true
}

func (c *statementCache) set(key string, value any) {
	c.mu.Lock()
	if c.items == nil {
		c.items = make(map[string]cacheItem)
	}
	c.items[key] = cacheItem{value: value, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *statementCache) bust() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}
