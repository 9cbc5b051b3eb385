package jobs

import (
	"context"
	"log/slog"
	"math"
	"strconv"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harbor-books/harbor-books/internal/ledger"
	"github.com/harbor-books/harbor-books/internal/observability"
)

const driftTolerance = 0.01

// IntegrityChecker recomputes every account balance from posted journal
// lines and compares it to the stored running balance. Accounts that
// disagree beyond the tolerance are logged and counted per tenant.
type IntegrityChecker struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewIntegrityChecker constructs an IntegrityChecker.
func NewIntegrityChecker(pool *pgxpool.Pool, logger *slog.Logger, metrics *observability.Metrics) *IntegrityChecker {
	return &IntegrityChecker{pool: pool, logger: logger, metrics: metrics}
}

// Handler adapts the checker to an Asynq handler func.
func (c *IntegrityChecker) Handler() asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		return c.Run(ctx)
	}
}

// Run performs a single reconciliation sweep over all tenants.
func (c *IntegrityChecker) Run(ctx context.Context) error {
	// Lines join through their entry inside the subquery so non-POSTED
	// entries never reach the baseline.
	rows, err := c.pool.Query(ctx, `SELECT a.tenant_id, a.id, a.code, a.type, a.balance::float8,
  COALESCE(SUM(l.debit), 0)::float8, COALESCE(SUM(l.credit), 0)::float8
FROM accounts a
LEFT JOIN (
	SELECT l.account_id, l.debit, l.credit
	FROM journal_lines l
	JOIN journal_entries e ON e.id = l.je_id
	WHERE e.status='POSTED'
) l ON l.account_id = a.id
GROUP BY a.tenant_id, a.id, a.code, a.type, a.balance
ORDER BY a.tenant_id, a.code`)
	if err != nil {
		return err
	}
	defer rows.Close()

	drifted := map[int64]int{}
	checked := 0
	for rows.Next() {
		var (
			tenantID, accountID    int64
			code, accountType      string
			balance, debit, credit float64
		)
		if err := rows.Scan(&tenantID, &accountID, &code, &accountType, &balance, &debit, &credit); err != nil {
			return err
		}
		checked++
		if _, ok := drifted[tenantID]; !ok {
			drifted[tenantID] = 0
		}
		expected := ledger.Round2(ledger.BalanceDelta(ledger.AccountType(accountType), debit, credit))
		if math.Abs(expected-balance) > driftTolerance {
			drifted[tenantID]++
			c.logger.Warn("account balance drift",
				slog.Int64("tenant_id", tenantID),
				slog.String("code", code),
				slog.Float64("stored", balance),
				slog.Float64("recomputed", expected))
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	total := 0
	for tenantID, count := range drifted {
		total += count
		if c.metrics != nil {
			c.metrics.SetBalanceDrift(strconv.FormatInt(tenantID, 10), float64(count))
		}
	}
	c.logger.Info("ledger integrity sweep complete",
		slog.Int("accounts", checked),
		slog.Int("drifted", total))
	return nil
}
