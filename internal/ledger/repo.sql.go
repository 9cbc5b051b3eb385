package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists accounts and journal entries in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations available inside a posting commit.
type TxRepository interface {
	GetAccount(ctx context.Context, tenantID, accountID int64) (Account, error)
	InsertTransaction(ctx context.Context, in PostingInput, number string, reversesID *int64) (Transaction, error)
	InsertLines(ctx context.Context, txnID int64, lines []LineInput) error
	ApplyBalanceDelta(ctx context.Context, tenantID, accountID int64, delta float64) error
	GetTransactionByKey(ctx context.Context, tenantID int64, key string) (Transaction, error)
	GetTransactionWithLines(ctx context.Context, tenantID, txnID int64) (Transaction, error)
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction. Either every write
// inside fn becomes durable or none of them do.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const accountColumns = `id, tenant_id, code, name, type, role, currency, balance, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.TenantID, &a.Code, &a.Name, &a.Type, &a.Role, &a.Currency, &a.Balance, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// CreateAccount inserts a new chart of accounts node.
func (r *Repository) CreateAccount(ctx context.Context, in CreateAccountInput) (Account, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO accounts (tenant_id, code, name, type, role, currency, balance, is_active)
VALUES ($1,$2,$3,$4,$5,$6,0,TRUE) RETURNING `+accountColumns,
		in.TenantID, in.Code, in.Name, in.Type, string(in.Role), in.Currency)
	account, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, ErrDuplicateCode
		}
		return Account{}, err
	}
	return account, nil
}

// ListAccounts returns the tenant's chart of accounts ordered by code.
func (r *Repository) ListAccounts(ctx context.Context, tenantID int64, includeInactive bool) ([]Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE tenant_id=$1`
	if !includeInactive {
		query += ` AND is_active`
	}
	query += ` ORDER BY code`
	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// DeactivateAccount soft-disables an account. Historical entries stay resolvable.
func (r *Repository) DeactivateAccount(ctx context.Context, tenantID, accountID int64) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE accounts SET is_active=FALSE, updated_at=NOW() WHERE tenant_id=$1 AND id=$2`, tenantID, accountID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// GetAccountByRole resolves a structurally required account by its role tag.
func (r *Repository) GetAccountByRole(ctx context.Context, tenantID int64, role AccountRole) (Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts
WHERE tenant_id=$1 AND role=$2 AND is_active ORDER BY code LIMIT 1`, tenantID, string(role))
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrRoleAccountMissing
		}
		return Account{}, err
	}
	return account, nil
}

func (r *txRepository) GetAccount(ctx context.Context, tenantID, accountID int64) (Account, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE tenant_id=$1 AND id=$2`, tenantID, accountID)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return account, nil
}

const transactionColumns = `id, tenant_id, number, date, memo, reference, COALESCE(idempotency_key,''), source_id, status, reverses_id, posted_at, created_at`

func scanTransaction(row pgx.Row) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.TenantID, &t.Number, &t.Date, &t.Memo, &t.Reference, &t.IdempotencyKey, &t.SourceID, &t.Status, &t.ReversesID, &t.PostedAt, &t.CreatedAt)
	return t, err
}

func (r *txRepository) InsertTransaction(ctx context.Context, in PostingInput, number string, reversesID *int64) (Transaction, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (tenant_id, number, date, memo, reference, idempotency_key, source_id, status, reverses_id)
VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7,'POSTED',$8) RETURNING `+transactionColumns,
		in.TenantID, number, in.Date, in.Memo, in.Reference, in.IdempotencyKey, in.SourceID, reversesID)
	txn, err := scanTransaction(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Transaction{}, ErrDuplicateKey
		}
		return Transaction{}, err
	}
	return txn, nil
}

func (r *txRepository) InsertLines(ctx context.Context, txnID int64, lines []LineInput) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_lines (je_id, account_id, debit, credit, memo)
VALUES ($1,$2,$3,$4,$5)`, txnID, line.AccountID, toNumeric(line.Debit), toNumeric(line.Credit), line.Memo); err != nil {
			return err
		}
	}
	return nil
}

// ApplyBalanceDelta increments the running balance at the storage layer.
// The arithmetic happens inside the UPDATE, so concurrent postings against
// the same account cannot lose updates.
func (r *txRepository) ApplyBalanceDelta(ctx context.Context, tenantID, accountID int64, delta float64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE accounts SET balance = balance + $3, updated_at=NOW()
WHERE tenant_id=$1 AND id=$2`, tenantID, accountID, toNumeric(delta))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *txRepository) GetTransactionByKey(ctx context.Context, tenantID int64, key string) (Transaction, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+transactionColumns+` FROM journal_entries
WHERE tenant_id=$1 AND idempotency_key=$2`, tenantID, key)
	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrTransactionNotFound
		}
		return Transaction{}, err
	}
	return txn, nil
}

func (r *txRepository) GetTransactionWithLines(ctx context.Context, tenantID, txnID int64) (Transaction, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+transactionColumns+` FROM journal_entries WHERE tenant_id=$1 AND id=$2`, tenantID, txnID)
	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrTransactionNotFound
		}
		return Transaction{}, err
	}
	lines, err := queryLines(ctx, r.tx, txnID)
	if err != nil {
		return Transaction{}, err
	}
	txn.Lines = lines
	return txn, nil
}

type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryLines(ctx context.Context, q rowQuerier, txnID int64) ([]Entry, error) {
	rows, err := q.Query(ctx, `SELECT id, je_id, account_id, debit, credit, memo FROM journal_lines WHERE je_id=$1 ORDER BY id ASC`, txnID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Entry
	for rows.Next() {
		var line Entry
		if err := rows.Scan(&line.ID, &line.TransactionID, &line.AccountID, &line.Debit, &line.Credit, &line.Memo); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// QueryTransactions returns the tenant's journal ordered by date then id.
func (r *Repository) QueryTransactions(ctx context.Context, tenantID int64, filter TransactionFilter) ([]Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM journal_entries WHERE tenant_id=$1`
	args := []any{tenantID}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(` AND date >= $%d`, len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(` AND date <= $%d`, len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	query += ` ORDER BY date ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var txns []Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range txns {
		lines, err := queryLines(ctx, r.pool, txns[i].ID)
		if err != nil {
			return nil, err
		}
		txns[i].Lines = lines
	}
	return txns, nil
}

// GetTransaction loads one journal entry with its lines.
func (r *Repository) GetTransaction(ctx context.Context, tenantID, txnID int64) (Transaction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM journal_entries WHERE tenant_id=$1 AND id=$2`, tenantID, txnID)
	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrTransactionNotFound
		}
		return Transaction{}, err
	}
	lines, err := queryLines(ctx, r.pool, txnID)
	if err != nil {
		return Transaction{}, err
	}
	txn.Lines = lines
	return txn, nil
}

// ActivityRow aggregates posted debit and credit movement for one account.
type ActivityRow struct {
	AccountID int64
	Code      string
	Name      string
	Type      AccountType
	Debit     float64
	Credit    float64
}

// AccountActivity sums posted journal lines per account, optionally bounded
// by date. Statement generation uses this instead of the live balance so the
// result is period-scoped. Lines join through their entry inside the subquery:
// a line whose entry falls outside the window (or is not POSTED) must not
// reach the aggregate at all.
func (r *Repository) AccountActivity(ctx context.Context, tenantID int64, from, to *time.Time) ([]ActivityRow, error) {
	args := []any{tenantID}
	sub := `SELECT l.account_id, l.debit, l.credit
	FROM journal_lines l
	JOIN journal_entries e ON e.id = l.je_id
	WHERE e.tenant_id=$1 AND e.status='POSTED'`
	if from != nil {
		args = append(args, *from)
		sub += fmt.Sprintf(" AND e.date >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		sub += fmt.Sprintf(" AND e.date <= $%d", len(args))
	}
	query := `SELECT a.id, a.code, a.name, a.type, COALESCE(SUM(l.debit),0), COALESCE(SUM(l.credit),0)
FROM accounts a
LEFT JOIN (` + sub + `) l ON l.account_id = a.id
WHERE a.tenant_id=$1 GROUP BY a.id, a.code, a.name, a.type ORDER BY a.code`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ActivityRow
	for rows.Next() {
		var row ActivityRow
		if err := rows.Scan(&row.AccountID, &row.Code, &row.Name, &row.Type, &row.Debit, &row.Credit); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// HighestIssuedSequence scans committed journal numbers for the largest
// sequence under prefix and year. Used once per counter to seed the atomic
// numbering counter; afterwards Redis owns the sequence.
func (r *Repository) HighestIssuedSequence(ctx context.Context, tenantID int64, prefix string, year int) (int64, error) {
	pattern := fmt.Sprintf("%s-%d-%%", prefix, year)
	var max int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(MAX(split_part(number, '-', 3)::bigint), 0)
FROM journal_entries WHERE tenant_id=$1 AND number LIKE $2`, tenantID, pattern).Scan(&max)
	if err != nil {
		return 0, err
	}
	return max, nil
}

func toNumeric(v float64) any {
	return fmt.Sprintf("%.2f", v)
}
