package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harbor-books/harbor-books/internal/shared"
	_ "github.com/harbor-books/harbor-books/internal/testing/guard"
)

type memoryLedgerRepo struct {
	accounts map[int64]Account
	txns     map[int64]Transaction
	byKey    map[string]int64
	nextAcct int64
	nextTxn  int64
	nextLine int64
}

func newMemoryLedgerRepo() *memoryLedgerRepo {
	return &memoryLedgerRepo{
		accounts: make(map[int64]Account),
		txns:     make(map[int64]Transaction),
		byKey:    make(map[string]int64),
	}
}

func (r *memoryLedgerRepo) clone() *memoryLedgerRepo {
	c := &memoryLedgerRepo{
		accounts: make(map[int64]Account, len(r.accounts)),
		txns:     make(map[int64]Transaction, len(r.txns)),
		byKey:    make(map[string]int64, len(r.byKey)),
		nextAcct: r.nextAcct,
		nextTxn:  r.nextTxn,
		nextLine: r.nextLine,
	}
	for id, a := range r.accounts {
		c.accounts[id] = a
	}
	for id, txn := range r.txns {
		txn.Lines = append([]Entry(nil), txn.Lines...)
		c.txns[id] = txn
	}
	for k, v := range r.byKey {
		c.byKey[k] = v
	}
	return c
}

// WithTx runs fn against a snapshot and publishes it only on success, so
// failed commits leave no trace just like a rolled back transaction.
func (r *memoryLedgerRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	staging := r.clone()
	if err := fn(ctx, &memoryLedgerTx{repo: staging}); err != nil {
		return err
	}
	*r = *staging
	return nil
}

func (r *memoryLedgerRepo) CreateAccount(ctx context.Context, in CreateAccountInput) (Account, error) {
	for _, a := range r.accounts {
		if a.TenantID == in.TenantID && a.Code == in.Code {
			return Account{}, ErrDuplicateCode
		}
	}
	r.nextAcct++
	a := Account{
		ID:       r.nextAcct,
		TenantID: in.TenantID,
		Code:     in.Code,
		Name:     in.Name,
		Type:     in.Type,
		Role:     in.Role,
		Currency: in.Currency,
		IsActive: true,
	}
	r.accounts[a.ID] = a
	return a, nil
}

func (r *memoryLedgerRepo) ListAccounts(ctx context.Context, tenantID int64, includeInactive bool) ([]Account, error) {
	var out []Account
	for _, a := range r.accounts {
		if a.TenantID != tenantID {
			continue
		}
		if !includeInactive && !a.IsActive {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *memoryLedgerRepo) DeactivateAccount(ctx context.Context, tenantID, accountID int64) error {
	a, ok := r.accounts[accountID]
	if !ok || a.TenantID != tenantID {
		return ErrAccountNotFound
	}
	a.IsActive = false
	r.accounts[accountID] = a
	return nil
}

func (r *memoryLedgerRepo) GetAccountByRole(ctx context.Context, tenantID int64, role AccountRole) (Account, error) {
	for _, a := range r.accounts {
		if a.TenantID == tenantID && a.Role == role && a.IsActive {
			return a, nil
		}
	}
	return Account{}, ErrRoleAccountMissing
}

func (r *memoryLedgerRepo) QueryTransactions(ctx context.Context, tenantID int64, filter TransactionFilter) ([]Transaction, error) {
	var out []Transaction
	for _, txn := range r.txns {
		if txn.TenantID != tenantID {
			continue
		}
		if filter.Status != "" && txn.Status != filter.Status {
			continue
		}
		if filter.From != nil && txn.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && txn.Date.After(*filter.To) {
			continue
		}
		out = append(out, txn)
	}
	return out, nil
}

func (r *memoryLedgerRepo) GetTransaction(ctx context.Context, tenantID, txnID int64) (Transaction, error) {
	txn, ok := r.txns[txnID]
	if !ok || txn.TenantID != tenantID {
		return Transaction{}, ErrTransactionNotFound
	}
	return txn, nil
}

type memoryLedgerTx struct {
	repo *memoryLedgerRepo
}

func (t *memoryLedgerTx) GetAccount(ctx context.Context, tenantID, accountID int64) (Account, error) {
	a, ok := t.repo.accounts[accountID]
	if !ok || a.TenantID != tenantID {
		return Account{}, ErrAccountNotFound
	}
	return a, nil
}

func (t *memoryLedgerTx) InsertTransaction(ctx context.Context, in PostingInput, number string, reversesID *int64) (Transaction, error) {
	if in.IdempotencyKey != "" {
		if _, exists := t.repo.byKey[keyFor(in.TenantID, in.IdempotencyKey)]; exists {
			return Transaction{}, ErrDuplicateKey
		}
	}
	t.repo.nextTxn++
	txn := Transaction{
		ID:             t.repo.nextTxn,
		TenantID:       in.TenantID,
		Number:         number,
		Date:           in.Date,
		Memo:           in.Memo,
		Reference:      in.Reference,
		IdempotencyKey: in.IdempotencyKey,
		SourceID:       in.SourceID,
		Status:         StatusPosted,
		ReversesID:     reversesID,
		PostedAt:       time.Now(),
	}
	t.repo.txns[txn.ID] = txn
	if in.IdempotencyKey != "" {
		t.repo.byKey[keyFor(in.TenantID, in.IdempotencyKey)] = txn.ID
	}
	return txn, nil
}

func (t *memoryLedgerTx) InsertLines(ctx context.Context, txnID int64, lines []LineInput) error {
	txn, ok := t.repo.txns[txnID]
	if !ok {
		return ErrTransactionNotFound
	}
	for _, line := range lines {
		t.repo.nextLine++
		txn.Lines = append(txn.Lines, Entry{
			ID:            t.repo.nextLine,
			TransactionID: txnID,
			AccountID:     line.AccountID,
			Debit:         line.Debit,
			Credit:        line.Credit,
			Memo:          line.Memo,
		})
	}
	t.repo.txns[txnID] = txn
	return nil
}

func (t *memoryLedgerTx) ApplyBalanceDelta(ctx context.Context, tenantID, accountID int64, delta float64) error {
	a, ok := t.repo.accounts[accountID]
	if !ok || a.TenantID != tenantID {
		return ErrAccountNotFound
	}
	a.Balance = Round2(a.Balance + delta)
	t.repo.accounts[accountID] = a
	return nil
}

func (t *memoryLedgerTx) GetTransactionByKey(ctx context.Context, tenantID int64, key string) (Transaction, error) {
	id, ok := t.repo.byKey[keyFor(tenantID, key)]
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	return t.repo.txns[id], nil
}

func (t *memoryLedgerTx) GetTransactionWithLines(ctx context.Context, tenantID, txnID int64) (Transaction, error) {
	txn, ok := t.repo.txns[txnID]
	if !ok || txn.TenantID != tenantID {
		return Transaction{}, ErrTransactionNotFound
	}
	return txn, nil
}

func keyFor(tenantID int64, key string) string {
	return fmt.Sprintf("%d:%s", tenantID, key)
}

type seqNumbers struct {
	n int
}

func (s *seqNumbers) NextNumber(ctx context.Context, tenantID int64, prefix string) (string, error) {
	s.n++
	return fmt.Sprintf("%s-2026-%04d", prefix, s.n), nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type stubGateway struct {
	txn  Transaction
	err  error
	hits int
}

func (g *stubGateway) CreateJournal(ctx context.Context, in PostingInput) (Transaction, error) {
	g.hits++
	if g.err != nil {
		return Transaction{}, g.err
	}
	return g.txn, nil
}

func newTestService(t *testing.T) (*Service, *memoryLedgerRepo, *recordingAudit) {
	t.Helper()
	repo := newMemoryLedgerRepo()
	audit := &recordingAudit{}
	svc := NewService(repo, &seqNumbers{}, audit)
	svc.WithNow(func() time.Time {
		return time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)
	})
	return svc, repo, audit
}

func seedAccounts(t *testing.T, svc *Service) map[AccountRole]Account {
	t.Helper()
	ctx := context.Background()
	out := make(map[AccountRole]Account)
	seeds := []CreateAccountInput{
		{TenantID: 1, Code: "1000", Name: "Cash", Type: AccountTypeAsset, Role: RoleCash},
		{TenantID: 1, Code: "1100", Name: "Accounts Receivable", Type: AccountTypeAsset, Role: RoleAccountsReceivable},
		{TenantID: 1, Code: "2100", Name: "Sales Tax Payable", Type: AccountTypeLiability, Role: RoleTaxPayable},
		{TenantID: 1, Code: "4000", Name: "Service Revenue", Type: AccountTypeRevenue, Role: RoleRevenue},
	}
	for _, in := range seeds {
		a, err := svc.CreateAccount(ctx, in)
		require.NoError(t, err)
		out[in.Role] = a
	}
	return out
}

func TestPostTransactionInvoiceLifecycle(t *testing.T) {
	svc, repo, audit := newTestService(t)
	accounts := seedAccounts(t, svc)
	ctx := context.Background()

	issued, err := svc.PostTransaction(ctx, PostingInput{
		TenantID:  1,
		Date:      time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Memo:      "Invoice INV-2026-0001 issued",
		Reference: "INV-2026-0001",
		Lines: []LineInput{
			{AccountID: accounts[RoleAccountsReceivable].ID, Debit: 1000},
			{AccountID: accounts[RoleRevenue].ID, Credit: 900},
			{AccountID: accounts[RoleTaxPayable].ID, Credit: 100},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "JE-2026-0001", issued.Number)
	require.Equal(t, StatusPosted, issued.Status)
	require.Len(t, issued.Lines, 3)

	require.Equal(t, 1000.0, repo.accounts[accounts[RoleAccountsReceivable].ID].Balance)
	require.Equal(t, 900.0, repo.accounts[accounts[RoleRevenue].ID].Balance)
	require.Equal(t, 100.0, repo.accounts[accounts[RoleTaxPayable].ID].Balance)

	_, err = svc.PostTransaction(ctx, PostingInput{
		TenantID:  1,
		Date:      time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC),
		Memo:      "Invoice INV-2026-0001 paid",
		Reference: "INV-2026-0001",
		Lines: []LineInput{
			{AccountID: accounts[RoleCash].ID, Debit: 1000},
			{AccountID: accounts[RoleAccountsReceivable].ID, Credit: 1000},
		},
	})
	require.NoError(t, err)

	require.Equal(t, 1000.0, repo.accounts[accounts[RoleCash].ID].Balance)
	require.Equal(t, 0.0, repo.accounts[accounts[RoleAccountsReceivable].ID].Balance)
	require.Len(t, audit.logs, 2)
	require.Equal(t, "transaction.post", audit.logs[0].Action)
}

func TestPostTransactionRejectsUnbalanced(t *testing.T) {
	svc, repo, _ := newTestService(t)
	accounts := seedAccounts(t, svc)
	ctx := context.Background()

	_, err := svc.PostTransaction(ctx, PostingInput{
		TenantID: 1,
		Date:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Lines: []LineInput{
			{AccountID: accounts[RoleCash].ID, Debit: 100},
			{AccountID: accounts[RoleRevenue].ID, Credit: 90},
		},
	})
	require.ErrorIs(t, err, ErrUnbalanced)
	require.Empty(t, repo.txns)
	require.Equal(t, 0.0, repo.accounts[accounts[RoleCash].ID].Balance)
}

func TestPostTransactionNoPartialCommit(t *testing.T) {
	svc, repo, _ := newTestService(t)
	accounts := seedAccounts(t, svc)
	ctx := context.Background()

	_, err := svc.PostTransaction(ctx, PostingInput{
		TenantID: 1,
		Date:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Lines: []LineInput{
			{AccountID: accounts[RoleCash].ID, Debit: 100},
			{AccountID: 999, Credit: 100},
		},
	})
	require.ErrorIs(t, err, ErrAccountNotFound)
	require.Empty(t, repo.txns)
	for _, a := range repo.accounts {
		require.Equal(t, 0.0, a.Balance, "account %s moved despite rollback", a.Code)
	}
}

func TestPostTransactionRejectsInactiveAccount(t *testing.T) {
	svc, _, _ := newTestService(t)
	accounts := seedAccounts(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.DeactivateAccount(ctx, 1, accounts[RoleRevenue].ID))

	_, err := svc.PostTransaction(ctx, PostingInput{
		TenantID: 1,
		Date:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Lines: []LineInput{
			{AccountID: accounts[RoleCash].ID, Debit: 100},
			{AccountID: accounts[RoleRevenue].ID, Credit: 100},
		},
	})
	require.ErrorIs(t, err, ErrAccountInactive)
}

func TestPostTransactionIdempotencyReplay(t *testing.T) {
	svc, repo, audit := newTestService(t)
	accounts := seedAccounts(t, svc)
	ctx := context.Background()

	input := PostingInput{
		TenantID:       1,
		Date:           time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		IdempotencyKey: "invoice:42:issued",
		Lines: []LineInput{
			{AccountID: accounts[RoleAccountsReceivable].ID, Debit: 500},
			{AccountID: accounts[RoleRevenue].ID, Credit: 500},
		},
	}

	first, err := svc.PostTransaction(ctx, input)
	require.NoError(t, err)

	second, err := svc.PostTransaction(ctx, input)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.Number, second.Number)

	require.Len(t, repo.txns, 1)
	require.Equal(t, 500.0, repo.accounts[accounts[RoleAccountsReceivable].ID].Balance)
	require.Len(t, audit.logs, 1)
}

func TestReverseTransaction(t *testing.T) {
	svc, repo, _ := newTestService(t)
	accounts := seedAccounts(t, svc)
	ctx := context.Background()

	original, err := svc.PostTransaction(ctx, PostingInput{
		TenantID: 1,
		Date:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Lines: []LineInput{
			{AccountID: accounts[RoleAccountsReceivable].ID, Debit: 1000},
			{AccountID: accounts[RoleRevenue].ID, Credit: 1000},
		},
	})
	require.NoError(t, err)

	reversal, err := svc.ReverseTransaction(ctx, 1, original.ID, 7, "")
	require.NoError(t, err)
	require.NotNil(t, reversal.ReversesID)
	require.Equal(t, original.ID, *reversal.ReversesID)
	require.Equal(t, "Reversal of JE-2026-0001", reversal.Memo)
	require.Len(t, reversal.Lines, 2)

	require.Equal(t, 0.0, repo.accounts[accounts[RoleAccountsReceivable].ID].Balance)
	require.Equal(t, 0.0, repo.accounts[accounts[RoleRevenue].ID].Balance)
	require.Len(t, repo.txns, 2)

	_, err = svc.ReverseTransaction(ctx, 1, 999, 7, "")
	require.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestPostTransactionGatewayFallback(t *testing.T) {
	svc, repo, _ := newTestService(t)
	accounts := seedAccounts(t, svc)
	ctx := context.Background()

	gateway := &stubGateway{err: fmt.Errorf("dial tcp: %w", ErrGatewayUnavailable)}
	svc.WithGateway(gateway)

	txn, err := svc.PostTransaction(ctx, PostingInput{
		TenantID: 1,
		Date:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Lines: []LineInput{
			{AccountID: accounts[RoleCash].ID, Debit: 50},
			{AccountID: accounts[RoleRevenue].ID, Credit: 50},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, gateway.hits)
	require.Len(t, repo.txns, 1)
	require.Equal(t, "JE-2026-0001", txn.Number)
}

func TestPostTransactionGatewaySuccess(t *testing.T) {
	svc, repo, _ := newTestService(t)
	accounts := seedAccounts(t, svc)
	ctx := context.Background()

	gateway := &stubGateway{txn: Transaction{ID: 88, TenantID: 1, Number: "GW-2026-0042", Status: StatusPosted}}
	svc.WithGateway(gateway)

	txn, err := svc.PostTransaction(ctx, PostingInput{
		TenantID: 1,
		Date:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Lines: []LineInput{
			{AccountID: accounts[RoleCash].ID, Debit: 50},
			{AccountID: accounts[RoleRevenue].ID, Credit: 50},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "GW-2026-0042", txn.Number)
	require.Empty(t, repo.txns, "gateway path must not write locally")
}

func TestPostTransactionGatewayHardError(t *testing.T) {
	svc, _, _ := newTestService(t)
	accounts := seedAccounts(t, svc)
	ctx := context.Background()

	gateway := &stubGateway{err: errors.New("journal rejected: period closed")}
	svc.WithGateway(gateway)

	_, err := svc.PostTransaction(ctx, PostingInput{
		TenantID: 1,
		Date:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Lines: []LineInput{
			{AccountID: accounts[RoleCash].ID, Debit: 50},
			{AccountID: accounts[RoleRevenue].ID, Credit: 50},
		},
	})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrGatewayUnavailable)
}

func TestCreateAccountValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateAccount(ctx, CreateAccountInput{TenantID: 1, Code: "1000", Name: "Cash", Type: "WEIRD"})
	require.Error(t, err)

	created, err := svc.CreateAccount(ctx, CreateAccountInput{TenantID: 1, Code: "1000", Name: "Cash", Type: AccountTypeAsset})
	require.NoError(t, err)
	require.Equal(t, "USD", created.Currency)

	_, err = svc.CreateAccount(ctx, CreateAccountInput{TenantID: 1, Code: "1000", Name: "Petty Cash", Type: AccountTypeAsset})
	require.ErrorIs(t, err, ErrDuplicateCode)
}

func TestResolveRole(t *testing.T) {
	svc, _, _ := newTestService(t)
	accounts := seedAccounts(t, svc)
	ctx := context.Background()

	cash, err := svc.ResolveRole(ctx, 1, RoleCash)
	require.NoError(t, err)
	require.Equal(t, accounts[RoleCash].ID, cash.ID)

	_, err = svc.ResolveRole(ctx, 1, RoleWagesPayable)
	require.ErrorIs(t, err, ErrRoleAccountMissing)

	_, err = svc.ResolveRole(ctx, 2, RoleCash)
	require.ErrorIs(t, err, ErrRoleAccountMissing)
}
