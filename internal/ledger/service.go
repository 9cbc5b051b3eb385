package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harbor-books/harbor-books/internal/shared"
)

// JournalNumberPrefix is the numbering prefix for posted journal entries.
const JournalNumberPrefix = "JE"

// RepositoryPort abstracts the ledger storage behind the posting engine.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	CreateAccount(ctx context.Context, in CreateAccountInput) (Account, error)
	ListAccounts(ctx context.Context, tenantID int64, includeInactive bool) ([]Account, error)
	DeactivateAccount(ctx context.Context, tenantID, accountID int64) error
	GetAccountByRole(ctx context.Context, tenantID int64, role AccountRole) (Account, error)
	QueryTransactions(ctx context.Context, tenantID int64, filter TransactionFilter) ([]Transaction, error)
	GetTransaction(ctx context.Context, tenantID, txnID int64) (Transaction, error)
}

// NumberSource issues sequential human-readable identifiers.
type NumberSource interface {
	NextNumber(ctx context.Context, tenantID int64, prefix string) (string, error)
}

// AuditPort records ledger events for the host application's audit trail.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service is the posting engine: the single authority that turns a proposed
// transaction into a durable, balance-consistent fact.
type Service struct {
	repo     RepositoryPort
	numbers  NumberSource
	audit    AuditPort
	gateway  JournalGateway
	onCommit func()
	now      func() time.Time
}

// NewService constructs the posting engine.
func NewService(repo RepositoryPort, numbers NumberSource, audit AuditPort) *Service {
	return &Service{repo: repo, numbers: numbers, audit: audit, now: time.Now}
}

// WithGateway routes postings through a remote journal gateway first. On
// gateway failure the engine falls back to the direct store.
func (s *Service) WithGateway(gateway JournalGateway) {
	s.gateway = gateway
}

// WithCommitHook registers a callback invoked after every successful commit.
// The statement layer uses it to drop stale cached reports.
func (s *Service) WithCommitHook(fn func()) {
	s.onCommit = fn
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateAccount adds a chart of accounts node for the tenant.
func (s *Service) CreateAccount(ctx context.Context, in CreateAccountInput) (Account, error) {
	if in.TenantID == 0 {
		return Account{}, errors.New("ledger: tenant required")
	}
	if strings.TrimSpace(in.Code) == "" || strings.TrimSpace(in.Name) == "" {
		return Account{}, errors.New("ledger: account code and name required")
	}
	if !in.Type.Valid() {
		return Account{}, fmt.Errorf("ledger: unknown account type %q", in.Type)
	}
	if in.Currency == "" {
		in.Currency = "USD"
	}
	return s.repo.CreateAccount(ctx, in)
}

// ListAccounts returns the tenant's chart of accounts ordered by code.
func (s *Service) ListAccounts(ctx context.Context, tenantID int64, includeInactive bool) ([]Account, error) {
	return s.repo.ListAccounts(ctx, tenantID, includeInactive)
}

// DeactivateAccount soft-disables an account; it stays resolvable for history.
func (s *Service) DeactivateAccount(ctx context.Context, tenantID, accountID int64) error {
	return s.repo.DeactivateAccount(ctx, tenantID, accountID)
}

// ResolveRole finds the tenant's account carrying a structural role tag.
func (s *Service) ResolveRole(ctx context.Context, tenantID int64, role AccountRole) (Account, error) {
	return s.repo.GetAccountByRole(ctx, tenantID, role)
}

// ListTransactions returns the tenant's journal, optionally filtered.
func (s *Service) ListTransactions(ctx context.Context, tenantID int64, filter TransactionFilter) ([]Transaction, error) {
	return s.repo.QueryTransactions(ctx, tenantID, filter)
}

// GetTransaction loads one journal entry with its lines.
func (s *Service) GetTransaction(ctx context.Context, tenantID, txnID int64) (Transaction, error) {
	return s.repo.GetTransaction(ctx, tenantID, txnID)
}

// PostTransaction validates and atomically commits a transaction: the journal
// entry, its lines, and every referenced account's balance move together or
// not at all. A replayed idempotency key returns the originally committed
// transaction without posting again.
func (s *Service) PostTransaction(ctx context.Context, in PostingInput) (Transaction, error) {
	if err := in.Validate(); err != nil {
		return Transaction{}, err
	}
	if s.gateway != nil {
		if txn, err := s.gateway.CreateJournal(ctx, in); err == nil {
			s.recordAudit(ctx, in.ActorID, "transaction.post", txn)
			return txn, nil
		} else if !errors.Is(err, ErrGatewayUnavailable) {
			return Transaction{}, err
		}
		// Gateway unreachable; take the direct path.
	}
	var (
		entry    Transaction
		replayed bool
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if in.IdempotencyKey != "" {
			existing, err := tx.GetTransactionByKey(ctx, in.TenantID, in.IdempotencyKey)
			if err == nil {
				full, err := tx.GetTransactionWithLines(ctx, in.TenantID, existing.ID)
				if err != nil {
					return err
				}
				entry = full
				replayed = true
				return nil
			}
			if !errors.Is(err, ErrTransactionNotFound) {
				return err
			}
		}
		committed, err := s.commit(ctx, tx, in, nil)
		if err != nil {
			return err
		}
		entry = committed
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			// Lost the insert race to a concurrent retry; surface its result.
			return s.replay(ctx, in.TenantID, in.IdempotencyKey)
		}
		return Transaction{}, err
	}
	if !replayed {
		s.recordAudit(ctx, in.ActorID, "transaction.post", entry)
		s.notifyCommit()
	}
	return entry, nil
}

// ReverseTransaction posts a new entry with debit and credit swapped on every
// line of the original. History is never edited; this is the only correction
// mechanism.
func (s *Service) ReverseTransaction(ctx context.Context, tenantID, txnID, actorID int64, memo string) (Transaction, error) {
	if txnID == 0 {
		return Transaction{}, errors.New("ledger: transaction id required")
	}
	var reversal Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetTransactionWithLines(ctx, tenantID, txnID)
		if err != nil {
			return err
		}
		if original.Status != StatusPosted {
			return ErrInvalidStatus
		}
		input := PostingInput{
			TenantID: tenantID,
			Date:     s.now(),
			Memo:     reversalMemo(memo, original.Number),
			SourceID: uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("REVERSAL:%d:%d", tenantID, original.ID))),
			ActorID:  actorID,
			Lines:    reverseLines(original.Lines),
		}
		committed, err := s.commit(ctx, tx, input, &original.ID)
		if err != nil {
			return err
		}
		reversal = committed
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}
	s.recordAudit(ctx, actorID, "transaction.reverse", reversal)
	s.notifyCommit()
	return reversal, nil
}

// commit performs the all-or-nothing posting inside an open transaction:
// resolve every account, compute signed deltas per the sign rule, append the
// journal entry and apply every delta.
func (s *Service) commit(ctx context.Context, tx TxRepository, in PostingInput, reversesID *int64) (Transaction, error) {
	deltas := make(map[int64]float64)
	order := make([]int64, 0, len(in.Lines))
	for _, line := range in.Lines {
		account, err := tx.GetAccount(ctx, in.TenantID, line.AccountID)
		if err != nil {
			return Transaction{}, err
		}
		if !account.IsActive {
			return Transaction{}, ErrAccountInactive
		}
		if _, seen := deltas[account.ID]; !seen {
			order = append(order, account.ID)
		}
		deltas[account.ID] += BalanceDelta(account.Type, line.Debit, line.Credit)
	}
	number, err := s.numbers.NextNumber(ctx, in.TenantID, JournalNumberPrefix)
	if err != nil {
		return Transaction{}, err
	}
	entry, err := tx.InsertTransaction(ctx, in, number, reversesID)
	if err != nil {
		return Transaction{}, err
	}
	if err := tx.InsertLines(ctx, entry.ID, in.Lines); err != nil {
		return Transaction{}, err
	}
	for _, accountID := range order {
		if err := tx.ApplyBalanceDelta(ctx, in.TenantID, accountID, Round2(deltas[accountID])); err != nil {
			return Transaction{}, err
		}
	}
	entry.Lines = toEntries(entry.ID, in.Lines)
	return entry, nil
}

func (s *Service) replay(ctx context.Context, tenantID int64, key string) (Transaction, error) {
	var entry Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetTransactionByKey(ctx, tenantID, key)
		if err != nil {
			return err
		}
		full, err := tx.GetTransactionWithLines(ctx, tenantID, existing.ID)
		if err != nil {
			return err
		}
		entry = full
		return nil
	})
	return entry, err
}

func (s *Service) notifyCommit() {
	if s.onCommit != nil {
		s.onCommit()
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entry Transaction) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		TenantID: entry.TenantID,
		ActorID:  actorID,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", entry.ID),
		Meta: map[string]any{
			"number":    entry.Number,
			"reference": entry.Reference,
			"lines":     len(entry.Lines),
		},
		At: s.now(),
	})
}

func reverseLines(lines []Entry) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineInput{
			AccountID: line.AccountID,
			Debit:     line.Credit,
			Credit:    line.Debit,
			Memo:      line.Memo,
		})
	}
	return out
}

func toEntries(txnID int64, lines []LineInput) []Entry {
	out := make([]Entry, 0, len(lines))
	for _, line := range lines {
		out = append(out, Entry{
			TransactionID: txnID,
			AccountID:     line.AccountID,
			Debit:         line.Debit,
			Credit:        line.Credit,
			Memo:          line.Memo,
		})
	}
	return out
}

func reversalMemo(memo, number string) string {
	if memo != "" {
		return memo
	}
	return fmt.Sprintf("Reversal of %s", number)
}
