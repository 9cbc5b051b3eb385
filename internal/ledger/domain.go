package ledger

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Valid reports whether the account type is a known category.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// DebitNatured reports whether debits increase the balance of this type.
func (t AccountType) DebitNatured() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// AccountRole tags structurally required accounts so posting adapters can
// resolve them without matching on display names.
type AccountRole string

const (
	RoleNone               AccountRole = ""
	RoleCash               AccountRole = "CASH"
	RoleAccountsReceivable AccountRole = "AR"
	RoleRevenue            AccountRole = "REVENUE"
	RoleTaxPayable         AccountRole = "TAX_PAYABLE"
	RoleSalaryExpense      AccountRole = "SALARY_EXPENSE"
	RoleTaxWithholding     AccountRole = "TAX_WITHHOLDING"
	RoleWagesPayable       AccountRole = "WAGES_PAYABLE"
)

// TransactionStatus enumerates journal lifecycle values.
type TransactionStatus string

const (
	StatusDraft  TransactionStatus = "DRAFT"
	StatusPosted TransactionStatus = "POSTED"
)

// balanceEpsilon absorbs float rounding when comparing debit and credit sums.
const balanceEpsilon = 0.01

// Account models a chart of accounts node. Balance is mutated only by the
// posting engine; everything else treats it as read-only.
type Account struct {
	ID        int64
	TenantID  int64
	Code      string
	Name      string
	Type      AccountType
	Role      AccountRole
	Currency  string
	Balance   float64
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transaction is an immutable, dated journal entry with balanced lines.
type Transaction struct {
	ID             int64
	TenantID       int64
	Number         string
	Date           time.Time
	Memo           string
	Reference      string
	IdempotencyKey string
	SourceID       uuid.UUID
	Status         TransactionStatus
	ReversesID     *int64
	PostedAt       time.Time
	CreatedAt      time.Time
	Lines          []Entry
}

// Entry stores a debit or credit amount for one account.
type Entry struct {
	ID            int64
	TransactionID int64
	AccountID     int64
	Debit         float64
	Credit        float64
	Memo          string
}

// CreateAccountInput groups fields required to add a CoA node.
type CreateAccountInput struct {
	TenantID int64
	Code     string
	Name     string
	Type     AccountType
	Role     AccountRole
	Currency string
}

// LineInput describes a journal line in a posting request.
type LineInput struct {
	AccountID int64
	Debit     float64
	Credit    float64
	Memo      string
}

// PostingInput groups fields required to post a transaction.
type PostingInput struct {
	TenantID       int64
	Date           time.Time
	Memo           string
	Reference      string
	IdempotencyKey string
	SourceID       uuid.UUID
	ActorID        int64
	Lines          []LineInput
}

// TransactionFilter narrows ledger queries.
type TransactionFilter struct {
	From   *time.Time
	To     *time.Time
	Status TransactionStatus
}

var (
	// ErrUnbalanced indicates debit and credit sums differ beyond epsilon.
	ErrUnbalanced = errors.New("ledger: transaction lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("ledger: transaction requires at least two lines")
	// ErrAccountNotFound indicates a referenced account is unknown for the tenant.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrAccountInactive indicates a referenced account is deactivated.
	ErrAccountInactive = errors.New("ledger: account inactive")
	// ErrDuplicateCode indicates an account code collision within the tenant.
	ErrDuplicateCode = errors.New("ledger: account code already exists")
	// ErrRoleAccountMissing indicates no account carries a required role.
	ErrRoleAccountMissing = errors.New("ledger: required role account not configured")
	// ErrTransactionNotFound indicates a missing journal entry.
	ErrTransactionNotFound = errors.New("ledger: transaction not found")
	// ErrInvalidStatus indicates the operation does not apply to the entry state.
	ErrInvalidStatus = errors.New("ledger: invalid status for operation")
	// ErrDuplicateKey indicates an idempotency key was already committed.
	ErrDuplicateKey = errors.New("ledger: idempotency key already used")
)

// Validate ensures posting input meets the engine's acceptance criteria.
// The balance check mirrors the commit-time invariant: sums must agree
// within balanceEpsilon.
func (in PostingInput) Validate() error {
	if in.TenantID == 0 {
		return errors.New("ledger: tenant required")
	}
	if in.Date.IsZero() {
		return errors.New("ledger: date required")
	}
	if len(in.Lines) < 2 {
		return ErrTooFewLines
	}
	var debit, credit float64
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return fmt.Errorf("ledger: line %d missing account", idx)
		}
		if line.Debit < 0 || line.Credit < 0 {
			return fmt.Errorf("ledger: line %d negative amount", idx)
		}
		if line.Debit > 0 && line.Credit > 0 {
			return fmt.Errorf("ledger: line %d cannot be both debit and credit", idx)
		}
		debit += line.Debit
		credit += line.Credit
	}
	if math.Abs(debit-credit) > balanceEpsilon {
		return ErrUnbalanced
	}
	return nil
}

// BalanceDelta computes the signed effect of a line on an account of the
// given type. Debits increase asset and expense balances; credits increase
// liability, equity and revenue balances.
func BalanceDelta(t AccountType, debit, credit float64) float64 {
	if t.DebitNatured() {
		return debit - credit
	}
	return credit - debit
}

// Round2 normalises a monetary amount to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
