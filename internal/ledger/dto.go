package ledger

import (
	"time"

	"github.com/google/uuid"
)

// CreateAccountRequest is the JSON payload for account creation.
type CreateAccountRequest struct {
	Code     string `json:"code" validate:"required,max=16"`
	Name     string `json:"name" validate:"required,max=128"`
	Type     string `json:"type" validate:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	Role     string `json:"role" validate:"omitempty,max=32"`
	Currency string `json:"currency" validate:"omitempty,len=3"`
}

// AccountResponse is the JSON shape of an account.
type AccountResponse struct {
	ID       int64   `json:"id"`
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Role     string  `json:"role,omitempty"`
	Currency string  `json:"currency"`
	Balance  float64 `json:"balance"`
	IsActive bool    `json:"is_active"`
}

// NewAccountResponse maps an Account to its JSON shape.
func NewAccountResponse(a Account) AccountResponse {
	return AccountResponse{
		ID:       a.ID,
		Code:     a.Code,
		Name:     a.Name,
		Type:     string(a.Type),
		Role:     string(a.Role),
		Currency: a.Currency,
		Balance:  Round2(a.Balance),
		IsActive: a.IsActive,
	}
}

// JournalLineRequest is one line of a manual posting request.
type JournalLineRequest struct {
	AccountID int64   `json:"account_id" validate:"required"`
	Debit     float64 `json:"debit" validate:"gte=0"`
	Credit    float64 `json:"credit" validate:"gte=0"`
	Memo      string  `json:"memo" validate:"max=256"`
}

// PostJournalRequest is the JSON payload for a manual posting.
type PostJournalRequest struct {
	Date      string               `json:"date" validate:"required,datetime=2006-01-02"`
	Memo      string               `json:"memo" validate:"max=256"`
	Reference string               `json:"reference" validate:"max=64"`
	Lines     []JournalLineRequest `json:"lines" validate:"required,min=2,dive"`
}

// ToPostingInput converts the request into engine input.
func (r PostJournalRequest) ToPostingInput(tenantID int64, idempotencyKey string) (PostingInput, error) {
	date, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return PostingInput{}, err
	}
	lines := make([]LineInput, 0, len(r.Lines))
	for _, line := range r.Lines {
		lines = append(lines, LineInput{
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
			Memo:      line.Memo,
		})
	}
	return PostingInput{
		TenantID:       tenantID,
		Date:           date,
		Memo:           r.Memo,
		Reference:      r.Reference,
		IdempotencyKey: idempotencyKey,
		SourceID:       uuid.New(),
		Lines:          lines,
	}, nil
}

// JournalLineResponse is one stored line.
type JournalLineResponse struct {
	AccountID int64   `json:"account_id"`
	Debit     float64 `json:"debit"`
	Credit    float64 `json:"credit"`
	Memo      string  `json:"memo,omitempty"`
}

// TransactionResponse is the JSON shape of a stored transaction.
type TransactionResponse struct {
	ID        int64                 `json:"id"`
	Number    string                `json:"number"`
	Date      string                `json:"date"`
	Memo      string                `json:"memo,omitempty"`
	Reference string                `json:"reference,omitempty"`
	Status    string                `json:"status"`
	Reverses  *int64                `json:"reverses_id,omitempty"`
	PostedAt  time.Time             `json:"posted_at"`
	Lines     []JournalLineResponse `json:"lines"`
}

// NewTransactionResponse maps a Transaction to its JSON shape.
func NewTransactionResponse(t Transaction) TransactionResponse {
	lines := make([]JournalLineResponse, 0, len(t.Lines))
	for _, line := range t.Lines {
		lines = append(lines, JournalLineResponse{
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
			Memo:      line.Memo,
		})
	}
	return TransactionResponse{
		ID:        t.ID,
		Number:    t.Number,
		Date:      t.Date.Format("2006-01-02"),
		Memo:      t.Memo,
		Reference: t.Reference,
		Status:    string(t.Status),
		Reverses:  t.ReversesID,
		PostedAt:  t.PostedAt,
		Lines:     lines,
	}
}
