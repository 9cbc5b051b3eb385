package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrGatewayUnavailable indicates the remote journal gateway rejected or
// failed the request; the posting engine falls back to the direct store.
var ErrGatewayUnavailable = errors.New("ledger: journal gateway unavailable")

// JournalGateway submits a create-journal request to a remote bookkeeping
// backend and returns the stored transaction with the assigned identifier.
type JournalGateway interface {
	CreateJournal(ctx context.Context, in PostingInput) (Transaction, error)
}

// GatewayClient talks to a REST journal gateway.
type GatewayClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewGatewayClient constructs a gateway client.
func NewGatewayClient(baseURL, apiKey string, timeout time.Duration) *GatewayClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GatewayClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type gatewayLine struct {
	AccountID int64   `json:"account_id"`
	Debit     float64 `json:"debit"`
	Credit    float64 `json:"credit"`
	Memo      string  `json:"memo,omitempty"`
}

type gatewayJournalRequest struct {
	TenantID       int64         `json:"tenant_id"`
	Date           string        `json:"date"`
	Memo           string        `json:"memo,omitempty"`
	Reference      string        `json:"reference,omitempty"`
	IdempotencyKey string        `json:"idempotency_key,omitempty"`
	SourceID       string        `json:"source_id,omitempty"`
	Lines          []gatewayLine `json:"lines"`
}

type gatewayJournalResponse struct {
	ID       int64     `json:"id"`
	Number   string    `json:"number"`
	PostedAt time.Time `json:"posted_at"`
}

// CreateJournal posts the journal to the gateway. Any transport failure or
// non-2xx response maps to ErrGatewayUnavailable so callers can fall back.
func (c *GatewayClient) CreateJournal(ctx context.Context, in PostingInput) (Transaction, error) {
	lines := make([]gatewayLine, 0, len(in.Lines))
	for _, line := range in.Lines {
		lines = append(lines, gatewayLine{
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
			Memo:      line.Memo,
		})
	}
	payload := gatewayJournalRequest{
		TenantID:       in.TenantID,
		Date:           in.Date.Format("2006-01-02"),
		Memo:           in.Memo,
		Reference:      in.Reference,
		IdempotencyKey: in.IdempotencyKey,
		SourceID:       in.SourceID.String(),
		Lines:          lines,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Transaction{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/journals", bytes.NewReader(body))
	if err != nil {
		return Transaction{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Transaction{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Transaction{}, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}
	var out gatewayJournalResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Transaction{}, fmt.Errorf("%w: decode response: %v", ErrGatewayUnavailable, err)
	}
	txn := Transaction{
		ID:             out.ID,
		TenantID:       in.TenantID,
		Number:         out.Number,
		Date:           in.Date,
		Memo:           in.Memo,
		Reference:      in.Reference,
		IdempotencyKey: in.IdempotencyKey,
		SourceID:       in.SourceID,
		Status:         StatusPosted,
		PostedAt:       out.PostedAt,
		Lines:          toEntries(out.ID, in.Lines),
	}
	return txn, nil
}
