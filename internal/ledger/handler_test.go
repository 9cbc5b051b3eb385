package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/harbor-books/harbor-books/internal/shared"
)

func newTestRouter(t *testing.T) (chi.Router, *Service, *memoryLedgerRepo) {
	t.Helper()
	repo := newMemoryLedgerRepo()
	svc := NewService(repo, &seqNumbers{}, nil)
	svc.WithNow(func() time.Time {
		return time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)
	})
	handler := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithTenant(req.Context(), 1)))
		})
	})
	handler.MountRoutes(r)
	return r, svc, repo
}

func TestHandlerCreateAndListAccounts(t *testing.T) {
	router, _, _ := newTestRouter(t)

	body := `{"code":"1000","name":"Cash","type":"ASSET","role":"CASH"}`
	req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created AccountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "1000", created.Code)
	require.Equal(t, "USD", created.Currency)
	require.True(t, created.IsActive)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/accounts", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var listed struct {
		Accounts []AccountResponse `json:"accounts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Accounts, 1)
}

func TestHandlerCreateAccountRejectsUnknownType(t *testing.T) {
	router, _, _ := newTestRouter(t)

	body := `{"code":"1000","name":"Cash","type":"CONTRA"}`
	req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerPostJournal(t *testing.T) {
	router, svc, _ := newTestRouter(t)
	accounts := seedAccounts(t, svc)

	payload := map[string]any{
		"date": "2026-04-01",
		"memo": "April services",
		"lines": []map[string]any{
			{"account_id": accounts[RoleAccountsReceivable].ID, "debit": 1000},
			{"account_id": accounts[RoleRevenue].ID, "credit": 1000},
		},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/journals", bytes.NewReader(body))
	req.Header.Set(IdempotencyKeyHeader, "manual:test:1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp TransactionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "JE-2026-0001", resp.Number)
	require.Equal(t, "2026-04-01", resp.Date)
	require.Len(t, resp.Lines, 2)
}

func TestHandlerPostJournalUnbalancedReturns422(t *testing.T) {
	router, svc, repo := newTestRouter(t)
	accounts := seedAccounts(t, svc)

	payload := map[string]any{
		"date": "2026-04-01",
		"lines": []map[string]any{
			{"account_id": accounts[RoleCash].ID, "debit": 100},
			{"account_id": accounts[RoleRevenue].ID, "credit": 90},
		},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/journals", bytes.NewReader(body)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Empty(t, repo.txns)
}

func TestHandlerReverseJournal(t *testing.T) {
	router, svc, _ := newTestRouter(t)
	accounts := seedAccounts(t, svc)

	original, err := svc.PostTransaction(context.Background(), PostingInput{
		TenantID: 1,
		Date:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Lines: []LineInput{
			{AccountID: accounts[RoleCash].ID, Debit: 100},
			{AccountID: accounts[RoleRevenue].ID, Credit: 100},
		},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/journals/1/reverse", bytes.NewBufferString(`{"memo":"entered twice"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp TransactionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Reverses)
	require.Equal(t, original.ID, *resp.Reverses)
	require.Equal(t, "entered twice", resp.Memo)
}

func TestHandlerReverseMissingJournalReturns404(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/journals/99/reverse", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
