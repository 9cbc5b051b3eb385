// Package integration translates business events from the host application
// into balanced journal postings. It owns no invoice or payroll state; it
// only reads event projections and submits through the posting engine.
package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harbor-books/harbor-books/internal/ledger"
)

// Ledger exposes the posting operation required by adapters.
type Ledger interface {
	PostTransaction(ctx context.Context, in ledger.PostingInput) (ledger.Transaction, error)
}

// Registry resolves structurally required accounts by role tag.
type Registry interface {
	ResolveRole(ctx context.Context, tenantID int64, role ledger.AccountRole) (ledger.Account, error)
}

// InvoiceIssuedEvent is the read-only invoice projection consumed on issuance.
type InvoiceIssuedEvent struct {
	InvoiceID int64
	TenantID  int64
	Number    string
	IssueDate time.Time
	Subtotal  float64
	Tax       float64
	Total     float64
}

// InvoicePaidEvent is consumed when an invoice transitions to paid.
type InvoicePaidEvent struct {
	InvoiceID int64
	TenantID  int64
	Number    string
	PaidAt    time.Time
	Total     float64
}

// PayrollRunEvent is consumed when a payroll run is finalised. Net pay is
// gross minus withholdings.
type PayrollRunEvent struct {
	RunID    int64
	TenantID int64
	PayDate  time.Time
	Gross    float64
	Withheld float64
}

// Hooks wires domain events into the general ledger.
type Hooks struct {
	ledger   Ledger
	registry Registry
}

// NewHooks constructs the posting adapters.
func NewHooks(l Ledger, registry Registry) *Hooks {
	return &Hooks{ledger: l, registry: registry}
}

// HandleInvoiceIssued posts accounts receivable against revenue and, when the
// invoice carries tax, a tax payable line.
func (h *Hooks) HandleInvoiceIssued(ctx context.Context, evt InvoiceIssuedEvent) (ledger.Transaction, error) {
	if evt.TenantID == 0 || evt.InvoiceID == 0 {
		return ledger.Transaction{}, errors.New("integration: invoice event missing identity")
	}
	if evt.Total <= 0 {
		return ledger.Transaction{}, fmt.Errorf("integration: invoice %s has non-positive total", evt.Number)
	}
	ar, err := h.registry.ResolveRole(ctx, evt.TenantID, ledger.RoleAccountsReceivable)
	if err != nil {
		return ledger.Transaction{}, err
	}
	revenue, err := h.registry.ResolveRole(ctx, evt.TenantID, ledger.RoleRevenue)
	if err != nil {
		return ledger.Transaction{}, err
	}
	lines := []ledger.LineInput{
		{AccountID: ar.ID, Debit: ledger.Round2(evt.Total)},
		{AccountID: revenue.ID, Credit: ledger.Round2(evt.Subtotal)},
	}
	if evt.Tax > 0 {
		tax, err := h.registry.ResolveRole(ctx, evt.TenantID, ledger.RoleTaxPayable)
		if err != nil {
			return ledger.Transaction{}, err
		}
		lines = append(lines, ledger.LineInput{AccountID: tax.ID, Credit: ledger.Round2(evt.Tax)})
	}
	input := ledger.PostingInput{
		TenantID:       evt.TenantID,
		Date:           evt.IssueDate,
		Memo:           fmt.Sprintf("Invoice %s issued", evt.Number),
		Reference:      evt.Number,
		IdempotencyKey: fmt.Sprintf("invoice:%d:issued", evt.InvoiceID),
		SourceID:       sourceID("INVOICE.ISSUED", evt.TenantID, evt.InvoiceID),
		Lines:          lines,
	}
	return h.ledger.PostTransaction(ctx, input)
}

// HandleInvoicePaid moves the receivable into cash for the full total.
func (h *Hooks) HandleInvoicePaid(ctx context.Context, evt InvoicePaidEvent) (ledger.Transaction, error) {
	if evt.TenantID == 0 || evt.InvoiceID == 0 {
		return ledger.Transaction{}, errors.New("integration: payment event missing identity")
	}
	if evt.Total <= 0 {
		return ledger.Transaction{}, fmt.Errorf("integration: payment for invoice %s has non-positive total", evt.Number)
	}
	cash, err := h.registry.ResolveRole(ctx, evt.TenantID, ledger.RoleCash)
	if err != nil {
		return ledger.Transaction{}, err
	}
	ar, err := h.registry.ResolveRole(ctx, evt.TenantID, ledger.RoleAccountsReceivable)
	if err != nil {
		return ledger.Transaction{}, err
	}
	amount := ledger.Round2(evt.Total)
	input := ledger.PostingInput{
		TenantID:       evt.TenantID,
		Date:           evt.PaidAt,
		Memo:           fmt.Sprintf("Invoice %s paid", evt.Number),
		Reference:      evt.Number,
		IdempotencyKey: fmt.Sprintf("invoice:%d:paid", evt.InvoiceID),
		SourceID:       sourceID("INVOICE.PAID", evt.TenantID, evt.InvoiceID),
		Lines: []ledger.LineInput{
			{AccountID: cash.ID, Debit: amount},
			{AccountID: ar.ID, Credit: amount},
		},
	}
	return h.ledger.PostTransaction(ctx, input)
}

// HandlePayrollRun expenses gross pay, credits withheld tax to its liability
// account and the remaining net pay to wages payable.
func (h *Hooks) HandlePayrollRun(ctx context.Context, evt PayrollRunEvent) (ledger.Transaction, error) {
	if evt.TenantID == 0 || evt.RunID == 0 {
		return ledger.Transaction{}, errors.New("integration: payroll event missing identity")
	}
	if evt.Gross <= 0 {
		return ledger.Transaction{}, errors.New("integration: payroll gross must be positive")
	}
	if evt.Withheld < 0 || evt.Withheld > evt.Gross {
		return ledger.Transaction{}, errors.New("integration: payroll withholding out of range")
	}
	salary, err := h.registry.ResolveRole(ctx, evt.TenantID, ledger.RoleSalaryExpense)
	if err != nil {
		return ledger.Transaction{}, err
	}
	wages, err := h.registry.ResolveRole(ctx, evt.TenantID, ledger.RoleWagesPayable)
	if err != nil {
		return ledger.Transaction{}, err
	}
	gross := ledger.Round2(evt.Gross)
	withheld := ledger.Round2(evt.Withheld)
	lines := []ledger.LineInput{
		{AccountID: salary.ID, Debit: gross},
	}
	if withheld > 0 {
		withholding, err := h.registry.ResolveRole(ctx, evt.TenantID, ledger.RoleTaxWithholding)
		if err != nil {
			return ledger.Transaction{}, err
		}
		lines = append(lines, ledger.LineInput{AccountID: withholding.ID, Credit: withheld})
	}
	lines = append(lines, ledger.LineInput{AccountID: wages.ID, Credit: ledger.Round2(gross - withheld)})
	input := ledger.PostingInput{
		TenantID:       evt.TenantID,
		Date:           evt.PayDate,
		Memo:           fmt.Sprintf("Payroll run %d", evt.RunID),
		IdempotencyKey: fmt.Sprintf("payroll:%d", evt.RunID),
		SourceID:       sourceID("PAYROLL.RUN", evt.TenantID, evt.RunID),
		Lines:          lines,
	}
	return h.ledger.PostTransaction(ctx, input)
}

// sourceID derives a deterministic id so replaying the same business event
// produces the same posting identity.
func sourceID(kind string, tenantID, id int64) uuid.UUID {
	return uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("%s:%d:%d", kind, tenantID, id)))
}
