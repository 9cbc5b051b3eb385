package reports

import (
	"testing"

	"github.com/harbor-books/harbor-books/internal/ledger"
)

func TestBuildTrialBalanceReconciles(t *testing.T) {
	accounts := []ledger.Account{
		{Code: "4000", Name: "Service Revenue", Type: ledger.AccountTypeRevenue, Balance: 900, IsActive: true},
		{Code: "1100", Name: "Accounts Receivable", Type: ledger.AccountTypeAsset, Balance: 1000, IsActive: true},
		{Code: "2100", Name: "Sales Tax Payable", Type: ledger.AccountTypeLiability, Balance: 100, IsActive: true},
	}

	tb := BuildTrialBalance(accounts)
	if tb.TotalDebit != tb.TotalCredit {
		t.Fatalf("trial balance out of balance: debit %v credit %v", tb.TotalDebit, tb.TotalCredit)
	}
	if tb.TotalDebit != 1000 {
		t.Fatalf("TotalDebit = %v, want 1000", tb.TotalDebit)
	}
	if len(tb.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(tb.Rows))
	}
	if tb.Rows[0].Code != "1100" || tb.Rows[0].Debit != 1000 {
		t.Errorf("row 0 = %+v, want AR debit 1000", tb.Rows[0])
	}
	if tb.Rows[1].Credit != 100 {
		t.Errorf("row 1 = %+v, want tax credit 100", tb.Rows[1])
	}
}

func TestBuildTrialBalanceNegativeBalanceFlipsColumn(t *testing.T) {
	accounts := []ledger.Account{
		{Code: "1000", Name: "Cash", Type: ledger.AccountTypeAsset, Balance: -250, IsActive: true},
		{Code: "3000", Name: "Owner Equity", Type: ledger.AccountTypeEquity, Balance: -250, IsActive: true},
	}

	tb := BuildTrialBalance(accounts)
	if tb.Rows[0].Credit != 250 || tb.Rows[0].Debit != 0 {
		t.Errorf("overdrawn asset should appear in credit column, got %+v", tb.Rows[0])
	}
	if tb.Rows[1].Debit != 250 {
		t.Errorf("negative equity should appear in debit column, got %+v", tb.Rows[1])
	}
}

func TestBuildTrialBalanceSkipsZeroInactive(t *testing.T) {
	accounts := []ledger.Account{
		{Code: "1000", Name: "Cash", Type: ledger.AccountTypeAsset, Balance: 10, IsActive: true},
		{Code: "1900", Name: "Old Clearing", Type: ledger.AccountTypeAsset, Balance: 0, IsActive: false},
		{Code: "2900", Name: "Old Loan", Type: ledger.AccountTypeLiability, Balance: 10, IsActive: false},
	}

	tb := BuildTrialBalance(accounts)
	if len(tb.Rows) != 2 {
		t.Fatalf("rows = %d, want 2 (zero-balance inactive skipped)", len(tb.Rows))
	}
	for _, row := range tb.Rows {
		if row.Code == "1900" {
			t.Error("zero-balance inactive account included")
		}
	}
}

func TestBuildProfitAndLoss(t *testing.T) {
	rows := []ledger.ActivityRow{
		{Code: "4000", Name: "Service Revenue", Type: ledger.AccountTypeRevenue, Debit: 100, Credit: 2000},
		{Code: "5000", Name: "Rent Expense", Type: ledger.AccountTypeExpense, Debit: 600, Credit: 0},
		{Code: "5100", Name: "Payroll Expense", Type: ledger.AccountTypeExpense, Debit: 900, Credit: 0},
		{Code: "1000", Name: "Cash", Type: ledger.AccountTypeAsset, Debit: 5000, Credit: 3000},
		{Code: "4100", Name: "Unused Revenue", Type: ledger.AccountTypeRevenue, Debit: 0, Credit: 0},
	}

	pl := BuildProfitAndLoss(rows)
	if pl.Revenue.Total != 1900 {
		t.Errorf("revenue total = %v, want 1900", pl.Revenue.Total)
	}
	if pl.Expense.Total != 1500 {
		t.Errorf("expense total = %v, want 1500", pl.Expense.Total)
	}
	if pl.NetIncome != 400 {
		t.Errorf("net income = %v, want 400", pl.NetIncome)
	}
	if len(pl.Revenue.Accounts) != 1 {
		t.Errorf("revenue accounts = %d, want 1 (zero movement skipped)", len(pl.Revenue.Accounts))
	}
	if len(pl.Expense.Accounts) != 2 || pl.Expense.Accounts[0].Code != "5000" {
		t.Errorf("expense accounts unsorted or wrong: %+v", pl.Expense.Accounts)
	}
}

func TestBuildBalanceSheet(t *testing.T) {
	rows := []ledger.ActivityRow{
		{Code: "1000", Name: "Cash", Type: ledger.AccountTypeAsset, Debit: 1500, Credit: 500},
		{Code: "1100", Name: "Accounts Receivable", Type: ledger.AccountTypeAsset, Debit: 1000, Credit: 1000},
		{Code: "2100", Name: "Sales Tax Payable", Type: ledger.AccountTypeLiability, Debit: 0, Credit: 100},
		{Code: "3000", Name: "Owner Equity", Type: ledger.AccountTypeEquity, Debit: 0, Credit: 900},
	}

	bs := BuildBalanceSheet(rows)
	if bs.TotalAssets != 1000 {
		t.Errorf("total assets = %v, want 1000", bs.TotalAssets)
	}
	if bs.TotalLiabilitiesAndEquity != 1000 {
		t.Errorf("liabilities+equity = %v, want 1000", bs.TotalLiabilitiesAndEquity)
	}
	if len(bs.Assets.Accounts) != 2 {
		t.Errorf("asset accounts = %d, want 2", len(bs.Assets.Accounts))
	}
	if bs.Assets.Accounts[1].Balance != 0 {
		t.Errorf("fully collected AR should be zero, got %v", bs.Assets.Accounts[1].Balance)
	}
}
