package reports

import (
	"sort"

	"github.com/harbor-books/harbor-books/internal/ledger"
)

// ProfitAndLossAccount represents a revenue or expense account summary.
type ProfitAndLossAccount struct {
	Code   string
	Name   string
	Amount float64
}

// ProfitAndLossSection groups accounts by nature.
type ProfitAndLossSection struct {
	Label    string
	Accounts []ProfitAndLossAccount
	Total    float64
}

// ProfitAndLoss contains the structured output for the report. It is derived
// from a period-bounded transaction scan, never from live balances, so the
// figures are scoped to the requested range.
type ProfitAndLoss struct {
	Revenue   ProfitAndLossSection
	Expense   ProfitAndLossSection
	NetIncome float64
}

// BuildProfitAndLoss aggregates posted movement into revenue and expense
// sections. Revenue accumulates credit minus debit, expenses the reverse.
func BuildProfitAndLoss(rows []ledger.ActivityRow) ProfitAndLoss {
	revenue := ProfitAndLossSection{Label: "Revenue"}
	expense := ProfitAndLossSection{Label: "Expenses"}

	for _, row := range rows {
		switch row.Type {
		case ledger.AccountTypeRevenue:
			amount := ledger.Round2(row.Credit - row.Debit)
			if amount == 0 {
				continue
			}
			revenue.Accounts = append(revenue.Accounts, ProfitAndLossAccount{Code: row.Code, Name: row.Name, Amount: amount})
			revenue.Total += amount
		case ledger.AccountTypeExpense:
			amount := ledger.Round2(row.Debit - row.Credit)
			if amount == 0 {
				continue
			}
			expense.Accounts = append(expense.Accounts, ProfitAndLossAccount{Code: row.Code, Name: row.Name, Amount: amount})
			expense.Total += amount
		}
	}

	sort.Slice(revenue.Accounts, func(i, j int) bool { return revenue.Accounts[i].Code < revenue.Accounts[j].Code })
	sort.Slice(expense.Accounts, func(i, j int) bool { return expense.Accounts[i].Code < expense.Accounts[j].Code })

	revenue.Total = ledger.Round2(revenue.Total)
	expense.Total = ledger.Round2(expense.Total)
	return ProfitAndLoss{
		Revenue:   revenue,
		Expense:   expense,
		NetIncome: ledger.Round2(revenue.Total - expense.Total),
	}
}
