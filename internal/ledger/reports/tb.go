package reports

import (
	"sort"

	"github.com/harbor-books/harbor-books/internal/ledger"
)

// TrialBalanceRow lists one account's balance in its natural column.
type TrialBalanceRow struct {
	Code   string
	Name   string
	Type   ledger.AccountType
	Debit  float64
	Credit float64
}

// TrialBalance is the reconciliation report over the full chart of accounts.
// TotalDebit and TotalCredit must agree for any sequence of valid postings.
type TrialBalance struct {
	Rows        []TrialBalanceRow
	TotalDebit  float64
	TotalCredit float64
}

// BuildTrialBalance places each account's running balance in the debit column
// when the account is debit-natured and the balance positive, otherwise in
// the credit column. A negative balance flips to the opposite column.
func BuildTrialBalance(accounts []ledger.Account) TrialBalance {
	result := TrialBalance{}
	for _, acc := range accounts {
		row := TrialBalanceRow{Code: acc.Code, Name: acc.Name, Type: acc.Type}
		balance := ledger.Round2(acc.Balance)
		if balance == 0 && !acc.IsActive {
			continue
		}
		if acc.Type.DebitNatured() == (balance >= 0) {
			row.Debit = abs(balance)
		} else {
			row.Credit = abs(balance)
		}
		result.Rows = append(result.Rows, row)
		result.TotalDebit += row.Debit
		result.TotalCredit += row.Credit
	}
	sort.Slice(result.Rows, func(i, j int) bool { return result.Rows[i].Code < result.Rows[j].Code })
	result.TotalDebit = ledger.Round2(result.TotalDebit)
	result.TotalCredit = ledger.Round2(result.TotalCredit)
	return result
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
