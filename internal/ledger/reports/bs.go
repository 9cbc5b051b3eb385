package reports

import (
	"sort"

	"github.com/harbor-books/harbor-books/internal/ledger"
)

// BalanceSheetAccount summarises an account for assets, liabilities, or equity.
type BalanceSheetAccount struct {
	Code    string
	Name    string
	Balance float64
}

// BalanceSheetSection contains the accounts and total for a classification.
type BalanceSheetSection struct {
	Label    string
	Accounts []BalanceSheetAccount
	Total    float64
}

// BalanceSheet is the structured response for the balance sheet report.
type BalanceSheet struct {
	Assets                    BalanceSheetSection
	Liabilities               BalanceSheetSection
	Equity                    BalanceSheetSection
	TotalAssets               float64
	TotalLiabilitiesAndEquity float64
}

// BuildBalanceSheet reconstructs each account's balance from posted movement
// up to the as-of date, so a past date yields an accurate historical
// snapshot instead of the live cumulative balance.
func BuildBalanceSheet(rows []ledger.ActivityRow) BalanceSheet {
	assets := BalanceSheetSection{Label: "Assets"}
	liabilities := BalanceSheetSection{Label: "Liabilities"}
	equity := BalanceSheetSection{Label: "Equity"}

	for _, row := range rows {
		balance := ledger.Round2(ledger.BalanceDelta(row.Type, row.Debit, row.Credit))
		account := BalanceSheetAccount{Code: row.Code, Name: row.Name, Balance: balance}
		switch row.Type {
		case ledger.AccountTypeAsset:
			assets.Accounts = append(assets.Accounts, account)
			assets.Total += balance
		case ledger.AccountTypeLiability:
			liabilities.Accounts = append(liabilities.Accounts, account)
			liabilities.Total += balance
		case ledger.AccountTypeEquity:
			equity.Accounts = append(equity.Accounts, account)
			equity.Total += balance
		}
	}

	for _, section := range []*BalanceSheetSection{&assets, &liabilities, &equity} {
		sort.Slice(section.Accounts, func(i, j int) bool { return section.Accounts[i].Code < section.Accounts[j].Code })
		section.Total = ledger.Round2(section.Total)
	}

	return BalanceSheet{
		Assets:                    assets,
		Liabilities:               liabilities,
		Equity:                    equity,
		TotalAssets:               assets.Total,
		TotalLiabilitiesAndEquity: ledger.Round2(liabilities.Total + equity.Total),
	}
}
