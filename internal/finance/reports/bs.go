package reports

import (
	"sort"

	"github.com/shopspring/decimal"
)

// BuildBalanceSheet aggregates balances into assets, liabilities, and equity
// sections. Revenue and expense closings roll into equity as retained income
// so both sides of the statement stay equal.
func BuildBalanceSheet(accounts []AccountBalance) BalanceSheet {
	assets := BalanceSheetSection{Label: "Assets"}
	liabilities := BalanceSheetSection{Label: "Liabilities"}
	equity := BalanceSheetSection{Label: "Equity"}

	retained := decimal.Zero
	for _, acc := range accounts {
		balance := acc.Closing()
		row := BalanceSheetAccount{Code: acc.Code, Name: acc.Name, Balance: balance}
		switch acc.Type {
		case "asset":
			assets.Accounts = append(assets.Accounts, row)
			assets.Total = assets.Total.Add(row.Balance)
		case "liability":
			liabilities.Accounts = append(liabilities.Accounts, row)
			liabilities.Total = liabilities.Total.Add(row.Balance)
		case "equity":
			equity.Accounts = append(equity.Accounts, row)
			equity.Total = equity.Total.Add(row.Balance)
		case "revenue":
			retained = retained.Add(balance)
		case "expense":
			retained = retained.Sub(balance)
		}
	}

	if !retained.IsZero() {
		equity.Accounts = append(equity.Accounts, BalanceSheetAccount{
			Name:    "Net Income",
			Balance: retained,
		})
		equity.Total = equity.Total.Add(retained)
	}

	sort.Slice(assets.Accounts, func(i, j int) bool { return assets.Accounts[i].Code < assets.Accounts[j].Code })
	sort.Slice(liabilities.Accounts, func(i, j int) bool { return liabilities.Accounts[i].Code < liabilities.Accounts[j].Code })
	sort.Slice(equity.Accounts, func(i, j int) bool { return equity.Accounts[i].Code < equity.Accounts[j].Code })

	return BalanceSheet{
		Assets:                    assets,
		Liabilities:               liabilities,
		Equity:                    equity,
		TotalLiabilitiesAndEquity: liabilities.Total.Add(equity.Total),
	}
}
