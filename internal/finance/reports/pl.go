package reports

import "sort"

// BuildProfitAndLoss aggregates period activity into revenue and expense
// sections. Only movements inside the requested period count, so prior-year
// balances never leak into the statement.
func BuildProfitAndLoss(accounts []AccountBalance) ProfitAndLoss {
	revenue := ProfitAndLossSection{Label: "Revenue"}
	expense := ProfitAndLossSection{Label: "Expense"}

	for _, acc := range accounts {
		switch acc.Type {
		case "revenue":
			amount := acc.Credit.Sub(acc.Debit)
			if amount.IsZero() && acc.Debit.IsZero() && acc.Credit.IsZero() {
				continue
			}
			revenue.Accounts = append(revenue.Accounts, ProfitAndLossAccount{Code: acc.Code, Name: acc.Name, Amount: amount})
			revenue.Total = revenue.Total.Add(amount)
		case "expense":
			amount := acc.Debit.Sub(acc.Credit)
			if amount.IsZero() && acc.Debit.IsZero() && acc.Credit.IsZero() {
				continue
			}
			expense.Accounts = append(expense.Accounts, ProfitAndLossAccount{Code: acc.Code, Name: acc.Name, Amount: amount})
			expense.Total = expense.Total.Add(amount)
		}
	}

	sort.Slice(revenue.Accounts, func(i, j int) bool { return revenue.Accounts[i].Code < revenue.Accounts[j].Code })
	sort.Slice(expense.Accounts, func(i, j int) bool { return expense.Accounts[i].Code < expense.Accounts[j].Code })

	return ProfitAndLoss{
		Revenue:   revenue,
		Expense:   expense,
		NetIncome: revenue.Total.Sub(expense.Total),
	}
}
