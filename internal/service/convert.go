package service

import (
	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/pkg/api"
)

func toAPIExpense(e models.Expense) *api.Expense {
	return &api.Expense{
		ID:          e.ID,
		Date:        e.Date,
		Amount:      e.Amount,
		Payer:       e.Payer,
		Description: e.Description,
		Sharers:     append([]string{}, e.Sharers...),
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
	}
}

func toAPIArchived(a models.ArchivedExpense) *api.Expense {
	e := toAPIExpense(a.Expense)
	e.DeletedAt = a.DeletedAt
	return e
}

func toAPIBalances(sheet *calculator.BalanceSheet) []*api.Balance {
	members := sheet.Members()
	out := make([]*api.Balance, len(members))
	for i, b := range members {
		out[i] = &api.Balance{
			Member:     b.Member,
			TotalPaid:  calculator.Round2(b.TotalPaid),
			NetBalance: b.DisplayNet(),
			Standing:   b.Standing().String(),
		}
	}
	return out
}

func toAPITransfers(transfers []calculator.Transfer) []*api.Transfer {
	out := make([]*api.Transfer, len(transfers))
	for i, t := range transfers {
		out[i] = &api.Transfer{From: t.From, To: t.To, Amount: t.Amount}
	}
	return out
}

func toAPIUser(u *models.User) *api.User {
	return &api.User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}
