package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/report"
	"github.com/mmynk/splitledger/internal/storage"
)

func newMembersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "members",
		Short: "List group members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			members := a.members.Members()
			if a.jsonOutput() {
				return report.WriteJSON(cmd.OutOrStdout(), members)
			}
			for _, m := range members {
				if err := writeLine(cmd.OutOrStdout(), "%s", m); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newAddCmd(a *app) *cobra.Command {
	var (
		date        string
		amount      float64
		payer       string
		description string
		sharers     []string
		all         bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new expense",
		Example: `  splitledger add --amount 300 --payer "Shubham Jana" --all --desc Dinner
  splitledger add --amount 90 --payer "Krishna Kumar" --sharer "Krishna Kumar" --sharer "Suvajit Jana"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all {
				sharers = a.members.Members()
			}
			for i := range sharers {
				sharers[i] = strings.TrimSpace(sharers[i])
			}

			expense := models.Expense{
				Date:        date,
				Amount:      amount,
				Payer:       strings.TrimSpace(payer),
				Description: strings.TrimSpace(description),
				Sharers:     sharers,
			}
			if err := calculator.ValidateExpense(expense, a.members); err != nil {
				return err
			}
			if err := a.store.CreateExpense(cmd.Context(), &expense); err != nil {
				return fmt.Errorf("save expense: %w", err)
			}

			if a.jsonOutput() {
				return report.WriteJSON(cmd.OutOrStdout(), report.NewExpenseView(expense))
			}
			return writeLine(cmd.OutOrStdout(), "Added expense %s: %s paid %s, shared by %s",
				expense.ID, expense.Payer, a.format.Amount(expense.Amount), report.Sharers(expense.Sharers))
		},
	}

	cmd.Flags().StringVar(&date, "date", time.Now().Format(models.DateLayout), "Expense date (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&amount, "amount", 0, "Total amount paid")
	cmd.Flags().StringVar(&payer, "payer", "", "Member who paid")
	cmd.Flags().StringVar(&description, "desc", "", "Description")
	cmd.Flags().StringArrayVar(&sharers, "sharer", nil, "Member sharing the cost (repeatable)")
	cmd.Flags().BoolVar(&all, "all", false, "Share the cost between every member")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("payer")
	cmd.MarkFlagsMutuallyExclusive("sharer", "all")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <expense-id>",
		Short: "Move an expense to the archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archived, err := a.store.DeleteExpense(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("expense %s not found", args[0])
				}
				return fmt.Errorf("delete expense: %w", err)
			}
			if a.jsonOutput() {
				return report.WriteJSON(cmd.OutOrStdout(), report.NewArchivedView(*archived))
			}
			return writeLine(cmd.OutOrStdout(), "Archived expense %s", archived.ID)
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List active expenses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			expenses, err := a.store.ListExpenses(cmd.Context())
			if err != nil {
				return fmt.Errorf("list expenses: %w", err)
			}
			if a.jsonOutput() {
				views := make([]report.ExpenseView, len(expenses))
				for i, e := range expenses {
					views[i] = report.NewExpenseView(e)
				}
				return report.WriteJSON(cmd.OutOrStdout(), views)
			}
			return a.format.WriteHistory(cmd.OutOrStdout(), expenses)
		},
	}
}

func newArchiveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "List deleted expenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			archived, err := a.store.ListArchived(cmd.Context())
			if err != nil {
				return fmt.Errorf("list archive: %w", err)
			}
			if a.jsonOutput() {
				views := make([]report.ExpenseView, len(archived))
				for i, e := range archived {
					views[i] = report.NewArchivedView(e)
				}
				return report.WriteJSON(cmd.OutOrStdout(), views)
			}
			return a.format.WriteArchive(cmd.OutOrStdout(), archived)
		},
	}
}

func newBalancesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "balances",
		Short: "Show what each member paid and their net result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := a.buildReport(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return report.WriteJSON(cmd.OutOrStdout(), report.NewBalanceViews(r.Balances))
			}
			return a.format.WriteBalances(cmd.OutOrStdout(), r.Balances)
		},
	}
}

func newSettleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "settle",
		Short: "Show the payments that settle every balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := a.buildReport(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return report.WriteJSON(cmd.OutOrStdout(), report.NewView(r))
			}
			return a.format.WriteSettlement(cmd.OutOrStdout(), r.Settlement)
		},
	}
}

func newClearCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Archive every active expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to clear all expenses without --yes")
			}
			n, err := a.store.ClearExpenses(cmd.Context())
			if err != nil {
				return fmt.Errorf("clear expenses: %w", err)
			}
			if a.jsonOutput() {
				return report.WriteJSON(cmd.OutOrStdout(), map[string]int{"archived": n})
			}
			return writeLine(cmd.OutOrStdout(), "Archived %d expenses", n)
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm clearing all expenses")
	return cmd
}
