package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/report"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/pkg/api"
	"github.com/mmynk/splitledger/pkg/api/apiconnect"
)

var _ apiconnect.LedgerServiceHandler = (*LedgerService)(nil)

// LedgerService implements the Connect LedgerService.
type LedgerService struct {
	store  storage.ExpenseStore
	roster *calculator.Roster
	logger *slog.Logger
}

// NewLedgerService creates a new LedgerService over the given store and roster.
func NewLedgerService(store storage.ExpenseStore, roster *calculator.Roster, logger *slog.Logger) *LedgerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerService{store: store, roster: roster, logger: logger}
}

// ListMembers returns the roster in order.
func (s *LedgerService) ListMembers(ctx context.Context, req *connect.Request[api.ListMembersRequest]) (*connect.Response[api.ListMembersResponse], error) {
	return connect.NewResponse(&api.ListMembersResponse{Members: s.roster.Members()}), nil
}

// AddExpense validates and stores a new expense.
func (s *LedgerService) AddExpense(ctx context.Context, req *connect.Request[api.AddExpenseRequest]) (*connect.Response[api.AddExpenseResponse], error) {
	sharers := make([]string, len(req.Msg.Sharers))
	for i, name := range req.Msg.Sharers {
		sharers[i] = strings.TrimSpace(name)
	}
	expense := models.Expense{
		Date:        strings.TrimSpace(req.Msg.Date),
		Amount:      req.Msg.Amount,
		Payer:       strings.TrimSpace(req.Msg.Payer),
		Description: strings.TrimSpace(req.Msg.Description),
		Sharers:     sharers,
		CreatedBy:   middleware.GetUserID(ctx),
	}

	if err := calculator.ValidateExpense(expense, s.roster); err != nil {
		s.logger.Warn("AddExpense rejected", "payer", expense.Payer, "amount", expense.Amount, "error", err)
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	if err := s.store.CreateExpense(ctx, &expense); err != nil {
		s.logger.Error("AddExpense failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("failed to save expense: %w", err))
	}

	s.logger.Info("Expense added",
		"expense_id", expense.ID,
		"payer", expense.Payer,
		"amount", expense.Amount,
		"sharers", len(expense.Sharers),
		"created_by", expense.CreatedBy,
	)
	return connect.NewResponse(&api.AddExpenseResponse{Expense: toAPIExpense(expense)}), nil
}

// DeleteExpense moves an expense to the archive.
func (s *LedgerService) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	id := strings.TrimSpace(req.Msg.ID)
	if id == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("id is required"))
	}

	archived, err := s.store.DeleteExpense(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("expense %s not found", id))
		}
		s.logger.Error("DeleteExpense failed", "expense_id", id, "error", err)
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("failed to delete expense: %w", err))
	}

	s.logger.Info("Expense archived", "expense_id", id, "user_id", middleware.GetUserID(ctx))
	return connect.NewResponse(&api.DeleteExpenseResponse{Archived: toAPIArchived(*archived)}), nil
}

// ListExpenses returns active expenses, newest first.
func (s *LedgerService) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	expenses, err := s.store.ListExpenses(ctx)
	if err != nil {
		s.logger.Error("ListExpenses failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("failed to list expenses: %w", err))
	}

	resp := &api.ListExpensesResponse{Expenses: make([]*api.Expense, len(expenses))}
	var total float64
	for i, e := range expenses {
		resp.Expenses[i] = toAPIExpense(e)
		total += e.Amount
	}
	resp.TotalExpense = calculator.Round2(total)
	return connect.NewResponse(resp), nil
}

// ListArchived returns deleted expenses, most recently deleted first.
func (s *LedgerService) ListArchived(ctx context.Context, req *connect.Request[api.ListArchivedRequest]) (*connect.Response[api.ListArchivedResponse], error) {
	archived, err := s.store.ListArchived(ctx)
	if err != nil {
		s.logger.Error("ListArchived failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("failed to list archive: %w", err))
	}

	resp := &api.ListArchivedResponse{Archived: make([]*api.Expense, len(archived))}
	for i, a := range archived {
		resp.Archived[i] = toAPIArchived(a)
	}
	return connect.NewResponse(resp), nil
}

// ClearExpenses archives every active expense.
func (s *LedgerService) ClearExpenses(ctx context.Context, req *connect.Request[api.ClearExpensesRequest]) (*connect.Response[api.ClearExpensesResponse], error) {
	n, err := s.store.ClearExpenses(ctx)
	if err != nil {
		s.logger.Error("ClearExpenses failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("failed to clear expenses: %w", err))
	}

	s.logger.Info("Expenses cleared", "archived", n, "user_id", middleware.GetUserID(ctx))
	return connect.NewResponse(&api.ClearExpensesResponse{ArchivedCount: n}), nil
}

// GetSettlement computes balances and transfers from the current data.
func (s *LedgerService) GetSettlement(ctx context.Context, req *connect.Request[api.GetSettlementRequest]) (*connect.Response[api.GetSettlementResponse], error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		s.logger.Error("GetSettlement failed to read store", "error", err)
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("failed to read expenses: %w", err))
	}

	rep, err := ledger.Build(snap, s.roster)
	if err != nil {
		var unknown *calculator.UnknownMemberError
		var invalid *calculator.InvalidRecordError
		if errors.As(err, &unknown) || errors.As(err, &invalid) {
			s.logger.Error("Stored expense cannot be settled", "version", snap.Version, "error", err)
			return nil, connect.NewError(connect.CodeFailedPrecondition, err)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&api.GetSettlementResponse{
		Version:      rep.Version,
		Balances:     toAPIBalances(rep.Balances),
		Transfers:    toAPITransfers(rep.Settlement.Transfers),
		Settled:      rep.Settlement.Settled,
		TotalExpense: calculator.Round2(rep.TotalExpense),
		Instructions: report.Formatter{}.Instructions(rep.Settlement),
	}), nil
}
