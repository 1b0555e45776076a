package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/pkg/api"
)

// LedgerServiceName is the fully-qualified name of the LedgerService.
const LedgerServiceName = "splitledger.v1.LedgerService"

// Procedure paths of the LedgerService.
const (
	LedgerServiceListMembersProcedure   = "/splitledger.v1.LedgerService/ListMembers"
	LedgerServiceAddExpenseProcedure    = "/splitledger.v1.LedgerService/AddExpense"
	LedgerServiceDeleteExpenseProcedure = "/splitledger.v1.LedgerService/DeleteExpense"
	LedgerServiceListExpensesProcedure  = "/splitledger.v1.LedgerService/ListExpenses"
	LedgerServiceListArchivedProcedure  = "/splitledger.v1.LedgerService/ListArchived"
	LedgerServiceClearExpensesProcedure = "/splitledger.v1.LedgerService/ClearExpenses"
	LedgerServiceGetSettlementProcedure = "/splitledger.v1.LedgerService/GetSettlement"
)

// LedgerServiceMutatingProcedures lists the procedures that change data.
var LedgerServiceMutatingProcedures = []string{
	LedgerServiceAddExpenseProcedure,
	LedgerServiceDeleteExpenseProcedure,
	LedgerServiceClearExpensesProcedure,
}

// LedgerServiceHandler is implemented by the server.
type LedgerServiceHandler interface {
	ListMembers(context.Context, *connect.Request[api.ListMembersRequest]) (*connect.Response[api.ListMembersResponse], error)
	AddExpense(context.Context, *connect.Request[api.AddExpenseRequest]) (*connect.Response[api.AddExpenseResponse], error)
	DeleteExpense(context.Context, *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error)
	ListArchived(context.Context, *connect.Request[api.ListArchivedRequest]) (*connect.Response[api.ListArchivedResponse], error)
	ClearExpenses(context.Context, *connect.Request[api.ClearExpensesRequest]) (*connect.Response[api.ClearExpensesResponse], error)
	GetSettlement(context.Context, *connect.Request[api.GetSettlementRequest]) (*connect.Response[api.GetSettlementResponse], error)
}

// NewLedgerServiceHandler builds an HTTP handler for svc and returns the path
// to mount it on.
func NewLedgerServiceHandler(svc LedgerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(LedgerServiceListMembersProcedure, connect.NewUnaryHandler(LedgerServiceListMembersProcedure, svc.ListMembers, opts...))
	mux.Handle(LedgerServiceAddExpenseProcedure, connect.NewUnaryHandler(LedgerServiceAddExpenseProcedure, svc.AddExpense, opts...))
	mux.Handle(LedgerServiceDeleteExpenseProcedure, connect.NewUnaryHandler(LedgerServiceDeleteExpenseProcedure, svc.DeleteExpense, opts...))
	mux.Handle(LedgerServiceListExpensesProcedure, connect.NewUnaryHandler(LedgerServiceListExpensesProcedure, svc.ListExpenses, opts...))
	mux.Handle(LedgerServiceListArchivedProcedure, connect.NewUnaryHandler(LedgerServiceListArchivedProcedure, svc.ListArchived, opts...))
	mux.Handle(LedgerServiceClearExpensesProcedure, connect.NewUnaryHandler(LedgerServiceClearExpensesProcedure, svc.ClearExpenses, opts...))
	mux.Handle(LedgerServiceGetSettlementProcedure, connect.NewUnaryHandler(LedgerServiceGetSettlementProcedure, svc.GetSettlement, opts...))
	return "/" + LedgerServiceName + "/", mux
}

// LedgerServiceClient calls a remote LedgerService.
type LedgerServiceClient struct {
	listMembers   *connect.Client[api.ListMembersRequest, api.ListMembersResponse]
	addExpense    *connect.Client[api.AddExpenseRequest, api.AddExpenseResponse]
	deleteExpense *connect.Client[api.DeleteExpenseRequest, api.DeleteExpenseResponse]
	listExpenses  *connect.Client[api.ListExpensesRequest, api.ListExpensesResponse]
	listArchived  *connect.Client[api.ListArchivedRequest, api.ListArchivedResponse]
	clearExpenses *connect.Client[api.ClearExpensesRequest, api.ClearExpensesResponse]
	getSettlement *connect.Client[api.GetSettlementRequest, api.GetSettlementResponse]
}

// NewLedgerServiceClient creates a client for the service at baseURL.
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *LedgerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	return &LedgerServiceClient{
		listMembers:   connect.NewClient[api.ListMembersRequest, api.ListMembersResponse](httpClient, baseURL+LedgerServiceListMembersProcedure, opts...),
		addExpense:    connect.NewClient[api.AddExpenseRequest, api.AddExpenseResponse](httpClient, baseURL+LedgerServiceAddExpenseProcedure, opts...),
		deleteExpense: connect.NewClient[api.DeleteExpenseRequest, api.DeleteExpenseResponse](httpClient, baseURL+LedgerServiceDeleteExpenseProcedure, opts...),
		listExpenses:  connect.NewClient[api.ListExpensesRequest, api.ListExpensesResponse](httpClient, baseURL+LedgerServiceListExpensesProcedure, opts...),
		listArchived:  connect.NewClient[api.ListArchivedRequest, api.ListArchivedResponse](httpClient, baseURL+LedgerServiceListArchivedProcedure, opts...),
		clearExpenses: connect.NewClient[api.ClearExpensesRequest, api.ClearExpensesResponse](httpClient, baseURL+LedgerServiceClearExpensesProcedure, opts...),
		getSettlement: connect.NewClient[api.GetSettlementRequest, api.GetSettlementResponse](httpClient, baseURL+LedgerServiceGetSettlementProcedure, opts...),
	}
}

func (c *LedgerServiceClient) ListMembers(ctx context.Context, req *connect.Request[api.ListMembersRequest]) (*connect.Response[api.ListMembersResponse], error) {
	return c.listMembers.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) AddExpense(ctx context.Context, req *connect.Request[api.AddExpenseRequest]) (*connect.Response[api.AddExpenseResponse], error) {
	return c.addExpense.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	return c.deleteExpense.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	return c.listExpenses.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListArchived(ctx context.Context, req *connect.Request[api.ListArchivedRequest]) (*connect.Response[api.ListArchivedResponse], error) {
	return c.listArchived.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ClearExpenses(ctx context.Context, req *connect.Request[api.ClearExpensesRequest]) (*connect.Response[api.ClearExpensesResponse], error) {
	return c.clearExpenses.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetSettlement(ctx context.Context, req *connect.Request[api.GetSettlementRequest]) (*connect.Response[api.GetSettlementResponse], error) {
	return c.getSettlement.CallUnary(ctx, req)
}
