package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

const (
	shubham = "Shubham Jana"
	krishna = "Krishna Kumar"
	suvajit = "Suvajit Jana"
)

func buildReport(t *testing.T, expenses []models.Expense, archived []models.ArchivedExpense) *ledger.Report {
	t.Helper()
	roster, err := calculator.NewRoster([]string{shubham, krishna, suvajit})
	require.NoError(t, err)
	r, err := ledger.Build(&storage.Snapshot{Version: 7, Expenses: expenses, Archived: archived}, roster)
	require.NoError(t, err)
	return r
}

func dinner() models.Expense {
	return models.Expense{
		ID:          "e1",
		Date:        "2025-03-01",
		Amount:      300,
		Payer:       shubham,
		Description: "Dinner",
		Sharers:     []string{shubham, krishna, suvajit},
		CreatedAt:   1,
	}
}

func TestFormatter_Amount(t *testing.T) {
	assert.Equal(t, "100.00", Formatter{}.Amount(100))
	assert.Equal(t, "33.33 INR", Formatter{Currency: "INR"}.Amount(33.333))
	assert.Equal(t, "0.00", Formatter{}.Amount(-0.004))
}

func TestFormatter_NetResult(t *testing.T) {
	f := Formatter{}
	tests := []struct {
		net  float64
		want string
	}{
		{200, "Receives 200.00"},
		{-100, "Owes 100.00"},
		{0.005, "Neutral"},
		{-0.005, "Neutral"},
	}
	for _, tt := range tests {
		got := f.NetResult(calculator.MemberBalance{Member: shubham, NetBalance: tt.net})
		assert.Equal(t, tt.want, got, "net %v", tt.net)
	}
}

func TestFormatter_Instructions(t *testing.T) {
	f := Formatter{}
	assert.Equal(t, []string{NotComputedMessage}, f.Instructions(calculator.Settlement{}))
	assert.Equal(t, []string{SettledMessage}, f.Instructions(calculator.Settlement{Computed: true, Settled: true}))

	s := calculator.Settlement{
		Computed:  true,
		Transfers: []calculator.Transfer{{From: krishna, To: shubham, Amount: 100}},
	}
	assert.Equal(t, []string{"Krishna Kumar pays Shubham Jana 100.00"}, f.Instructions(s))
}

func TestWriteReport(t *testing.T) {
	r := buildReport(t, []models.Expense{dinner()}, nil)

	var buf bytes.Buffer
	require.NoError(t, Formatter{}.WriteReport(&buf, r))
	out := buf.String()

	assert.Contains(t, out, "Receives 200.00")
	assert.Contains(t, out, "Owes 100.00")
	assert.Contains(t, out, "Total group expense: 300.00")
	assert.Contains(t, out, "Krishna Kumar pays Shubham Jana 100.00")
	assert.Contains(t, out, "Suvajit Jana pays Shubham Jana 100.00")
	assert.Contains(t, out, "Dinner")
	assert.NotContains(t, out, SettledMessage)
}

func TestWriteReport_Settled(t *testing.T) {
	r := buildReport(t, nil, nil)

	var buf bytes.Buffer
	require.NoError(t, Formatter{}.WriteReport(&buf, r))
	assert.Contains(t, buf.String(), SettledMessage)
	assert.Contains(t, buf.String(), "No expenses recorded.")

	buf.Reset()
	require.NoError(t, Formatter{}.WriteReport(&buf, nil))
	assert.Equal(t, NotComputedMessage+"\n", buf.String())
}

func TestWriteArchive(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Formatter{}.WriteArchive(&buf, nil))
	assert.Equal(t, "Archive is empty.\n", buf.String())

	buf.Reset()
	archived := []models.ArchivedExpense{{Expense: dinner(), DeletedAt: 1700000000000}}
	require.NoError(t, Formatter{}.WriteArchive(&buf, archived))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "DELETED AT")
	assert.Contains(t, lines[1], "Dinner")
}

func TestNewView(t *testing.T) {
	r := buildReport(t, []models.Expense{dinner()}, []models.ArchivedExpense{
		{Expense: models.Expense{ID: "gone", Amount: 10, Payer: krishna, Sharers: []string{krishna}}, DeletedAt: 5},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, NewView(r)))

	var got View
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, uint64(7), got.Version)
	assert.False(t, got.Settled)
	assert.InDelta(t, 300.0, got.TotalExpense, 0.001)
	require.Len(t, got.Balances, 3)
	assert.Equal(t, shubham, got.Balances[0].Member)
	assert.Equal(t, "creditor", got.Balances[0].Standing)
	assert.Len(t, got.Transfers, 2)
	require.Len(t, got.Archived, 1)
	assert.Equal(t, int64(5), got.Archived[0].DeletedAt)
}

func TestNewView_OneCentBalancesAreNeutral(t *testing.T) {
	cent := models.Expense{ID: "c", Date: "2025-03-02", Amount: 0.01, Payer: shubham, Sharers: []string{krishna}}
	view := NewView(buildReport(t, []models.Expense{cent}, nil))

	assert.True(t, view.Settled)
	assert.Empty(t, view.Transfers)
	for _, b := range view.Balances {
		assert.Equal(t, "neutral", b.Standing, b.Member)
		assert.Zero(t, b.NetBalance, b.Member)
	}
	assert.InDelta(t, 0.01, view.TotalExpense, 1e-9)
}

func TestNewView_SettledHasEmptyTransfers(t *testing.T) {
	view := NewView(buildReport(t, nil, nil))

	raw, err := json.Marshal(view)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"transfers":[]`)
	assert.True(t, view.Settled)
}

type fakeSource struct {
	report *ledger.Report
	err    error
}

func (s *fakeSource) Latest() *ledger.Report { return s.report }
func (s *fakeSource) LastError() error       { return s.err }

func TestDashboardHandler(t *testing.T) {
	src := &fakeSource{}
	handler := DashboardHandler("Group Expenses", Formatter{}, src)

	t.Run("not computed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), NotComputedMessage)
	})

	t.Run("report", func(t *testing.T) {
XX, Amount: 10, Payer: krishna, Sharers: []string{krishna}}, DeletedAt: 5},
		})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		body := rec.Body.String()
		assert.True(t, strings.HasPrefix(strings.ToLower(body), "<!doctype html>"))
		assert.Contains(t, body, "<title>Group Expenses</title>")
		assert.Contains(t, body, "Krishna Kumar pays Shubham Jana 100.00")
		assert.Contains(t, body, "Total group expense: 300.00")
		assert.Contains(t, body, "Taxi")
		assert.NotContains(t, body, StaleMessage)
	})

	t.Run("failed recompute", func(t *testing.T) {
		src.err = errors.New(`expense "x": payer "Mallory" is not a roster member`)
		defer func() { src.err = nil }()

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		body := rec.Body.String()
		assert.Contains(t, body, StaleMessage)
		assert.Contains(t, body, "Mallory")
		assert.Contains(t, body, "Krishna Kumar pays Shubham Jana 100.00")
	})

	t.Run("unknown path", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestReportJSONHandler(t *testing.T) {
	src := &fakeSource{}
	handler := ReportJSONHandler(src)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report.json", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), NotComputedMessage)

	src.report = buildReport(t, []models.Expense{dinner()}, nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report.json", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"total_expense": 300`)
	assert.Contains(t, rec.Body.String(), `"stale": false`)
}

func TestReportJSONHandler_FailedRecompute(t *testing.T) {
	src := &fakeSource{err: errors.New("payer is not a roster member")}
	handler := ReportJSONHandler(src)

	t.Run("before first report", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report.json", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), StaleMessage)
	})

	t.Run("keeps last report", func(t *testing.T) {
		src.report = buildReport(t, []models.Expense{dinner()}, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report.json", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var got View
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.True(t, got.Stale)
		assert.Contains(t, got.Error, "payer is not a roster member")
		assert.InDelta(t, 300.0, got.TotalExpense, 0.001)
	})
}
