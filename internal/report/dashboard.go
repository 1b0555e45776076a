package report

import (
	"log/slog"
	"net/http"

	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/ledger"
)

const dashboardCSS = `
body { font-family: system-ui, sans-serif; margin: 2rem auto; max-width: 960px; color: #222; }
table { border-collapse: collapse; width: 100%; margin-bottom: 1rem; }
th, td { border-bottom: 1px solid #ddd; padding: .4rem .6rem; text-align: left; }
.receives { color: #1a7f37; }
.owes { color: #cf222e; }
.muted { color: #777; }
.error { background: #ffebe9; border: 1px solid #cf222e; padding: .6rem; margin-bottom: 1rem; }
`

// Source provides the report to serve and the error of the most recent
// recompute, if it failed. *ledger.Recomputer implements it.
type Source interface {
	Latest() *ledger.Report
	LastError() error
}

// StaleMessage prefixes the notice shown while the latest changes cannot be
// applied.
const StaleMessage = "Latest changes could not be applied"

func staleNotice(err error) string {
	return StaleMessage + ": " + err.Error()
}

// Dashboard renders the full page for a report. A nil report renders the
// "Calculating..." placeholder. A non-nil recomputeErr is shown above the
// report, which is then the last one that could be built.
func (f Formatter) Dashboard(title string, r *ledger.Report, recomputeErr error) g.Node {
	var body g.Node
	if r == nil {
		body = h.P(h.Class("muted"), g.Text(NotComputedMessage))
	} else {
		body = g.Group{
			f.balancesSection(r),
			f.settlementSection(r),
			f.historySection(r),
			g.If(len(r.Archived) > 0, f.archiveSection(r)),
			h.P(h.Class("muted"), g.Textf("Version %d, computed %s", r.Version, r.ComputedAt.Format("2006-01-02 15:04:05"))),
		}
	}

	return h.Doctype(
		h.HTML(
			h.Lang("en"),
			h.Head(
				h.Meta(h.Charset("utf-8")),
				h.Meta(h.Name("viewport"), h.Content("width=device-width, initial-scale=1")),
				h.TitleEl(g.Text(title)),
				h.StyleEl(g.Raw(dashboardCSS)),
			),
			h.Body(
				h.H1(g.Text(title)),
				g.Iff(recomputeErr != nil, func() g.Node {
					return h.Div(h.Class("error"), h.Role("alert"), g.Text(staleNotice(recomputeErr)))
				}),
				body,
			),
		),
	)
}

func (f Formatter) balancesSection(r *ledger.Report) g.Node {
	rows := make([]g.Node, 0, len(r.Balances.Members()))
	for _, b := range r.Balances.Members() {
		class := ""
		switch b.Standing() {
		case calculator.Creditor:
			class = "receives"
		case calculator.Debtor:
			class = "owes"
		}
		rows = append(rows, h.Tr(
			h.Td(g.Text(b.Member)),
			h.Td(g.Text(f.Amount(b.TotalPaid))),
			h.Td(g.If(class != "", h.Class(class)), g.Text(f.NetResult(b))),
		))
	}
	return h.Section(
		h.H2(g.Text("Balances")),
		h.Table(
			h.THead(h.Tr(h.Th(g.Text("Member")), h.Th(g.Text("Paid")), h.Th(g.Text("Net result")))),
			h.TBody(rows...),
		),
		h.P(h.Strong(g.Text(f.Total(r.TotalExpense)))),
	)
}

func (f Formatter) settlementSection(r *ledger.Report) g.Node {
	items := make([]g.Node, 0, len(r.Settlement.Transfers))
	for _, line := range f.Instructions(r.Settlement) {
		items = append(items, h.Li(g.Text(line)))
	}
	return h.Section(
		h.H2(g.Text("Settlement")),
		h.Ul(items...),
	)
}

func (f Formatter) historySection(r *ledger.Report) g.Node {
	if len(r.History) == 0 {
		return h.Section(h.H2(g.Text("History")), h.P(h.Class("muted"), g.Text("No expenses recorded.")))
	}
	rows := make([]g.Node, 0, len(r.History))
	for _, e := range r.History {
		rows = append(rows, h.Tr(
			h.Td(g.Text(e.Date)),
			h.Td(g.Text(e.Description)),
			h.Td(g.Text(f.Amount(e.Amount))),
			h.Td(g.Text(e.Payer)),
			h.Td(g.Text(Sharers(e.Sharers))),
		))
	}
	return h.Section(
		h.H2(g.Text("History")),
		h.Table(
			h.THead(h.Tr(
				h.Th(g.Text("Date")), h.Th(g.Text("Description")), h.Th(g.Text("Amount")),
				h.Th(g.Text("Paid by")), h.Th(g.Text("Shared by")),
			)),
			h.TBody(rows...),
		),
	)
}

func (f Formatter) archiveSection(r *ledger.Report) g.Node {
	rows := make([]g.Node, 0, len(r.Archived))
	for _, a := range r.Archived {
		rows = append(rows, h.Tr(
			h.Td(g.Text(a.Date)),
			h.Td(g.Text(a.Description)),
			h.Td(g.Text(f.Amount(a.Amount))),
			h.Td(g.Text(a.Payer)),
			h.Td(g.Text(FormatMillis(a.DeletedAt))),
		))
	}
	return h.Section(
		h.H2(g.Text("Archive")),
		h.Table(
			h.THead(h.Tr(
				h.Th(g.Text("Date")), h.Th(g.Text("Description")), h.Th(g.Text("Amount")),
				h.Th(g.Text("Paid by")), h.Th(g.Text("Deleted at")),
			)),
			h.TBody(rows...),
		),
	)
}

// DashboardHandler serves the dashboard for the source's report at request
// time.
func DashboardHandler(title string, f Formatter, src Source) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if err := f.Dashboard(title, src.Latest(), src.LastError()).Render(w); err != nil {
			slog.Warn("Failed to render dashboard", "error", err)
		}
	})
}

// ReportJSONHandler serves the latest report as JSON, or 503 before the
// first computation. A failed recompute marks the served report stale.
func ReportJSONHandler(src Source) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report, recomputeErr := src.Latest(), src.LastError()
		if report == nil {
			msg := NotComputedMessage
			if recomputeErr != nil {
				msg = staleNotice(recomputeErr)
			}
			http.Error(w, msg, http.StatusServiceUnavailable)
			return
		}

		view := NewView(report)
		if recomputeErr != nil {
			view.Stale = true
			view.Error = staleNotice(recomputeErr)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := WriteJSON(w, view); err != nil {
			slog.Warn("Failed to write report", "error", err)
		}
	})
}
