package export

import (
	"html/template"
	"io"
	"time"

	"github.com/carepanel/carepanel/internal/transactions"
)

// SummaryPage is the printable view of one domain's rollups.
type SummaryPage struct {
	Title       string
	Domain      string
	GeneratedAt time.Time
	Entities    []transactions.EntitySummary
	Daily       []transactions.DailySummary
}

const summaryLayout = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title>
<style>
body{font-family:Helvetica,Arial,sans-serif;font-size:11px;color:#1f2933}
h1{font-size:18px;margin-bottom:2px}
table{border-collapse:collapse;width:100%;margin-top:12px}
th,td{border:1px solid #cbd2d9;padding:4px 6px;text-align:left}
td.num{text-align:right}
</style></head><body>
<h1>{{.Title}}</h1>
<p>Generated {{.GeneratedAt.Format "2006-01-02 15:04 MST"}}</p>
<h2>By entity</h2>
<table><thead><tr><th>Entity</th><th>Transactions</th><th>Total Amount</th><th>Average Rating</th><th>Last Transaction</th></tr></thead><tbody>
{{range .Entities}}<tr><td>{{.EntityName}}</td><td class="num">{{count .TotalTransactions}}</td><td class="num">{{amount .TotalAmount}}</td><td class="num">{{amount .AverageRating}}</td><td>{{if not .LastTransactionDate.IsZero}}{{.LastTransactionDate.Format "2006-01-02"}}{{end}}</td></tr>
{{else}}<tr><td colspan="5">No transactions</td></tr>
{{end}}</tbody></table>
<h2>By day</h2>
<table><thead><tr><th>Day</th><th>Transactions</th><th>Revenue</th><th>Average Amount</th></tr></thead><tbody>
{{range .Daily}}<tr><td>{{.Label}}</td><td class="num">{{count .Transactions}}</td><td class="num">{{amount .Revenue}}</td><td class="num">{{amount .AverageAmount}}</td></tr>
{{end}}</tbody></table>
</body></html>
`

// WriteSummaryHTML renders page as a standalone HTML document with amounts
// formatted by f.
func WriteSummaryHTML(w io.Writer, page SummaryPage, f Formatter) error {
	tmpl, err := template.New("summary").Funcs(template.FuncMap{
		"amount": f.Amount,
		"count":  f.Count,
	}).Parse(summaryLayout)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, page)
}
