package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/remlyo/remlyo/pkg/client"
)

// stdout is where every command renders; tests swap it for a buffer.
var stdout io.Writer = os.Stdout

const dateLayout = "2006-01-02"

// Table renders rows under a header line and a dashed separator.
type Table struct {
	headers []string
	rows    [][]string
	writer  io.Writer
}

// NewTable creates a table that renders to stdout.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers, writer: stdout}
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cols ...string) {
	t.rows = append(t.rows, cols)
}

// Render writes the table.
func (t *Table) Render() {
	w := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(t.headers, "\t"))
	sep := make([]string, len(t.headers))
	for i, h := range t.headers {
		sep[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(w, strings.Join(sep, "\t"))
	for _, row := range t.rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	w.Flush()
}

// printOutput encodes data as json or yaml. Table output is rendered by
// the command itself.
func printOutput(data interface{}) error {
	if getOutputFormat() == "yaml" {
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// renderPlans lists the catalog with the price and free allowance of each plan
func renderPlans(w io.Writer, plans []client.Plan) {
	if len(plans) == 0 {
		fmt.Fprintln(w, "No plans available. An admin must run 'remlyo admin init'.")
		return
	}

	table := NewTable("ID", "NAME", "PRICE", "DURATION", "FREE VIEWS", "FEATURES")
	table.writer = w
	for _, p := range plans {
		table.AddRow(
			p.ID,
			p.Name,
			formatPrice(p),
			formatDuration(p.Duration),
			formatAllowance(p),
			truncate(strings.Join(p.Features, ", "), 50),
		)
	}
	table.Render()
}

// renderDecision prints whether a remedy may be opened and, if not, what
// the user has to do about it
func renderDecision(w io.Writer, res *client.AccessResult) {
	if res.HasAccess {
		fmt.Fprintf(w, "Access granted (%s plan)\n", res.Plan)
		return
	}
	fmt.Fprintf(w, "Access denied: %s\n", describeRequired(res.Reason))
}

func renderView(w io.Writer, view *client.RemedyView) {
	fmt.Fprintf(w, "Opened %s/%s (%s plan)\n", view.AilmentID, view.RemedyID, view.Plan)
	if view.Plan == client.PlanFree {
		fmt.Fprintf(w, "Free views used for this ailment: %d\n", view.AccessCount)
	}
}

func renderPurchase(w io.Writer, p *client.Purchase) {
	fmt.Fprintf(w, "Purchase: %s\n", formatStatus(p.Status))
	fmt.Fprintf(w, "Amount:   %s\n", formatAmount(p.Amount, p.Currency))
	if p.Status == "pending" {
		fmt.Fprintf(w, "Payment:  %s\n", p.PaymentIntentID)
		fmt.Fprintln(w, "Confirm the payment with the client secret to complete the purchase.")
	}
}

func renderSubscription(w io.Writer, sub *client.Subscription) {
	fmt.Fprintf(w, "Subscription: %s\n", sub.ID)
	fmt.Fprintf(w, "Plan:         %s\n", planName(sub))
	fmt.Fprintf(w, "Status:       %s\n", formatStatus(sub.Status))
	fmt.Fprintf(w, "Started:      %s\n", sub.StartDate.Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "Ends:         %s\n", formatEnd(sub))
}

// renderLedger shows per-ailment view counts and purchased remedies
func renderLedger(w io.Writer, access []client.RemedyAccess) {
	if len(access) == 0 {
		return
	}
	fmt.Fprintln(w)
	table := NewTable("AILMENT", "VIEWS", "PURCHASED")
	table.writer = w
	for _, a := range access {
		table.AddRow(a.AilmentID, fmt.Sprintf("%d", a.AccessCount), truncate(strings.Join(a.AccessedRemedies, ", "), 60))
	}
	table.Render()
}

func renderHistory(w io.Writer, subs []client.Subscription) {
	table := NewTable("ID", "PLAN", "STATUS", "START", "END")
	table.writer = w
	for i := range subs {
		s := &subs[i]
		table.AddRow(s.ID, planName(s), formatStatus(s.Status), s.StartDate.Format(dateLayout), formatEnd(s))
	}
	table.Render()
}

func formatPrice(p client.Plan) string {
	if p.Price == 0 {
		return "free"
	}
	return fmt.Sprintf("%.2f %s", p.Price, strings.ToUpper(p.Currency))
}

// formatAmount renders an amount in minor units
func formatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%.2f %s", float64(cents)/100, strings.ToUpper(currency))
}

func formatDuration(days int) string {
	if days == 0 {
		return "lifetime"
	}
	return fmt.Sprintf("%d days", days)
}

func formatAllowance(p client.Plan) string {
	if p.MaxRemediesPerAilment <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d per ailment", p.MaxRemediesPerAilment)
}

func describeRequired(required string) string {
	switch required {
	case client.RequiredUpgrade:
		return "free view limit reached for this ailment, upgrade to premium"
	case client.RequiredPurchase:
		return "purchase this remedy to view it"
	case client.RequiredSubscription:
		return "an active subscription is required"
	}
	return required
}

func planName(sub *client.Subscription) string {
	if sub.Plan != nil {
		return sub.Plan.Name
	}
	return sub.PlanID
}

// formatEnd shows lifetime subscriptions as never ending
func formatEnd(sub *client.Subscription) string {
	if sub.EndDate.Year() >= 2100 {
		return "never"
	}
	return sub.EndDate.Format(dateLayout)
}

// truncate shortens s to maxLen, marking the cut with "...".
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// formatStatus marks subscription and purchase states
func formatStatus(status string) string {
	switch strings.ToLower(status) {
	case "active", "completed", "already_owned", "ready", "ok":
		return "[+] " + status
	case "expired", "cancelled", "none", "error":
		return "[-] " + status
	case "pending":
		return "[*] " + status
	default:
		return status
	}
}
