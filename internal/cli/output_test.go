package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/remlyo/remlyo/pkg/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Render(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable("ID", "NAME")
	table.writer = &buf
	table.AddRow("p1", "free")
	table.AddRow("p2", "premium")
	table.Render()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "--"))
	assert.Contains(t, lines[3], "premium")
}

func TestPlanFormatting(t *testing.T) {
	free := client.Plan{Name: "free", Price: 0, MaxRemediesPerAilment: 3}
	premium := client.Plan{Name: "premium", Price: 9.99, Currency: "usd", Duration: 30}

	assert.Equal(t, "free", formatPrice(free))
	assert.Equal(t, "9.99 USD", formatPrice(premium))
	assert.Equal(t, "lifetime", formatDuration(free.Duration))
	assert.Equal(t, "30 days", formatDuration(premium.Duration))
	assert.Equal(t, "3 per ailment", formatAllowance(free))
	assert.Equal(t, "-", formatAllowance(premium))
}

func TestFormatEnd(t *testing.T) {
	lifetime := &client.Subscription{EndDate: time.Date(2100, time.December, 31, 0, 0, 0, 0, time.UTC)}
	monthly := &client.Subscription{EndDate: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)}

	assert.Equal(t, "never", formatEnd(lifetime))
	assert.Equal(t, "2026-03-01", formatEnd(monthly))
}

func TestDescribeRequired(t *testing.T) {
	for _, r := range []string{client.RequiredSubscription, client.RequiredUpgrade, client.RequiredPurchase} {
		assert.NotEqual(t, r, describeRequired(r), "no description for %s", r)
	}
	assert.Equal(t, "other", describeRequired("other"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

func TestRenderPlans(t *testing.T) {
	var buf bytes.Buffer
	renderPlans(&buf, []client.Plan{
		{ID: "p1", Name: "free", MaxRemediesPerAilment: 3, Features: []string{"3 remedies per ailment"}},
		{ID: "p2", Name: "premium", Price: 9.99, Currency: "usd", Duration: 30},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 4)
	assert.Contains(t, lines[2], "3 per ailment")
	assert.Contains(t, lines[2], "lifetime")
	assert.Contains(t, lines[3], "9.99 USD")
	assert.Contains(t, lines[3], "30 days")

	buf.Reset()
	renderPlans(&buf, nil)
	assert.Contains(t, buf.String(), "remlyo admin init")
}

func TestRenderDecision(t *testing.T) {
	tests := []struct {
		name string
		res  client.AccessResult
		want string
	}{
		{name: "granted", res: client.AccessResult{HasAccess: true, Plan: "premium"}, want: "Access granted (premium plan)\n"},
		{name: "upgrade", res: client.AccessResult{Reason: client.RequiredUpgrade}, want: "Access denied: free view limit reached for this ailment, upgrade to premium\n"},
		{name: "purchase", res: client.AccessResult{Reason: client.RequiredPurchase}, want: "Access denied: purchase this remedy to view it\n"},
		{name: "subscription", res: client.AccessResult{Reason: client.RequiredSubscription}, want: "Access denied: an active subscription is required\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			renderDecision(&buf, &tt.res)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestRenderView(t *testing.T) {
	var buf bytes.Buffer
	renderView(&buf, &client.RemedyView{AilmentID: "a1", RemedyID: "r2", Plan: client.PlanFree, AccessCount: 2})
	assert.Equal(t, "Opened a1/r2 (free plan)\nFree views used for this ailment: 2\n", buf.String())

	buf.Reset()
	renderView(&buf, &client.RemedyView{AilmentID: "a1", RemedyID: "r2", Plan: client.PlanPremium})
	assert.NotContains(t, buf.String(), "Free views")
}

func TestRenderPurchase(t *testing.T) {
	var buf bytes.Buffer
	renderPurchase(&buf, &client.Purchase{Status: "pending", PaymentIntentID: "pi_1", Amount: 199, Currency: "usd"})
	out := buf.String()
	assert.Contains(t, out, "[*] pending")
	assert.Contains(t, out, "1.99 USD")
	assert.Contains(t, out, "pi_1")

	buf.Reset()
	renderPurchase(&buf, &client.Purchase{Status: "already_owned", Amount: 199, Currency: "usd"})
	assert.Contains(t, buf.String(), "[+] already_owned")
	assert.NotContains(t, buf.String(), "Payment:")
}

func TestRenderSubscriptionAndLedger(t *testing.T) {
	start := time.Date(2026, time.February, 1, 9, 30, 0, 0, time.UTC)
	sub := &client.Subscription{
		ID:        "sub-1",
		PlanID:    "p1",
		Plan:      &client.Plan{Name: "free"},
		StartDate: start,
		EndDate:   time.Date(2100, time.December, 31, 0, 0, 0, 0, time.UTC),
		Status:    "active",
		RemedyAccess: []client.RemedyAccess{
			{AilmentID: "a1", AccessCount: 2, AccessedRemedies: []string{"r1"}},
		},
	}

	var buf bytes.Buffer
	renderSubscription(&buf, sub)
	out := buf.String()
	assert.Contains(t, out, "Plan:         free")
	assert.Contains(t, out, "[+] active")
	assert.Contains(t, out, "2026-02-01 09:30")
	assert.Contains(t, out, "Ends:         never")

	buf.Reset()
	renderLedger(&buf, sub.RemedyAccess)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[2], "a1")
	assert.Contains(t, lines[2], "r1")

	buf.Reset()
	renderLedger(&buf, nil)
	assert.Empty(t, buf.String())
}

func TestRenderHistory(t *testing.T) {
	start := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	renderHistory(&buf, []client.Subscription{
		{ID: "s1", PlanID: "p-premium", StartDate: start, EndDate: start.AddDate(0, 0, 30), Status: "expired"},
		{ID: "s2", Plan: &client.Plan{Name: "free"}, StartDate: start, EndDate: time.Date(2100, time.December, 31, 0, 0, 0, 0, time.UTC), Status: "active"},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[2], "p-premium")
	assert.Contains(t, lines[2], "[-] expired")
	assert.Contains(t, lines[2], "2026-01-31")
	assert.Contains(t, lines[3], "never")
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1.99 USD", formatAmount(199, "usd"))
	assert.Equal(t, "0.00 EUR", formatAmount(0, "eur"))
}
