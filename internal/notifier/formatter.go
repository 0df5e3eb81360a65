package notifier

import (
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"StockLens/internal/dashboard"
	"StockLens/internal/model"
)

// NotAvailable is shown for every absent fundamentals value.
const NotAvailable = "Not available"

// FormatValue renders a fundamentals value: numbers with two decimals,
// dates as YYYY-MM-DD, text verbatim.
func FormatValue(v model.Value) string {
	switch v.Kind {
	case model.KindNumber:
		return fmt.Sprintf("%.2f", v.Number)
	case model.KindText:
		return v.Text
	case model.KindDate:
		return v.Date.Format(time.DateOnly)
	default:
		return NotAvailable
	}
}

func pct(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.2f%%", v)
}

func ratio(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// FormatPage renders the full dashboard page as markdown.
func FormatPage(p *dashboard.Page) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("# 📊 %s Stock Dashboard\n\n", p.Ticker))
	if p.Fundamentals != nil && p.Fundamentals.Name != "" {
		b.WriteString(fmt.Sprintf("**%s**  \n", p.Fundamentals.Name))
	}
	b.WriteString(fmt.Sprintf("_%s to %s, source: %s_\n\n",
		p.Start.Format(time.DateOnly), p.End.Format(time.DateOnly), p.Provider))

	for _, a := range p.Alerts {
		icon := "⚠️"
		if a.Severity == dashboard.SeverityError {
			icon = "❌"
		}
		b.WriteString(fmt.Sprintf("> %s %s\n", icon, a.Message))
		if len(a.Columns) > 0 {
			b.WriteString(fmt.Sprintf(">\n> Available columns: `%s`\n", strings.Join(a.Columns, "`, `")))
		}
		b.WriteString("\n")
	}
	if p.Halted {
		return b.String()
	}

	writePricing(&b, p)
	writeFundamentals(&b, p)
	return b.String()
}

func writePricing(b *strings.Builder, p *dashboard.Page) {
	b.WriteString("## 📈 Price Movements & Risk Metrics\n\n")

	label := cell(p.Selection.Label)
	b.WriteString(fmt.Sprintf("| Date | %s | %% Change |\n", label))
	b.WriteString("|:-----|-----:|-----:|\n")
	for _, r := range p.Recent {
		b.WriteString(fmt.Sprintf("| %s | %.2f | %s |\n", r.Time.Format(time.DateOnly), r.Close, pct(r.ChangePct)))
	}
	if len(p.Recent) == 0 {
		b.WriteString("| - | - | - |\n")
	}
	b.WriteString("\n")

	b.WriteString("| Metric | Value |\n|:-----|-----:|\n")
	b.WriteString(fmt.Sprintf("| 📈 Annual Return | %s |\n", pct(p.Summary.AnnualizedReturnPct)))
	b.WriteString(fmt.Sprintf("| 📊 Standard Deviation | %s |\n", pct(p.Summary.AnnualizedStdevPct)))
	b.WriteString(fmt.Sprintf("| ⚖️ Risk-Adjusted Return | %s |\n", ratio(p.Summary.RiskAdjustedReturn)))
	b.WriteString("\n")

	if p.Range != nil {
		b.WriteString(fmt.Sprintf("Period high %.2f, low %.2f, last %.2f (%.0f%% of range)\n\n",
			p.Range.High, p.Range.Low, p.Range.Last, p.Range.Position*100))
	}
}

func writeFundamentals(b *strings.Builder, p *dashboard.Page) {
	b.WriteString("## 📊 Fundamental Data\n\n")
	if p.Fundamentals == nil {
		// the failure itself is already listed with the alerts
		return
	}
	b.WriteString("### 🔑 Key Metrics\n\n")
	for _, m := range model.Metrics() {
		b.WriteString(fmt.Sprintf("- **%s:** %s\n", m, FormatValue(p.Fundamentals.Get(m))))
	}
	prof := p.Fundamentals.Profile
	b.WriteString("\n### 🏢 Company Profile\n\n")
	b.WriteString(fmt.Sprintf("- **Sector:** %s\n", FormatValue(prof.Sector)))
	b.WriteString(fmt.Sprintf("- **Industry:** %s\n", FormatValue(prof.Industry)))
	b.WriteString(fmt.Sprintf("- **Website:** %s\n", FormatValue(prof.Website)))
	b.WriteString(fmt.Sprintf("\n**Summary:** %s\n", FormatValue(prof.Summary)))
}

// FormatDigest renders a short Telegram HTML summary of a page.
func FormatDigest(p *dashboard.Page) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>%s</b> | %s\n\n", html.EscapeString(p.Ticker), p.GeneratedAt.Format(time.DateOnly)))

	if !p.Halted {
		if last, ok := p.LastClose(); ok {
			b.WriteString(fmt.Sprintf("Last close %s: %.2f (%+.2f%%)\n", last.Time.Format(time.DateOnly), last.Close, last.ChangePct))
		}
		b.WriteString(fmt.Sprintf("Annual Return: %s\n", pct(p.Summary.AnnualizedReturnPct)))
		b.WriteString(fmt.Sprintf("Std Deviation: %s\n", pct(p.Summary.AnnualizedStdevPct)))
		b.WriteString(fmt.Sprintf("Risk-Adjusted: %s\n", ratio(p.Summary.RiskAdjustedReturn)))
	}

	for _, a := range p.Alerts {
		icon := "⚠️"
		if a.Severity == dashboard.SeverityError {
			icon = "❌"
		}
		b.WriteString(fmt.Sprintf("\n%s %s", icon, html.EscapeString(a.Message)))
	}
	return strings.TrimRight(b.String(), "\n")
}
