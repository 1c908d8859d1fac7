package pipeline

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/argo-forecast/internal/types"
)

const ruleWidth = 60

type reportStyles struct {
	title    lipgloss.Style
	label    lipgloss.Style
	increase lipgloss.Style
	decrease lipgloss.Style
	help     lipgloss.Style
}

func newReportStyles(w io.Writer) reportStyles {
	r := lipgloss.NewRenderer(w)

	return reportStyles{
		title:    r.NewStyle().Bold(true),
		label:    r.NewStyle().Faint(true),
		increase: r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		decrease: r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		help:     r.NewStyle().Faint(true),
	}
}

// RenderReport writes the human readable report to w.
func RenderReport(w io.Writer, report *Report) error {
	styles := newReportStyles(w)
	rule := strings.Repeat("=", ruleWidth)

	var b strings.Builder

	title := "STOCK PRICE PREDICTION SYSTEM"
	if report.Symbol != "" {
		title = report.Symbol + " " + title
	}

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, styles.title.Render(title))
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "%s %s to %s\n", styles.label.Render("Data range:"), report.FirstDate.Format(types.DateLayout), report.LastDate.Format(types.DateLayout))
	fmt.Fprintf(&b, "%s %d\n", styles.label.Render("Total trading days:"), report.TradingDays)
	fmt.Fprintf(&b, "%s %s\n", styles.label.Render("Latest closing price:"), money(report.LatestClose))

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, styles.title.Render("MARKET SNAPSHOT"))
	fmt.Fprintf(&b, "%s %s\n", styles.label.Render("Weekly change:"), optionalPercent(report.WeeklyChange))
	fmt.Fprintf(&b, "%s %s\n", styles.label.Render("Monthly change:"), optionalPercent(report.MonthlyChange))
	fmt.Fprintf(&b, "%s %s / %s / %s\n", styles.label.Render("SMA 5/10/20:"),
		optionalMoney(report.SMA5), optionalMoney(report.SMA10), optionalMoney(report.SMA20))
	fmt.Fprintf(&b, "%s %s / %s\n", styles.label.Render("Support / resistance:"), money(report.Support), money(report.Resistance))
	fmt.Fprintf(&b, "%s %s\n", styles.label.Render("Mean close:"), money(report.MeanClose))
	fmt.Fprintf(&b, "%s %s%%\n", styles.label.Render("Daily volatility:"), decimal.NewFromFloat(report.Volatility).StringFixed(2))

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, styles.title.Render("PREDICTION RESULTS"))
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "%s %s\n", styles.label.Render("Current Date:"), report.LastDate.Format(types.DateLayout))
	fmt.Fprintf(&b, "%s %s\n", styles.label.Render("Current Price:"), money(report.LatestClose))
	fmt.Fprintf(&b, "%s %s\n", styles.label.Render("Predicted Price:"), money(report.Predicted))
	fmt.Fprintf(&b, "%s %s (%s)\n", styles.label.Render("Expected Change:"), money(report.Delta), signedPercent(report.Percent))

	directionStyle := styles.decrease
	if report.Direction == DirectionIncrease {
		directionStyle = styles.increase
	}

	fmt.Fprintf(&b, "PREDICTION: Price is expected to %s\n", directionStyle.Render(string(report.Direction)))
	fmt.Fprintf(&b, "%s %s\n", styles.label.Render("Outlook:"), directionStyle.Render(string(report.Outlook)))

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, styles.help.Render("Disclaimer: This is a prediction model for educational purposes."))
	fmt.Fprintln(&b, styles.help.Render("Always do your own research before making investment decisions."))
	fmt.Fprintln(&b, rule)

	_, err := io.WriteString(w, b.String())

	return err
}

func money(v float64) string {
	d := decimal.NewFromFloat(v)
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}

	return "$" + d.StringFixed(2)
}

func signedPercent(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	if d.IsNegative() {
		return d.StringFixed(2) + "%"
	}

	return "+" + d.StringFixed(2) + "%"
}

func optionalPercent(v optional.Option[float64]) string {
	if v.IsNone() {
		return "n/a"
	}

	return signedPercent(v.Unwrap())
}

func optionalMoney(v optional.Option[float64]) string {
	if v.IsNone() {
		return "n/a"
	}

	return money(v.Unwrap())
}
