package reporting

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	name := "Strategy"
	if r.Strategy != nil {
		name = r.Strategy.Name
	}
	sb.WriteString(fmt.Sprintf("# %s\n\n", name))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.Strategy != nil {
		if r.Strategy.Symbol != "" {
			sb.WriteString(fmt.Sprintf("Market: %s %s\n\n", r.Strategy.Symbol, r.Strategy.Interval))
		}
		if r.Strategy.Description != "" {
			sb.WriteString(r.Strategy.Description + "\n\n")
		}
	}
	if from, to := r.Period(); len(r.Trades) > 0 {
		sb.WriteString(fmt.Sprintf("Period: %s to %s\n\n", formatTime(from), formatTime(to)))
	}

	s := r.Stats

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Trades | %d |\n", s.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Wins / Losses / Breakeven | %d / %d / %d |\n", s.Wins, s.Losses, s.Breakevens))
	sb.WriteString(fmt.Sprintf("| Win Rate | %.2f%% |\n", s.WinRate))
	sb.WriteString(fmt.Sprintf("| Profit Factor | %s |\n", s.ProfitFactor))
	sb.WriteString(fmt.Sprintf("| Total PnL | %.2f |\n", s.TotalPnL))
	sb.WriteString(fmt.Sprintf("| Gross Profit | %.2f |\n", s.GrossProfit))
	sb.WriteString(fmt.Sprintf("| Gross Loss | %.2f |\n", s.GrossLoss))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %.2f |\n", s.MaxDrawdown))
	sb.WriteString(fmt.Sprintf("| Avg R-Multiple | %.2f |\n", s.AvgRMultiple))
	sb.WriteString("\n")

	sb.WriteString("### Distribution\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Avg Win | %.2f |\n", s.AvgWin))
	sb.WriteString(fmt.Sprintf("| Avg Loss | %.2f |\n", s.AvgLoss))
	sb.WriteString(fmt.Sprintf("| Largest Win | %.2f |\n", s.LargestWin))
	sb.WriteString(fmt.Sprintf("| Largest Loss | %.2f |\n", s.LargestLoss))
	sb.WriteString(fmt.Sprintf("| Expectancy | %.2f |\n", s.Expectancy))
	sb.WriteString(fmt.Sprintf("| Max Consecutive Losses | %d |\n", s.MaxConsecutiveLosses))
	sb.WriteString("\n")

	// Trades
	sb.WriteString("## Trades\n\n")
	if len(r.Trades) == 0 {
		sb.WriteString("No trades recorded.\n\n")
		return sb.String()
	}
	sb.WriteString("| # | Entry | Side | Entry Price | Exit Price | Size | PnL | R | Status | Exit | Notes |\n")
	sb.WriteString("|---|-------|------|-------------|------------|------|-----|---|--------|------|-------|\n")
	for i, t := range r.Trades {
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %s | %.2f | %.2f | %s | %s | %s |\n",
			i+1, formatTime(t.EntryTime), t.Side,
			formatPrice(t.EntryPrice), formatPrice(t.ExitPrice), formatPrice(t.Size),
			t.PnL, t.RMultiple, t.Status, t.ExitReason, escapeCell(t.Notes)))
	}
	sb.WriteString("\n")

	// Equity curve
	sb.WriteString("## Equity Curve\n\n")
	sb.WriteString("| Trade | Cumulative PnL |\n")
	sb.WriteString("|-------|----------------|\n")
	for _, p := range s.EquityCurve {
		sb.WriteString(fmt.Sprintf("| %d | %.2f |\n", p.Index, p.CumPnL))
	}
	sb.WriteString("\n")

	return sb.String()
}

func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
