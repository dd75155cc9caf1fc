package reporting

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
)

var tradeHeader = []string{
	"id", "symbol", "interval", "side", "entry_time", "exit_time",
	"entry_price", "exit_price", "stop_loss", "take_profit", "size",
	"pnl", "r_multiple", "status", "exit_reason", "notes",
}

// RenderTradesCSV renders trades as CSV with a header row.
func RenderTradesCSV(trades []*domain.Trade) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	if err := w.Write(tradeHeader); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range trades {
		row := []string{
			t.ID, t.Symbol, t.Interval, string(t.Side),
			strconv.FormatInt(t.EntryTime, 10), strconv.FormatInt(t.ExitTime, 10),
			num(t.EntryPrice), num(t.ExitPrice), optNum(t.StopLoss), optNum(t.TakeProfit), num(t.Size),
			num(t.PnL), num(t.RMultiple), string(t.Status), string(t.ExitReason), t.Notes,
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write csv row %s: %w", t.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return sb.String(), nil
}

// RenderStatsCSV renders the summary statistics as metric,value rows.
// The equity curve is omitted.
func RenderStatsCSV(s domain.Stats) string {
	var sb strings.Builder

	sb.WriteString("metric,value\n")
	sb.WriteString(fmt.Sprintf("total_trades,%d\n", s.TotalTrades))
	sb.WriteString(fmt.Sprintf("wins,%d\n", s.Wins))
	sb.WriteString(fmt.Sprintf("losses,%d\n", s.Losses))
	sb.WriteString(fmt.Sprintf("breakevens,%d\n", s.Breakevens))
	sb.WriteString(fmt.Sprintf("win_rate,%.6f\n", s.WinRate))
	sb.WriteString(fmt.Sprintf("gross_profit,%.6f\n", s.GrossProfit))
	sb.WriteString(fmt.Sprintf("gross_loss,%.6f\n", s.GrossLoss))
	sb.WriteString(fmt.Sprintf("profit_factor,%s\n", ratioCell(s.ProfitFactor)))
	sb.WriteString(fmt.Sprintf("total_pnl,%.2f\n", s.TotalPnL))
	sb.WriteString(fmt.Sprintf("avg_r_multiple,%.6f\n", s.AvgRMultiple))
	sb.WriteString(fmt.Sprintf("max_drawdown,%.6f\n", s.MaxDrawdown))
	sb.WriteString(fmt.Sprintf("avg_win,%.6f\n", s.AvgWin))
	sb.WriteString(fmt.Sprintf("avg_loss,%.6f\n", s.AvgLoss))
	sb.WriteString(fmt.Sprintf("largest_win,%.6f\n", s.LargestWin))
	sb.WriteString(fmt.Sprintf("largest_loss,%.6f\n", s.LargestLoss))
	sb.WriteString(fmt.Sprintf("expectancy,%.6f\n", s.Expectancy))
	sb.WriteString(fmt.Sprintf("max_consecutive_losses,%d\n", s.MaxConsecutiveLosses))

	return sb.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optNum(v *float64) string {
	if v == nil {
		return ""
	}
	return num(*v)
}

// ratioCell renders a ratio for CSV, keeping ∞ readable.
func ratioCell(r domain.Ratio) string {
	if r.IsInf() {
		return "∞"
	}
	return strconv.FormatFloat(float64(r), 'f', 6, 64)
}
