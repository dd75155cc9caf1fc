// Package binance adapts the Binance spot market data APIs to the candles
// package: paginated REST klines for history and the kline websocket stream
// for live updates.
package binance

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/adshao/go-binance/v2"
	"go.uber.org/zap"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/candles"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/observability"
)

const sourceName = "binance"

// HistoryClient implements candles.HistorySource with the public klines endpoint.
type HistoryClient struct {
	client *binance.Client
	logger *zap.Logger
}

// NewHistoryClient creates a keyless client. An empty baseURL uses the
// library default (https://api.binance.com).
func NewHistoryClient(baseURL string, logger *zap.Logger) *HistoryClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := binance.NewClient("", "")
	if baseURL != "" {
		client.BaseURL = strings.TrimRight(baseURL, "/")
	}

	return &HistoryClient{client: client, logger: logger}
}

var _ candles.HistorySource = (*HistoryClient)(nil)

// FetchPage implements candles.HistorySource. Binance takes milliseconds;
// candles carry seconds.
func (h *HistoryClient) FetchPage(ctx context.Context, key domain.SeriesKey, endTime int64, limit int) ([]domain.Candle, error) {
	svc := h.client.NewKlinesService().
		Symbol(strings.ToUpper(key.Symbol)).
		Interval(key.Interval).
		Limit(limit)
	if endTime > 0 {
		svc = svc.EndTime(endTime * 1000)
	}

	klines, err := svc.Do(ctx)
	observability.RecordHistoryPage(sourceName, err)
	if err != nil {
		return nil, fmt.Errorf("get klines %s: %w", key, err)
	}

	result := make([]domain.Candle, 0, len(klines))
	for _, k := range klines {
		c, err := toCandle(k.OpenTime, k.Open, k.High, k.Low, k.Close)
		if err != nil {
			return nil, fmt.Errorf("kline %s at %d: %w", key, k.OpenTime, err)
		}
		result = append(result, c)
	}

	h.logger.Debug("klines page fetched",
		zap.String("series", key.String()),
		zap.Int64("end_time", endTime),
		zap.Int("count", len(result)))

	return result, nil
}

// toCandle converts a Binance kline (millisecond open time, decimal strings).
func toCandle(openTimeMs int64, open, high, low, closePrice string) (domain.Candle, error) {
	var (
		c   = domain.Candle{Time: openTimeMs / 1000}
		err error
	)
	if c.Open, err = strconv.ParseFloat(open, 64); err != nil {
		return c, fmt.Errorf("parse open: %w", err)
	}
	if c.High, err = strconv.ParseFloat(high, 64); err != nil {
		return c, fmt.Errorf("parse high: %w", err)
	}
	if c.Low, err = strconv.ParseFloat(low, 64); err != nil {
		return c, fmt.Errorf("parse low: %w", err)
	}
	if c.Close, err = strconv.ParseFloat(closePrice, 64); err != nil {
		return c, fmt.Errorf("parse close: %w", err)
	}
	return c, nil
}
