package candles

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/observability"
)

// Pagination defaults.
const (
	DefaultPageSize = 1000
	DefaultMaxPages = 10
)

// HistorySource returns one page of closed and in-progress candles.
type HistorySource interface {
	// FetchPage returns up to limit candles with time <= endTime, ordered by
	// time ASC. endTime <= 0 requests the most recent page.
	FetchPage(ctx context.Context, key domain.SeriesKey, endTime int64, limit int) ([]domain.Candle, error)
}

// AssemblerOptions contains configuration for creating an Assembler.
type AssemblerOptions struct {
	Source   HistorySource
	PageSize int
	MaxPages int
	Logger   *zap.Logger
}

// Assembler chains history pages backward from the present.
type Assembler struct {
	source   HistorySource
	pageSize int
	maxPages int
	logger   *zap.Logger
}

// NewAssembler creates a new history assembler.
func NewAssembler(opts AssemblerOptions) *Assembler {
	// Pages overlap by one candle, so a page of one cannot make progress.
	pageSize := opts.PageSize
	if pageSize < 2 {
		pageSize = DefaultPageSize
	}

	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Assembler{
		source:   opts.Source,
		pageSize: pageSize,
		maxPages: maxPages,
		logger:   logger,
	}
}

// FetchHistory returns the ordered, deduplicated series for key.
//
// Pages are requested newest first. The end-time cursor of each request is
// the oldest time of the previous page, so consecutive pages overlap by one
// boundary candle which Merge collapses. Fetching stops on a short page
// (start of available history), when the page budget is spent, or when the
// cursor stops moving backward.
func (a *Assembler) FetchHistory(ctx context.Context, key domain.SeriesKey) ([]domain.Candle, error) {
	start := time.Now()

	var (
		pages  [][]domain.Candle
		cursor int64
	)

	for i := 0; i < a.maxPages; i++ {
		page, err := a.source.FetchPage(ctx, key, cursor, a.pageSize)
		if err != nil {
			return nil, fmt.Errorf("fetch %s page %d: %w", key, i, err)
		}
		if len(page) == 0 {
			break
		}
		pages = append(pages, page)

		oldest := page[0].Time
		for _, c := range page[1:] {
			oldest = min(oldest, c.Time)
		}

		if len(page) < a.pageSize {
			break
		}
		if cursor > 0 && oldest >= cursor {
			a.logger.Warn("history cursor did not advance",
				zap.String("series", key.String()),
				zap.Int64("cursor", cursor),
				zap.Int("page", i))
			break
		}
		cursor = oldest
	}

	// Oldest page first so that on a duplicate time the newer page wins.
	for i, j := 0, len(pages)-1; i < j; i, j = i+1, j-1 {
		pages[i], pages[j] = pages[j], pages[i]
	}
	series := Merge(pages...)
	if err := ValidateOrdering(series); err != nil {
		return nil, fmt.Errorf("assemble %s: %w", key, err)
	}

	observability.RecordHistoryFetch(time.Since(start).Seconds())
	a.logger.Debug("history assembled",
		zap.String("series", key.String()),
		zap.Int("pages", len(pages)),
		zap.Int("candles", len(series)))

	return series, nil
}
