// Package api exposes strategies, replay sessions and journals over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/candles"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/journal"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/metrics"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/observability"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/reporting"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/storage"
)

// OwnerHeader carries the caller's owner ID. Authentication happens upstream.
const OwnerHeader = "X-Owner-ID"

// DefaultOwner is used when OwnerHeader is absent.
const DefaultOwner = "local"

// Options configures a Server.
type Options struct {
	Strategies storage.StrategyStore
	Trades     storage.TradeStore
	History    *candles.Assembler
	Live       candles.LiveSource // optional; nil disables live updates
	Listeners  []journal.Listener // attached to every journal
	Logger     *zap.Logger
}

// Server holds the HTTP handlers and the in-memory session and journal registries.
type Server struct {
	strategies storage.StrategyStore
	trades     storage.TradeStore
	history    *candles.Assembler
	live       candles.LiveSource
	listeners  []journal.Listener
	calc       *metrics.Calculator
	reports    *reporting.Generator
	logger     *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session
	journals map[string]*journal.Journal // by strategy ID
}

// NewServer creates a server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	calc := metrics.NewCalculator(opts.Trades, logger)
	return &Server{
		strategies: opts.Strategies,
		trades:     opts.Trades,
		history:    opts.History,
		live:       opts.Live,
		listeners:  opts.Listeners,
		calc:       calc,
		reports:    reporting.NewGenerator(opts.Strategies, calc),
		logger:     logger,
		sessions:   make(map[string]*session),
		journals:   make(map[string]*journal.Journal),
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.observe())

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(observability.Handler()))

	v1 := r.Group("/api/v1")

	st := v1.Group("/strategies")
	st.POST("", s.createStrategy)
	st.GET("", s.listStrategies)
	st.GET("/:id", s.getStrategy)
	st.DELETE("/:id", s.deleteStrategy)
	st.GET("/:id/stats", s.strategyStats)
	st.GET("/:id/report", s.strategyReport)
	st.GET("/:id/journal", s.listJournal)
	st.POST("/:id/journal", s.createEntry)
	st.PATCH("/:id/journal/:entry", s.updateEntry)
	st.DELETE("/:id/journal/:entry", s.deleteEntry)
	st.POST("/:id/journal/:entry/retry", s.retryEntry)
	st.POST("/:id/journal/:entry/discard", s.discardEntry)

	ss := v1.Group("/sessions")
	ss.POST("", s.createSession)
	ss.GET("/:id", s.getSession)
	ss.DELETE("/:id", s.deleteSession)
	ss.GET("/:id/candles", s.sessionCandles)
	ss.GET("/:id/stream", s.streamCandles)
	ss.PUT("/:id/series", s.switchSeries)
	ss.POST("/:id/start", s.startReplay)
	ss.POST("/:id/advance", s.advanceReplay)
	ss.POST("/:id/open", s.openPosition)
	ss.POST("/:id/close", s.closePosition)
	ss.POST("/:id/stop", s.stopReplay)

	return r
}

// Shutdown stops every session (force-closing open positions) and waits
// for pending journal writes.
func (s *Server) Shutdown(ctx context.Context) {
	s.mu.Lock()
	sessions := make([]*session, 0, len(s.sessions))
	for id, sess := range s.sessions {
		sessions = append(sessions, sess)
		delete(s.sessions, id)
	}
	journals := make([]*journal.Journal, 0, len(s.journals))
	for _, j := range s.journals {
		journals = append(journals, j)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.close(ctx)
	}
	for _, j := range journals {
		j.Wait()
	}
	observability.SetActiveSessions(0)
}

func (s *Server) handleHealth(c *gin.Context) {
	s.mu.Lock()
	n := len(s.sessions)
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": n})
}

// observe records request latency by route template.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		observability.RecordHTTPRequest(c.Request.Method, route, strconv.Itoa(status), time.Since(start).Seconds())
		if status >= http.StatusInternalServerError {
			s.logger.Warn("request failed",
				zap.String("method", c.Request.Method),
				zap.String("route", route),
				zap.Int("status", status),
			)
		}
	}
}

func ownerID(c *gin.Context) string {
	if id := c.GetHeader(OwnerHeader); id != "" {
		return id
	}
	return DefaultOwner
}

// journalFor returns the strategy's journal, loading it from the store on first use.
func (s *Server) journalFor(ctx context.Context, st *domain.Strategy) (*journal.Journal, error) {
	strategyID := st.ID
	s.mu.Lock()
	j, ok := s.journals[strategyID]
	s.mu.Unlock()
	if ok {
		return j, nil
	}

	j = journal.New(journal.Options{
		Store:      s.trades,
		OwnerID:    st.OwnerID,
		StrategyID: strategyID,
		Listeners:  s.listeners,
		Logger:     s.logger,
	})
	if err := j.Load(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.journals[strategyID]; ok {
		return existing, nil
	}
	s.journals[strategyID] = j
	return j, nil
}

// abort writes err with the status its kind maps to.
func abort(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, journal.ErrUnknownEntry), errors.Is(err, errSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidInput), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, storage.ErrDuplicateKey), errors.Is(err, journal.ErrEntryPending), errors.Is(err, journal.ErrNotFailed):
		status = http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
