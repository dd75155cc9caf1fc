package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/candles"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/journal"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/observability"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/replay"
)

var errSessionNotFound = errors.New("session not found")

// maxAdvanceSteps bounds one advance request.
const maxAdvanceSteps = 1000

// session is one replay engine bound to a strategy journal.
type session struct {
	ID         string
	StrategyID string
	CreatedAt  time.Time

	engine  *replay.Engine
	journal *journal.Journal

	mu       sync.Mutex
	stopLive func()
}

func (s *session) close(ctx context.Context) {
	s.engine.Stop(ctx)
	s.unfollow()
}

// follow (re)subscribes the session's series to live updates for its
// current key. A failed subscription is logged; history alone is enough to replay.
func (s *session) follow(live candles.LiveSource, logger *zap.Logger) {
	s.unfollow()
	if live == nil {
		return
	}
	series := s.engine.Series()
	stop, err := candles.Follow(context.Background(), live, series)
	if err != nil {
		logger.Warn("live updates unavailable", zap.String("series", series.Key().String()), zap.Error(err))
		return
	}
	s.mu.Lock()
	s.stopLive = stop
	s.mu.Unlock()
}

func (s *session) unfollow() {
	s.mu.Lock()
	stop := s.stopLive
	s.stopLive = nil
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
}

type sessionResponse struct {
	ID         string       `json:"id"`
	StrategyID string       `json:"strategy_id"`
	CreatedAt  time.Time    `json:"created_at"`
	State      replay.State `json:"state"`
}

type actionResponse struct {
	Applied bool            `json:"applied"`
	Effects []domain.Effect `json:"effects"`
	State   replay.State    `json:"state"`
}

func (s *session) response() sessionResponse {
	return sessionResponse{ID: s.ID, StrategyID: s.StrategyID, CreatedAt: s.CreatedAt, State: s.engine.State()}
}

func (s *session) action(effects []domain.Effect) actionResponse {
	if effects == nil {
		effects = []domain.Effect{}
	}
	return actionResponse{Applied: len(effects) > 0, Effects: effects, State: s.engine.State()}
}

type createSessionRequest struct {
	StrategyID string `json:"strategy_id" binding:"required"`
	Symbol     string `json:"symbol"`
	Interval   string `json:"interval"`
}

// createSession loads history for the key and creates a live-mode engine.
// Symbol and interval default to the strategy's.
func (s *Server) createSession(c *gin.Context) {
	ctx := c.Request.Context()

	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	st, err := s.strategies.GetByID(ctx, req.StrategyID)
	if err != nil {
		abort(c, err)
		return
	}

	key := domain.SeriesKey{Symbol: strings.ToUpper(req.Symbol), Interval: req.Interval}
	if key.Symbol == "" {
		key.Symbol = st.Symbol
	}
	if key.Interval == "" {
		key.Interval = st.Interval
	}
	if key.Symbol == "" || !domain.ValidInterval(key.Interval) {
		abort(c, fmt.Errorf("%w: symbol and a supported interval are required", errBadRequest))
		return
	}

	j, err := s.journalFor(ctx, st)
	if err != nil {
		abort(c, err)
		return
	}
	if s.history == nil {
		abort(c, errors.New("history source not configured"))
		return
	}
	history, err := s.history.FetchHistory(ctx, key)
	if err != nil {
		abort(c, fmt.Errorf("fetch history %s: %w", key, err))
		return
	}

	series := candles.NewSeries(key, history)
	sess := &session{
		ID:         uuid.NewString(),
		StrategyID: st.ID,
		CreatedAt:  time.Now().UTC(),
		engine: replay.NewEngine(replay.Options{
			Series: series,
			Sink:   j,
			Logger: s.logger.With(zap.String("series", key.String())),
		}),
		journal: j,
	}
	sess.follow(s.live, s.logger)

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	n := len(s.sessions)
	s.mu.Unlock()
	observability.SetActiveSessions(n)

	s.logger.Info("session created",
		zap.String("session_id", sess.ID),
		zap.String("strategy_id", st.ID),
		zap.String("series", key.String()),
		zap.Int("candles", series.Len()),
	)
	c.JSON(http.StatusCreated, sess.response())
}

func (s *Server) session(c *gin.Context) (*session, bool) {
	s.mu.Lock()
	sess, ok := s.sessions[c.Param("id")]
	s.mu.Unlock()
	if !ok {
		abort(c, errSessionNotFound)
		return nil, false
	}
	return sess, true
}

func (s *Server) getSession(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.response())
}

// deleteSession stops the replay (force-closing any position) and drops the session.
func (s *Server) deleteSession(c *gin.Context) {
	s.mu.Lock()
	sess, ok := s.sessions[c.Param("id")]
	delete(s.sessions, c.Param("id"))
	n := len(s.sessions)
	s.mu.Unlock()
	if !ok {
		abort(c, errSessionNotFound)
		return
	}

	sess.close(c.Request.Context())
	observability.SetActiveSessions(n)
	c.Status(http.StatusNoContent)
}

func (s *Server) sessionCandles(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"candles": sess.engine.Visible(), "state": sess.engine.State()})
}

type switchSeriesRequest struct {
	Symbol   string `json:"symbol" binding:"required"`
	Interval string `json:"interval" binding:"required"`
}

// switchSeries loads history for a new symbol or interval into the session.
// A running replay is stopped first.
func (s *Server) switchSeries(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req switchSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	key := domain.SeriesKey{Symbol: strings.ToUpper(req.Symbol), Interval: req.Interval}
	if !domain.ValidInterval(key.Interval) {
		abort(c, fmt.Errorf("%w: unsupported interval %q", errBadRequest, key.Interval))
		return
	}
	if s.history == nil {
		abort(c, errors.New("history source not configured"))
		return
	}

	ctx := c.Request.Context()
	history, err := s.history.FetchHistory(ctx, key)
	if err != nil {
		abort(c, fmt.Errorf("fetch history %s: %w", key, err))
		return
	}
	effects := sess.engine.Switch(ctx, key, history)
	sess.follow(s.live, s.logger)
	c.JSON(http.StatusOK, sess.action(effects))
}

// streamBuffer bounds the updates queued for one slow stream client.
const streamBuffer = 64

type candleUpdate struct {
	Result string        `json:"result"`
	Candle domain.Candle `json:"candle"`
}

// streamCandles sends the session state, then every appended or replaced
// live candle, as server-sent events until the client goes away. Updates
// beyond streamBuffer are dropped for a client that does not keep up.
func (s *Server) streamCandles(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	updates := make(chan candleUpdate, streamBuffer)
	unsubscribe := sess.engine.Series().Subscribe(func(cd domain.Candle, r candles.UpdateResult) {
		select {
		case updates <- candleUpdate{Result: r.String(), Candle: cd}:
		default:
		}
	})
	defer unsubscribe()

	c.SSEvent("state", sess.engine.State())
	c.Writer.Flush()

	done := c.Request.Context().Done()
	c.Stream(func(io.Writer) bool {
		select {
		case <-done:
			return false
		case u := <-updates:
			c.SSEvent("candle", u)
			return true
		}
	})
}

type startRequest struct {
	Time *int64 `json:"time" binding:"required"`
}

func (s *Server) startReplay(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	c.JSON(http.StatusOK, sess.action(sess.engine.Start(*req.Time)))
}

type advanceRequest struct {
	Steps int `json:"steps"`
}

// advanceReplay reveals up to steps candles (default 1), stopping early at
// the end of history.
func (s *Server) advanceReplay(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req advanceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
	}
	steps := req.Steps
	if steps == 0 {
		steps = 1
	}
	if steps < 0 || steps > maxAdvanceSteps {
		abort(c, fmt.Errorf("%w: steps must be in 1..%d", errBadRequest, maxAdvanceSteps))
		return
	}

	var effects []domain.Effect
	for i := 0; i < steps; i++ {
		step := sess.engine.Advance(c.Request.Context())
		if len(step) == 0 {
			break
		}
		effects = append(effects, step...)
	}
	c.JSON(http.StatusOK, sess.action(effects))
}

type openRequest struct {
	Side       domain.Side `json:"side" binding:"required"`
	Size       float64     `json:"size" binding:"required"`
	StopLoss   *float64    `json:"stop_loss"`
	TakeProfit *float64    `json:"take_profit"`
}

// openPosition validates input here so the engine never sees a bad size or side.
func (s *Server) openPosition(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req openRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if !req.Side.Valid() {
		abort(c, fmt.Errorf("%w: side must be long or short", errBadRequest))
		return
	}
	if !(req.Size > 0) || math.IsInf(req.Size, 0) {
		abort(c, fmt.Errorf("%w: size must be a positive number", errBadRequest))
		return
	}
	if !positive(req.StopLoss) || !positive(req.TakeProfit) {
		abort(c, fmt.Errorf("%w: stop loss and take profit must be positive", errBadRequest))
		return
	}
	c.JSON(http.StatusOK, sess.action(sess.engine.OpenPosition(req.Side, req.Size, req.StopLoss, req.TakeProfit)))
}

type closeRequest struct {
	Notes     string   `json:"notes"`
	ExitPrice *float64 `json:"exit_price"`
}

func (s *Server) closePosition(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req closeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abort(c, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
	}

	ctx := c.Request.Context()
	if req.ExitPrice != nil {
		if !positive(req.ExitPrice) {
			abort(c, fmt.Errorf("%w: exit price must be positive", errBadRequest))
			return
		}
		c.JSON(http.StatusOK, sess.action(sess.engine.ClosePositionAt(ctx, *req.ExitPrice, req.Notes)))
		return
	}
	c.JSON(http.StatusOK, sess.action(sess.engine.ClosePosition(ctx, req.Notes)))
}

func (s *Server) stopReplay(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.action(sess.engine.Stop(c.Request.Context())))
}

func positive(v *float64) bool {
	return v == nil || (*v > 0 && !math.IsInf(*v, 0))
}
