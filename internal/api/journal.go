package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/journal"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/position"
)

func (s *Server) strategyJournal(c *gin.Context) (*journal.Journal, bool) {
	ctx := c.Request.Context()
	st, err := s.strategies.GetByID(ctx, c.Param("id"))
	if err != nil {
		abort(c, err)
		return nil, false
	}
	j, err := s.journalFor(ctx, st)
	if err != nil {
		abort(c, err)
		return nil, false
	}
	return j, true
}

func (s *Server) listJournal(c *gin.Context) {
	j, ok := s.strategyJournal(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": j.Entries(), "stats": j.Stats()})
}

type createEntryRequest struct {
	Symbol     string      `json:"symbol"`
	Interval   string      `json:"interval"`
	Side       domain.Side `json:"side" binding:"required"`
	EntryPrice float64     `json:"entry_price" binding:"required"`
	ExitPrice  float64     `json:"exit_price" binding:"required"`
	Size       float64     `json:"size" binding:"required"`
	StopLoss   *float64    `json:"stop_loss"`
	TakeProfit *float64    `json:"take_profit"`
	EntryTime  int64       `json:"entry_time"`
	ExitTime   int64       `json:"exit_time"`
	Notes      string      `json:"notes"`
}

// createEntry journals a trade taken outside a replay session. Derived
// fields are computed here; the write is synchronous.
func (s *Server) createEntry(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := s.strategies.GetByID(ctx, c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	var req createEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if !req.Side.Valid() {
		abort(c, fmt.Errorf("%w: side must be long or short", errBadRequest))
		return
	}
	if !positive(&req.Size) || !positive(&req.EntryPrice) || !positive(&req.ExitPrice) {
		abort(c, fmt.Errorf("%w: size and prices must be positive numbers", errBadRequest))
		return
	}
	if !positive(req.StopLoss) || !positive(req.TakeProfit) {
		abort(c, fmt.Errorf("%w: stop loss and take profit must be positive", errBadRequest))
		return
	}
	if req.ExitTime < req.EntryTime {
		abort(c, fmt.Errorf("%w: exit time before entry time", errBadRequest))
		return
	}

	trade := &domain.Trade{
		Symbol:     strings.ToUpper(req.Symbol),
		Interval:   req.Interval,
		Side:       req.Side,
		EntryPrice: req.EntryPrice,
		ExitPrice:  req.ExitPrice,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		Size:       req.Size,
		EntryTime:  req.EntryTime,
		ExitTime:   req.ExitTime,
		ExitReason: domain.ExitReasonManual,
		Notes:      req.Notes,
	}
	if trade.Symbol == "" {
		trade.Symbol = st.Symbol
	}
	if trade.Interval == "" {
		trade.Interval = st.Interval
	}
	position.Recompute(trade)

	j, err := s.journalFor(ctx, st)
	if err != nil {
		abort(c, err)
		return
	}
	e, err := j.Record(ctx, trade)
	if err != nil {
		if e.LocalID != "" {
			c.JSON(http.StatusBadGateway, e)
			return
		}
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (s *Server) updateEntry(c *gin.Context) {
	j, ok := s.strategyJournal(c)
	if !ok {
		return
	}
	var patch domain.TradePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		abort(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if patch.Empty() {
		abort(c, fmt.Errorf("%w: empty patch", errBadRequest))
		return
	}
	if patch.Side != nil && !patch.Side.Valid() {
		abort(c, fmt.Errorf("%w: invalid side %q", errBadRequest, *patch.Side))
		return
	}
	if !positive(patch.Size) {
		abort(c, fmt.Errorf("%w: size must be a positive number", errBadRequest))
		return
	}
	if !positive(patch.EntryPrice) || !positive(patch.ExitPrice) {
		abort(c, fmt.Errorf("%w: entry and exit prices must be positive", errBadRequest))
		return
	}
	if !positive(patch.StopLoss) || !positive(patch.TakeProfit) {
		abort(c, fmt.Errorf("%w: stop loss and take profit must be positive", errBadRequest))
		return
	}

	e, err := j.Update(c.Request.Context(), c.Param("entry"), patch)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (s *Server) deleteEntry(c *gin.Context) {
	j, ok := s.strategyJournal(c)
	if !ok {
		return
	}
	if err := j.Delete(c.Request.Context(), c.Param("entry")); err != nil {
		abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) retryEntry(c *gin.Context) {
	j, ok := s.strategyJournal(c)
	if !ok {
		return
	}
	e, err := j.Retry(c.Request.Context(), c.Param("entry"))
	if err != nil {
		if e.LocalID != "" {
			// The entry failed again; report it with its new error.
			c.JSON(http.StatusBadGateway, e)
			return
		}
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (s *Server) discardEntry(c *gin.Context) {
	j, ok := s.strategyJournal(c)
	if !ok {
		return
	}
	if err := j.Discard(c.Param("entry")); err != nil {
		abort(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
