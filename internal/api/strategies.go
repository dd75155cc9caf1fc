package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/reporting"
)

var errBadRequest = errors.New("bad request")

type createStrategyRequest struct {
	Name        string `json:"name" binding:"required"`
	Symbol      string `json:"symbol"`
	Interval    string `json:"interval"`
	Description string `json:"description"`
}

func (s *Server) createStrategy(c *gin.Context) {
	var req createStrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if req.Interval != "" && !domain.ValidInterval(req.Interval) {
		abort(c, fmt.Errorf("%w: unsupported interval %q", errBadRequest, req.Interval))
		return
	}

	st, err := s.strategies.Create(c.Request.Context(), &domain.Strategy{
		OwnerID:     ownerID(c),
		Name:        req.Name,
		Symbol:      strings.ToUpper(req.Symbol),
		Interval:    req.Interval,
		Description: req.Description,
	})
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (s *Server) listStrategies(c *gin.Context) {
	list, err := s.strategies.ListByOwner(c.Request.Context(), ownerID(c))
	if err != nil {
		abort(c, err)
		return
	}
	if list == nil {
		list = []*domain.Strategy{}
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) getStrategy(c *gin.Context) {
	st, err := s.strategies.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// deleteStrategy removes the strategy and, through the store, its trades.
func (s *Server) deleteStrategy(c *gin.Context) {
	id := c.Param("id")
	if err := s.strategies.Delete(c.Request.Context(), id); err != nil {
		abort(c, err)
		return
	}

	s.mu.Lock()
	delete(s.journals, id)
	s.mu.Unlock()

	c.Status(http.StatusNoContent)
}

// strategyStats returns live journal stats (confirmed and pending trades).
func (s *Server) strategyStats(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	st, err := s.strategies.GetByID(ctx, id)
	if err != nil {
		abort(c, err)
		return
	}
	j, err := s.journalFor(ctx, st)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, j.Stats())
}

// strategyReport renders the persisted journal as markdown (default) or csv.
func (s *Server) strategyReport(c *gin.Context) {
	r, err := s.reports.Generate(c.Request.Context(), c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}

	switch format := c.DefaultQuery("format", "markdown"); format {
	case "markdown", "md":
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(reporting.RenderMarkdown(r)))
	case "csv":
		out, err := reporting.RenderTradesCSV(r.Trades)
		if err != nil {
			abort(c, err)
			return
		}
		c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(out))
	default:
		abort(c, fmt.Errorf("%w: unknown format %q", errBadRequest, format))
	}
}
