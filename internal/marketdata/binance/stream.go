package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
	"go.uber.org/zap"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/candles"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/observability"
)

// DefaultStreamURL is the Binance spot raw stream endpoint.
const DefaultStreamURL = "wss://stream.binance.com:9443/ws"

// StreamConfig configures kline stream behavior.
type StreamConfig struct {
	// BaseURL is the raw stream endpoint; the stream name is appended as a path segment.
	BaseURL string
	// MinReconnectDelay is the first delay before a reconnect attempt.
	MinReconnectDelay time.Duration
	// MaxReconnectDelay caps the exponential reconnect delay.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is the longest silence tolerated before reconnecting.
	ReadTimeout time.Duration
	// WriteTimeout bounds control frame writes.
	WriteTimeout time.Duration
}

// DefaultStreamConfig returns default stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		BaseURL:           DefaultStreamURL,
		MinReconnectDelay: 1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// StreamClient implements candles.LiveSource over the kline websocket stream.
// Every subscription owns its own connection.
type StreamClient struct {
	config StreamConfig
	dialer websocket.Dialer
	logger *zap.Logger
}

// NewStreamClient creates a stream client. A nil config uses DefaultStreamConfig.
func NewStreamClient(config *StreamConfig, logger *zap.Logger) *StreamClient {
	cfg := DefaultStreamConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &StreamClient{
		config: cfg,
		dialer: websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger: logger,
	}
}

var _ candles.LiveSource = (*StreamClient)(nil)

// StreamName returns the Binance stream name for key, e.g. "btcusdt@kline_1h".
func StreamName(key domain.SeriesKey) string {
	return strings.ToLower(key.Symbol) + "@kline_" + key.Interval
}

// Subscribe dials the stream for key and delivers every kline update to
// onCandle until unsubscribe is called or ctx is done. The first dial is
// synchronous; later disconnects are retried with exponential backoff.
func (c *StreamClient) Subscribe(ctx context.Context, key domain.SeriesKey, onCandle func(domain.Candle)) (func(), error) {
	url := strings.TrimRight(c.config.BaseURL, "/") + "/" + StreamName(key)

	conn, err := c.dial(ctx, url)
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(context.Background())
	s := &subscription{
		client:   c,
		url:      url,
		onCandle: onCandle,
		ctx:      subCtx,
		cancel:   cancel,
		conn:     conn,
		logger:   c.logger.With(zap.String("stream", StreamName(key))),
	}
	stop := context.AfterFunc(ctx, s.close)

	go s.run(conn)

	return func() {
		stop()
		s.close()
	}, nil
}

func (c *StreamClient) dial(ctx context.Context, url string) (*websocket.Conn, error) {
	conn, _, err := c.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}

type subscription struct {
	client   *StreamClient
	url      string
	onCandle func(domain.Candle)
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool

	connMu sync.Mutex
	conn   *websocket.Conn
}

// close is idempotent.
func (s *subscription) close() {
	if s.closed.Swap(true) {
		return
	}
	s.cancel()

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.SetWriteDeadline(time.Now().Add(s.client.config.WriteTimeout))
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()
}

// setConn installs a reconnected connection unless the subscription closed meanwhile.
func (s *subscription) setConn(conn *websocket.Conn) bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.closed.Load() {
		return false
	}
	s.conn = conn
	return true
}

func (s *subscription) run(conn *websocket.Conn) {
	b := &backoff.Backoff{
		Min:    s.client.config.MinReconnectDelay,
		Max:    s.client.config.MaxReconnectDelay,
		Factor: 2,
		Jitter: true,
	}

	for {
		err := s.readLoop(conn)
		if s.closed.Load() {
			return
		}
		s.logger.Warn("kline stream disconnected", zap.Error(err))

		conn = s.reconnect(b)
		if conn == nil {
			return
		}
	}
}

// reconnect dials until it succeeds or the subscription closes.
func (s *subscription) reconnect(b *backoff.Backoff) *websocket.Conn {
	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()

	for {
		delay := b.Duration()
		select {
		case <-s.ctx.Done():
			return nil
		case <-time.After(delay):
		}

		observability.RecordStreamReconnect()
		conn, err := s.client.dial(s.ctx, s.url)
		if err != nil {
			s.logger.Warn("kline stream reconnect failed",
				zap.Duration("delay", delay),
				zap.Error(err))
			continue
		}

		if !s.setConn(conn) {
			conn.Close()
			return nil
		}
		b.Reset()
		s.logger.Info("kline stream reconnected")
		return conn
	}
}

// readLoop reads until the connection fails, keeping it alive with pings.
func (s *subscription) readLoop(conn *websocket.Conn) error {
	cfg := s.client.config

	stopPing := make(chan struct{})
	defer close(stopPing)
	go s.pingLoop(conn, stopPing)

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	})

	for {
		conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		c, ok, err := parseKlineMessage(message)
		if err != nil {
			s.logger.Debug("skipping malformed kline message", zap.Error(err))
			continue
		}
		if ok && !s.closed.Load() {
			s.onCandle(c)
		}
	}
}

func (s *subscription) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(s.client.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn == conn {
				conn.SetWriteDeadline(time.Now().Add(s.client.config.WriteTimeout))
				// A failed ping surfaces as a read error.
				_ = conn.WriteMessage(websocket.PingMessage, nil)
			}
			s.connMu.Unlock()
		}
	}
}

type wsKlineEvent struct {
	EventType string  `json:"e"`
	Symbol    string  `json:"s"`
	Kline     wsKline `json:"k"`
}

type wsKline struct {
	StartTime int64  `json:"t"`
	Interval  string `json:"i"`
	Open      string `json:"o"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Close     string `json:"c"`
	IsFinal   bool   `json:"x"`
}

// parseKlineMessage decodes a kline event. ok is false for other event types.
func parseKlineMessage(message []byte) (domain.Candle, bool, error) {
	var ev wsKlineEvent
	if err := json.Unmarshal(message, &ev); err != nil {
		return domain.Candle{}, false, fmt.Errorf("decode event: %w", err)
	}
	if ev.EventType != "kline" {
		return domain.Candle{}, false, nil
	}

	c, err := toCandle(ev.Kline.StartTime, ev.Kline.Open, ev.Kline.High, ev.Kline.Low, ev.Kline.Close)
	if err != nil {
		return domain.Candle{}, false, err
	}
	return c, true, nil
}
