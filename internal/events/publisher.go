// Package events publishes journal changes to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/s1zeNof/SenzoCrypto-sub001/internal/domain"
	"github.com/s1zeNof/SenzoCrypto-sub001/internal/journal"
)

// SubjectPrefix is the root of every published subject.
const SubjectPrefix = "journal.trades"

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Message is the JSON payload of a trade event.
type Message struct {
	Event       journal.EventKind `json:"event"`
	StrategyID  string            `json:"strategy_id"`
	LocalID     string            `json:"local_id"`
	Status      journal.Status    `json:"status"`
	Error       string            `json:"error,omitempty"`
	Trade       *domain.Trade     `json:"trade,omitempty"`
	PublishedAt int64             `json:"published_at"` // Unix milliseconds
}

// Publisher forwards journal events to NATS. It implements journal.Listener.
// Publish failures are logged and dropped.
type Publisher struct {
	conn   Conn
	logger *zap.Logger
	now    func() time.Time
}

var _ journal.Listener = (*Publisher)(nil)

// NewPublisher creates a publisher on conn. A nil logger disables logging.
func NewPublisher(conn Conn, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{conn: conn, logger: logger, now: time.Now}
}

// Subject returns the subject for a strategy's event:
// journal.trades.<strategyID>.<event>. Dots and wildcards in the strategy ID
// are replaced so the ID stays a single token.
func Subject(strategyID string, kind journal.EventKind) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, subjectToken(strategyID), kind)
}

// OnJournalEvent publishes ev.
func (p *Publisher) OnJournalEvent(_ context.Context, ev journal.Event) {
	msg := Message{
		Event:       ev.Kind,
		StrategyID:  ev.StrategyID,
		LocalID:     ev.Entry.LocalID,
		Status:      ev.Entry.Status,
		Error:       ev.Entry.Error,
		Trade:       ev.Entry.Trade,
		PublishedAt: p.now().UnixMilli(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		p.logger.Error("failed to encode journal event", zap.Error(err))
		return
	}

	subject := Subject(ev.StrategyID, ev.Kind)
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Error("failed to publish journal event",
			zap.String("subject", subject),
			zap.Error(err),
		)
		return
	}
	p.logger.Debug("journal event published", zap.String("subject", subject))
}

// Connect dials NATS with reconnect handling logged through logger.
func Connect(url string, logger *zap.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.Name("senzo-replay"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return nc, nil
}

func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(s)
}
