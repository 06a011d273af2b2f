package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is where finished-match records are published. The
// record-keeping backend subscribes to it.
const DefaultSubject = "memory.match.outcomes"

// NATS publishes outcomes to a NATS subject.
type NATS struct {
	nc      *nats.Conn
	subject string
}

// ConnectNATS dials the broker and returns a publishing bridge.
func ConnectNATS(url string) (*NATS, error) {
	opts := []nats.Option{
		nats.Name("memory-match-server"),
		nats.Timeout(10 * time.Second),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(5),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return &NATS{nc: nc, subject: DefaultSubject}, nil
}

// NewNATS wraps an existing connection, publishing to the given subject.
// An empty subject selects DefaultSubject.
func NewNATS(nc *nats.Conn, subject string) *NATS {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATS{nc: nc, subject: subject}
}

// SubmitOutcome publishes the outcome record as JSON.
func (b *NATS) SubmitOutcome(ctx context.Context, outcome *Outcome) error {
	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome for game %s: %w", outcome.GameID, err)
	}
	if err := b.nc.Publish(b.subject, data); err != nil {
		return fmt.Errorf("failed to publish outcome for game %s: %w", outcome.GameID, err)
	}
	return nil
}

// Close flushes pending publishes and drops the connection.
func (b *NATS) Close() {
	if b.nc != nil {
		b.nc.Flush()
		b.nc.Close()
	}
}
