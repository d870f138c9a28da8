package eventqueue

import (
	"context"

	"github.com/nats-io/nats.go"
)

// natsSession wraps the single *nats.Conn a NATSBroker hands out as
// its opaque Session; NATS itself has no create/destroy-per-topic
// concept, so Create just validates the connection and Destroy
// flushes it.
type natsSession struct {
	conn *nats.Conn
}

// NATSBroker is a Broker backed by github.com/nats-io/nats.go,
// grounded in the natsx client's Publish(ctx, subject, data) method:
// NATS's fire-and-forget publish is the closest idiomatic match to
// the original's single-shot kafka_publish_message.
type NATSBroker struct {
	conn *nats.Conn
}

// NewNATSBroker wraps an already-connected *nats.Conn.
func NewNATSBroker(conn *nats.Conn) *NATSBroker {
	return &NATSBroker{conn: conn}
}

func (b *NATSBroker) Create(ctx context.Context, endpoint, topic string) (Session, error) {
	if b.conn == nil || !b.conn.IsConnected() {
		return nil, &PublishError{Err: nats.ErrConnectionClosed, Network: true}
	}
	return &natsSession{conn: b.conn}, nil
}

func (b *NATSBroker) Publish(ctx context.Context, session Session, topic string, payload []byte) error {
	s, ok := session.(*natsSession)
	if !ok || s.conn == nil {
		return &PublishError{Err: nats.ErrConnectionClosed, Network: true}
	}
	if err := s.conn.Publish(topic, payload); err != nil {
		return classifyNATSError(err)
	}
	return nil
}

func (b *NATSBroker) Destroy(session Session) {
	if s, ok := session.(*natsSession); ok && s.conn != nil {
		_ = s.conn.Flush()
	}
}

// classifyNATSError maps nats.go's sentinel errors onto the
// dispatcher's retry/network predicates.
func classifyNATSError(err error) error {
	switch err {
	case nats.ErrConnectionClosed, nats.ErrConnectionDraining, nats.ErrDisconnected, nats.ErrNoServers, nats.ErrTimeout:
		return &PublishError{Err: err, Network: true}
	case nats.ErrMaxPayload, nats.ErrBadSubject:
		return &PublishError{Err: err}
	default:
		return &PublishError{Err: err, Retry: true}
	}
}
