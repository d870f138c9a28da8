package eventqueue

import "sync"

// overwritableBuffer coalesces same-key events before they hit the
// wire: a later SendOverwritable for a key already pending simply
// replaces the buffered payload, matching the original's
// oio_events_queue_buffer. Ported as a supplemented feature (see
// SPEC_FULL.md §10.5) since spec.md names the periodic flush step but
// never the insertion API.
type overwritableBuffer struct {
	mu      sync.Mutex
	topic   string
	pending map[string][]byte
	order   []string
}

func newOverwritableBuffer(topic string) *overwritableBuffer {
	return &overwritableBuffer{topic: topic, pending: make(map[string][]byte)}
}

// put inserts or replaces the buffered payload for key.
func (b *overwritableBuffer) put(key string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.pending[key]; !exists {
		b.order = append(b.order, key)
	}
	b.pending[key] = payload
}

// drain removes and returns every buffered message in insertion
// order, clearing the buffer. Used by both the periodic flush and the
// forced shutdown flush.
func (b *overwritableBuffer) drain() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.order) == 0 {
		return nil
	}
	out := make([]Message, 0, len(b.order))
	for _, k := range b.order {
		if payload, ok := b.pending[k]; ok {
			out = append(out, Message{Topic: b.topic, Payload: payload})
		}
	}
	b.pending = make(map[string][]byte)
	b.order = nil
	return out
}

func (b *overwritableBuffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.order)
}
