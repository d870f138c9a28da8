package eventqueue

import (
	"testing"
	"time"
)

func TestQueuePushBackOrder(t *testing.T) {
	q := newQueue()
	q.pushBack(Message{Payload: []byte("a")})
	q.pushBack(Message{Payload: []byte("b")})

	m, ok := q.popTimeout(10 * time.Millisecond)
	if !ok || string(m.Payload) != "a" {
		t.Fatalf("expected a first, got %v ok=%v", m, ok)
	}
}

func TestQueuePushFrontTakesPriority(t *testing.T) {
	q := newQueue()
	q.pushBack(Message{Payload: []byte("a")})
	q.pushFront(Message{Payload: []byte("retry")})

	m, ok := q.popTimeout(10 * time.Millisecond)
	if !ok || string(m.Payload) != "retry" {
		t.Fatalf("expected retry first, got %v ok=%v", m, ok)
	}
}

func TestQueuePopTimeoutOnEmpty(t *testing.T) {
	q := newQueue()
	start := time.Now()
	_, ok := q.popTimeout(20 * time.Millisecond)
	if ok {
		t.Fatalf("expected no message")
	}
	if time.Since(start) < 15*time.Millisecond {
		t.Fatalf("expected popTimeout to actually wait")
	}
}
