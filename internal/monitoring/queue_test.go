package monitoring

import "testing"

func TestContextQueueFIFOOrder(t *testing.T) {
	var q contextQueue
	c1 := &Context{}
	c2 := &Context{}
	c3 := &Context{}

	q.push(c1)
	q.push(c2)
	q.push(c3)

	if got := q.pop(); got != c1 {
		t.Errorf("expected FIFO order, got %p want %p", got, c1)
	}
	if got := q.pop(); got != c2 {
		t.Errorf("expected FIFO order, got %p want %p", got, c2)
	}
	if got := q.pop(); got != c3 {
		t.Errorf("expected FIFO order, got %p want %p", got, c3)
	}
}

func TestContextQueuePopEmptyReturnsNil(t *testing.T) {
	var q contextQueue
	if got := q.pop(); got != nil {
		t.Errorf("expected nil from an empty queue, got %v", got)
	}
}

func TestContextQueueEmpty(t *testing.T) {
	var q contextQueue
	if !q.empty() {
		t.Error("a freshly constructed queue should be empty")
	}
	q.push(&Context{})
	if q.empty() {
		t.Error("queue should not be empty after a push")
	}
}

func TestContextQueueClearDiscardsPending(t *testing.T) {
	var q contextQueue
	q.push(&Context{})
	q.push(&Context{})
	q.clear()
	if !q.empty() {
		t.Error("expected clear to drain the queue")
	}
}
