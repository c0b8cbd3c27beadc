package manager

import "sync"

// Queue is a LIFO of capture paths shared by the workers.
type Queue struct {
	mu    sync.Mutex
	items []string
}

// NewQueue returns a queue that pops items in their given order.
func NewQueue(items []string) *Queue {
	reversed := make([]string, len(items))
	for i, item := range items {
		reversed[len(items)-1-i] = item
	}
	return &Queue{items: reversed}
}

// Pop removes and returns the next item. ok is false once the queue is empty.
func (q *Queue) Pop() (item string, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	if n == 0 {
		return "", false
	}
	item = q.items[n-1]
	q.items = q.items[:n-1]
	return item, true
}

// Len returns the number of items left.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
