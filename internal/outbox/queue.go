// Package outbox hands finished boards from the station worker to the report
// collector. Boards are queued in memory, uploaded in the background, and
// boards that could not be delivered are kept in a failure file that survives
// restarts.
package outbox

import (
	"sync"

	"github.com/buckleypaul/jig/internal/pipeline"
)

// Queue holds boards waiting for upload. Enqueue never blocks on the
// uploader.
type Queue struct {
	mu     sync.Mutex
	boards []*pipeline.Board
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue hands b over to the outbox. The caller must not modify b afterwards.
func (q *Queue) Enqueue(b *pipeline.Board) {
	if b == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.boards = append(q.boards, b)
}

// Drain removes and returns every pending board in enqueue order.
func (q *Queue) Drain() []*pipeline.Board {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.boards
	q.boards = nil
	return out
}

// Len returns the number of pending boards.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.boards)
}
