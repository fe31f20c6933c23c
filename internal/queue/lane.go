package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrEmptyLaneID is returned when Do is called with an empty lane ID.
	ErrEmptyLaneID = errors.New("queue: lane ID must not be empty")
	// ErrClosed is returned when Do is called after Close.
	ErrClosed = errors.New("queue: closed")
)

// workItem is a unit of work submitted to a lane.
type workItem struct {
	ctx  context.Context
	fn   func() error
	done chan error
}

// lane processes work items sequentially via a single goroutine.
type lane struct {
	work chan workItem
	quit <-chan struct{}
}

// run is the lane's worker loop. It processes items from the work channel in
// FIFO order until quit closes. Items whose context ended while queued are
// skipped.
func (l *lane) run() {
	for {
		select {
		case <-l.quit:
			return
		case item := <-l.work:
			if item.ctx.Err() != nil {
				item.done <- item.ctx.Err()
				continue
			}
			item.done <- safeExec(item.fn)
		}
	}
}

// safeExec runs fn and recovers from panics, converting them to errors.
func safeExec(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("queue: panic: %v", r)
		}
	}()
	return fn()
}

// defaultLaneBufferSize is the capacity of each lane's work channel.
const defaultLaneBufferSize = 256

// LaneQueue serializes work per lane. The broker uses one lane per serial
// tool, so calls to that tool run one at a time in submission order while
// calls to other tools proceed concurrently.
type LaneQueue struct {
	mu         sync.Mutex
	lanes      map[string]*lane
	bufferSize int
	closed     bool
	quit       chan struct{}
}

// NewLaneQueue creates a new LaneQueue ready for use.
func NewLaneQueue() *LaneQueue {
	return &LaneQueue{
		lanes:      make(map[string]*lane),
		bufferSize: defaultLaneBufferSize,
		quit:       make(chan struct{}),
	}
}

// Do executes fn serially within the given lane. It blocks until the work
// completes or the context ends. Returns the error from fn, or ctx.Err() if
// the context ends while waiting. A panic in fn is returned as an error.
func (q *LaneQueue) Do(ctx context.Context, laneID string, fn func() error) error {
	if laneID == "" {
		return ErrEmptyLaneID
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l, err := q.getOrCreateLane(laneID)
	if err != nil {
		return err
	}
	item := workItem{
		ctx:  ctx,
		fn:   fn,
		done: make(chan error, 1),
	}

	select {
	case l.work <- item:
	case <-ctx.Done():
		return ctx.Err()
	case <-q.quit:
		return ErrClosed
	}

	select {
	case err := <-item.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-q.quit:
		return ErrClosed
	}
}

// getOrCreateLane returns the lane for laneID, creating it (with a worker
// goroutine) if it doesn't exist.
func (q *LaneQueue) getOrCreateLane(laneID string) (*lane, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrClosed
	}
	if l, ok := q.lanes[laneID]; ok {
		return l, nil
	}
	l := &lane{
		work: make(chan workItem, q.bufferSize),
		quit: q.quit,
	}
	q.lanes[laneID] = l
	go l.run()
	return l, nil
}

// LaneCount returns the number of active lanes.
func (q *LaneQueue) LaneCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lanes)
}

// Close stops all lane workers. Work already running finishes; queued and
// in-flight Do calls return ErrClosed, as does every later Do. Close is safe
// to call concurrently with Do.
func (q *LaneQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.quit)
	for id := range q.lanes {
		delete(q.lanes, id)
	}
}
