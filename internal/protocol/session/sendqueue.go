package session

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/danmuck/pktwire/internal/future"
	"github.com/danmuck/pktwire/internal/observability"
	"github.com/eapache/queue"
)

type deadlineWriter interface {
	SetWriteDeadline(t time.Time) error
}

type outboundFrame struct {
	frame  []byte
	settle future.Settle[int]
	after  func(n int, err error)
}

func (f *outboundFrame) finish(n int, err error) {
	f.settle(n, err)
	if f.after != nil {
		f.after(n, err)
	}
}

// SendQueueConfig controls writer pacing.
type SendQueueConfig struct {
	Capacity     int
	WriteTimeout time.Duration
	Yield        time.Duration

	// OnError observes write failures; the queue keeps draining.
	OnError func(error)
}

// SendQueue writes frames to w one at a time in enqueue order from a single
// writer goroutine.
type SendQueue struct {
	w   io.Writer
	cfg SendQueueConfig

	mu       sync.Mutex
	cond     *sync.Cond
	items    *queue.Queue
	closed   bool
	closeErr error
	stop     chan struct{}
	done     chan struct{}
}

func NewSendQueue(w io.Writer, cfg SendQueueConfig) *SendQueue {
	q := &SendQueue{
		w:     w,
		cfg:   cfg,
		items: queue.New(),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// Enqueue schedules frame for writing. The future resolves with the byte
// count once the whole frame is written.
func (q *SendQueue) Enqueue(frame []byte) *future.Future[int] {
	return q.push(frame, nil)
}

func (q *SendQueue) push(frame []byte, after func(int, error)) *future.Future[int] {
	fut, settle := future.New[int]()
	item := &outboundFrame{frame: frame, settle: settle, after: after}

	q.mu.Lock()
	if q.closed {
		err := q.closeErr
		q.mu.Unlock()
		item.finish(0, err)
		return fut
	}
	if q.cfg.Capacity > 0 && q.items.Length() >= q.cfg.Capacity {
		q.mu.Unlock()
		item.finish(0, ErrQueueFull)
		return fut
	}
	q.items.Add(item)
	q.cond.Signal()
	q.mu.Unlock()
	return fut
}

func (q *SendQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

// Close fails every queued frame with err and stops the writer. A frame
// already being written settles when its write returns.
func (q *SendQueue) Close(err error) int {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return 0
	}
	q.closed = true
	q.closeErr = err
	drained := make([]*outboundFrame, 0, q.items.Length())
	for q.items.Length() > 0 {
		drained = append(drained, q.items.Remove().(*outboundFrame))
	}
	close(q.stop)
	q.cond.Broadcast()
	q.mu.Unlock()

	for _, item := range drained {
		item.finish(0, err)
	}
	return len(drained)
}

// Done is closed once the writer goroutine has exited.
func (q *SendQueue) Done() <-chan struct{} {
	return q.done
}

func (q *SendQueue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for q.items.Length() == 0 && !q.closed {
			q.cond.Wait()
		}
		if q.closed {
			q.mu.Unlock()
			return
		}
		item := q.items.Remove().(*outboundFrame)
		q.mu.Unlock()

		n, err := q.write(item.frame)
		if err != nil {
			q.mu.Lock()
			closed, closeErr := q.closed, q.closeErr
			q.mu.Unlock()
			if closed {
				err = errors.Join(closeErr, err)
			}
			item.finish(n, err)
			if q.cfg.OnError != nil && !closed {
				q.cfg.OnError(err)
			}
			continue
		}
		item.finish(n, nil)

		if q.cfg.Yield > 0 {
			select {
			case <-time.After(q.cfg.Yield):
			case <-q.stop:
			}
		}
	}
}

func (q *SendQueue) write(buf []byte) (int, error) {
	if dw, ok := q.w.(deadlineWriter); ok && q.cfg.WriteTimeout > 0 {
		_ = dw.SetWriteDeadline(time.Now().Add(q.cfg.WriteTimeout))
	}
	total := 0
	for total < len(buf) {
		n, err := q.w.Write(buf[total:])
		total += n
		observability.RecordBytes("out", n)
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.ErrShortWrite
		}
	}
	return total, nil
}
