package session

import (
	"bytes"
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/pktwire/internal/future"
	"github.com/danmuck/pktwire/internal/testutil/testlog"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSendQueueWritesInOrder(t *testing.T) {
	testlog.Start(t)
	var out lockedBuffer
	q := NewSendQueue(&out, SendQueueConfig{Yield: -1})
	defer q.Close(ErrConnectionClosed)

	var futs []*future.Future[int]
	for _, s := range []string{"a", "bb", "ccc", "dddd"} {
		futs = append(futs, q.Enqueue([]byte(s)))
	}
	for i, f := range futs {
		n, err := f.Wait(context.Background())
		if err != nil || n != i+1 {
			t.Fatalf("item %d: n=%d err=%v", i, n, err)
		}
	}
	if got := out.String(); got != "abbcccdddd" {
		t.Fatalf("unexpected write order %q", got)
	}
}

func TestSendQueueCloseFailsQueued(t *testing.T) {
	testlog.Start(t)
	local, remote := net.Pipe()
	q := NewSendQueue(local, SendQueueConfig{})

	const m = 4
	var futs []*future.Future[int]
	for i := 0; i < m; i++ {
		futs = append(futs, q.Enqueue([]byte("blocked")))
	}
	// first item is stuck in Write since nobody reads remote
	waitFor(t, func() bool { return q.Len() == m-1 })

	if n := q.Close(ErrConnectionClosed); n != m-1 {
		t.Fatalf("drained=%d want %d", n, m-1)
	}
	_ = local.Close()
	_ = remote.Close()
	for i, f := range futs {
		if _, err := f.Wait(context.Background()); !errors.Is(err, ErrConnectionClosed) {
			t.Fatalf("item %d: expected ErrConnectionClosed, got %v", i, err)
		}
	}
	select {
	case <-q.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("writer did not exit")
	}
	if _, err := q.Enqueue([]byte("late")).Wait(context.Background()); !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("enqueue after close: %v", err)
	}
}

func TestSendQueueCapacity(t *testing.T) {
	testlog.Start(t)
	local, remote := net.Pipe()
	defer remote.Close()
	defer local.Close()
	q := NewSendQueue(local, SendQueueConfig{Capacity: 1})
	defer q.Close(ErrConnectionClosed)

	q.Enqueue([]byte("in-flight"))
	waitFor(t, func() bool { return q.Len() == 0 })
	q.Enqueue([]byte("queued"))
	if _, err := q.Enqueue([]byte("overflow")).Wait(context.Background()); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}
