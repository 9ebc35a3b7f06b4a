package sender

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSameKeyKeepsOrder(t *testing.T) {
	d := NewDispatcher(Options{Workers: 3, QueueSize: 8})

	var (
		mu  sync.Mutex
		got []int
	)
	for i := 0; i < 40; i++ {
		i := i
		require.NoError(t, d.Enqueue(context.Background(), 7, "send", "sendMessage", func() error {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			return nil
		}))
	}
	d.Close()

	require.Len(t, got, 40)
	for i, v := range got {
		require.Equal(t, i, v)
	}
}

func TestRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})

	calls := 0
	require.NoError(t, d.Enqueue(context.Background(), 1, "send", "sendMessage", func() error {
		calls++
		if calls == 1 {
			return &net.OpError{Op: "dial", Err: errors.New("connection refused")}
		}
		return nil
	}))
	d.Close()

	require.Equal(t, 2, calls)
	require.Zero(t, d.ErrorCount())
}

func TestPermanentErrorIsCounted(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond})

	calls := 0
	require.NoError(t, d.Enqueue(context.Background(), 1, "send", "sendMessage", func() error {
		calls++
		return errors.New("bad request")
	}))
	d.Close()

	require.Equal(t, 1, calls)
	require.EqualValues(t, 1, d.ErrorCount())
}

func TestEnqueueAfterClose(t *testing.T) {
	d := NewDispatcher(Options{})
	d.Close()
	d.Close()
	err := d.Enqueue(context.Background(), 1, "send", "sendMessage", func() error { return nil })
	require.ErrorIs(t, err, ErrQueueClosed)
	require.Error(t, d.Enqueue(context.Background(), 1, "send", "", nil))
}

func TestRedactToken(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AA-bb_CC/sendMessage": timeout`)
	require.Equal(t, `Post "https://api.telegram.org/bot<redacted>/sendMessage": timeout`, redactToken(err))
}
