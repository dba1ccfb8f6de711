package sender

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestDoRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	defer d.Close()

	var calls atomic.Int32
	err := d.Do(context.Background(), "send.test", "sendMessage", func() error {
		if calls.Add(1) < 3 {
			return &net.OpError{Op: "dial", Err: errors.New("refused")}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Zero(t, d.ErrorCount())
}

func TestDoStopsOnPermanentError(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond})
	defer d.Close()

	var calls atomic.Int32
	boom := errors.New("bad request")
	err := d.Do(context.Background(), "send.test", "", func() error {
		calls.Add(1)
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, uint64(1), d.ErrorCount())
}

func TestEnqueueRunsAndClose(t *testing.T) {
	d := NewDispatcher(Options{Workers: 2, QueueSize: 4})
	done := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		require.NoError(t, d.Enqueue(context.Background(), "delete", "deleteMessage", func() error {
			done <- struct{}{}
			return nil
		}))
	}
	d.Close()
	assert.Len(t, done, 2)
	assert.ErrorIs(t, d.Enqueue(context.Background(), "x", "", func() error { return nil }), ErrQueueClosed)
}

func TestClassifyAndRedact(t *testing.T) {
	assert.Equal(t, "dial", classifyError(&net.OpError{Op: "dial", Err: errors.New("x")}))
	assert.Equal(t, "timeout", classifyError(context.DeadlineExceeded))
	assert.Equal(t, "flood", classifyError(tele.FloodError{RetryAfter: 1}))
	assert.Equal(t, "unknown", classifyError(errors.New("x")))
	assert.Equal(t, `Post "https://api.telegram.org/bot<redacted>/send": EOF`,
		sanitizeErrorMessage(errors.New(`Post "https://api.telegram.org/bot123:AbC-d_e/send": EOF`)))
}
