package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ishpreet160/CertFlow/internal/apierror"
	"github.com/ishpreet160/CertFlow/internal/infra"
	"github.com/ishpreet160/CertFlow/internal/testutil"
)

func TestPool_ProcessesSubmittedJobs(t *testing.T) {
	p := NewPool(3, 10, nil)
	var got atomic.Int32
	p.Handle("count", func(_ context.Context, raw json.RawMessage) error {
		var n int32
		require.NoError(t, json.Unmarshal(raw, &n))
		got.Add(n)
		return nil
	})
	p.Start(context.Background())

	for i := 0; i < 5; i++ {
		require.NoError(t, p.Submit(QueueEmail, "count", 2))
	}
	p.Stop()
	assert.Equal(t, int32(10), got.Load())

	assert.ErrorIs(t, p.Submit(QueueEmail, "count", 1), ErrPoolStopped)
}

func TestPool_SubmitNeverBlocks(t *testing.T) {
	p := NewPool(1, 1, nil)
	p.Handle("noop", func(context.Context, json.RawMessage) error { return nil })

	// Not started: the single slot fills and the next submit is rejected.
	require.NoError(t, p.Submit(QueueEmail, "noop", nil))
	done := make(chan error, 1)
	go func() { done <- p.Submit(QueueEmail, "noop", nil) }()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrQueueFull)
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on a full queue")
	}

	p.Start(context.Background())
	p.Stop()
}

func TestPool_FailingAndPanickingJobsDoNotKillWorkers(t *testing.T) {
	p := NewPool(1, 10, nil)
	var ok atomic.Int32
	p.Handle("fail", func(context.Context, json.RawMessage) error { return errors.New("nope") })
	p.Handle("panic", func(context.Context, json.RawMessage) error { panic("boom") })
	p.Handle("ok", func(context.Context, json.RawMessage) error { ok.Add(1); return nil })
	p.Start(context.Background())

	require.NoError(t, p.Submit(QueueEmail, "fail", nil))
	require.NoError(t, p.Submit(QueueEmail, "panic", nil))
	require.NoError(t, p.Submit(QueueEmail, "unknown", nil))
	require.NoError(t, p.Submit(QueueEmail, "ok", nil))
	p.Stop()
	assert.Equal(t, int32(1), ok.Load())
}

type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent []EmailJobPayload
}

func (f *fakeSender) Send(to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, EmailJobPayload{To: to, Subject: subject, Body: body})
	return nil
}

func TestEmailWorker(t *testing.T) {
	sender := &fakeSender{}
	w := NewEmailWorker(sender, infra.NewCircuitBreaker(infra.CircuitBreakerConfig{FailureThreshold: 1}))
	ctx := context.Background()

	raw, _ := json.Marshal(EmailJobPayload{Kind: "approved", To: "e@example.com", Subject: "s", Body: "b"})
	require.NoError(t, w.Process(ctx, raw))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "e@example.com", sender.sent[0].To)

	empty, _ := json.Marshal(EmailJobPayload{Kind: "approved"})
	assert.NoError(t, w.Process(ctx, empty))

	err := w.Process(ctx, json.RawMessage(`{bad`))
	assert.True(t, errors.Is(err, apierror.ErrNotification))

	sender.err = errors.New("relay down")
	err = w.Process(ctx, raw)
	assert.True(t, errors.Is(err, apierror.ErrNotification))

	// Breaker is now open: the sender is not even called.
	sender.err = nil
	err = w.Process(ctx, raw)
	assert.ErrorIs(t, err, infra.ErrCircuitOpen)
	assert.Len(t, sender.sent, 1)
}

func TestOrphanSweeper(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewFaultyStore()
	set := NewMemoryOrphanSet()
	sw := NewOrphanSweeper(set, store)

	require.NoError(t, sw.RecordOrphan(ctx, "certificates/a.pdf"))
	require.NoError(t, sw.RecordOrphan(ctx, "certificates/b.pdf"))
	require.NoError(t, sw.RecordOrphan(ctx, "certificates/a.pdf"))

	store.SetDeleteErr(errors.New("still down"))
	n, err := sw.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	left, _ := set.Members(ctx)
	assert.Equal(t, []string{"certificates/a.pdf", "certificates/b.pdf"}, left)

	store.SetDeleteErr(nil)
	n, err = sw.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	left, _ = set.Members(ctx)
	assert.Empty(t, left)
}

func TestOrphanSweeper_StartRejectsBadSchedule(t *testing.T) {
	sw := NewOrphanSweeper(NewMemoryOrphanSet(), testutil.NewFaultyStore())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	assert.Error(t, sw.Start(ctx, "every so often"))
	assert.NoError(t, sw.Start(ctx, "@every 1h"))
}

func TestDeadLetter_NilIsSafe(t *testing.T) {
	var d *DeadLetter
	d.Push(context.Background(), QueueEmail, JobEmail, nil, "x")
	n, err := d.Length(context.Background(), QueueEmail)
	require.NoError(t, err)
	assert.Zero(t, n)
	NewDeadLetter(nil).Push(context.Background(), QueueEmail, JobEmail, nil, "x")
}
