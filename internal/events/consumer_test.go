package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readStep struct {
	msg kafka.Message
	err error
}

type scriptedReader struct {
	steps []readStep
	reads int
}

func (r *scriptedReader) ReadMessage(_ context.Context) (kafka.Message, error) {
	r.reads++
	if len(r.steps) == 0 {
		return kafka.Message{}, errors.New("broker unreachable")
	}
	step := r.steps[0]
	r.steps = r.steps[1:]
	return step.msg, step.err
}

func (r *scriptedReader) Close() error { return nil }

type recordingHandler struct {
	events []LifecycleEvent
}

func (h *recordingHandler) HandleEvent(_ context.Context, event LifecycleEvent) error {
	h.events = append(h.events, event)
	return nil
}

func TestConsumer_BacksOffOnReadErrors(t *testing.T) {
	down := errors.New("broker unreachable")
	reader := &scriptedReader{steps: []readStep{
		{err: down},
		{err: down},
		{err: down},
		{msg: kafka.Message{Value: []byte(`{"kind":"contribution.approved","contributionId":"c1"}`)}},
		{err: down},
	}}
	handler := &recordingHandler{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var waits []time.Duration
	c := &kafkaConsumer{
		reader:  reader,
		handler: handler,
		logger:  zerolog.Nop(),
		wait: func(ctx context.Context, d time.Duration) error {
			waits = append(waits, d)
			if len(waits) == 4 {
				cancel()
				return ctx.Err()
			}
			return nil
		},
	}

	err := c.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		100 * time.Millisecond,
	}, waits)
	assert.Equal(t, 5, reader.reads)
	require.Len(t, handler.events, 1)
	assert.Equal(t, "c1", handler.events[0].ContributionID)
}

func TestNextBackoff(t *testing.T) {
	tests := []struct {
		current, want time.Duration
	}{
		{0, minReadBackoff},
		{minReadBackoff, 200 * time.Millisecond},
		{2 * time.Second, 4 * time.Second},
		{3 * time.Second, maxReadBackoff},
		{maxReadBackoff, maxReadBackoff},
	}
	for _, tt := range tests {
		if got := nextBackoff(tt.current); got != tt.want {
			t.Fatalf("nextBackoff(%v) = %v, want %v", tt.current, got, tt.want)
		}
	}
}

func TestSleepContext_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.ErrorIs(t, sleepContext(ctx, time.Minute), context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
