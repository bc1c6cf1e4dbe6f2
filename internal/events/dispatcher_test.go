package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanProducer struct {
	events chan LifecycleEvent
	err    error
}

func (p *chanProducer) Publish(_ context.Context, event LifecycleEvent) error {
	p.events <- event
	return p.err
}

func (p *chanProducer) Close() error { return nil }

type gatedProducer struct {
	started chan struct{}
	release chan struct{}

	mu        sync.Mutex
	published int
	closed    bool
}

func (p *gatedProducer) Publish(_ context.Context, _ LifecycleEvent) error {
	p.started <- struct{}{}
	<-p.release
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("publish after close")
	}
	p.published++
	return nil
}

func (p *gatedProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func TestDispatcher_PublishesWithTimestamp(t *testing.T) {
	producer := &chanProducer{events: make(chan LifecycleEvent, 1)}
	d := NewDispatcher(producer, zerolog.Nop())

	d.Dispatch(LifecycleEvent{Kind: KindSubmitted, ContributionID: "c1"})

	select {
	case got := <-producer.events:
		assert.Equal(t, KindSubmitted, got.Kind)
		assert.False(t, got.Timestamp.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("event not published")
	}
}

func TestDispatcher_FailureDoesNotPropagate(t *testing.T) {
	producer := &chanProducer{events: make(chan LifecycleEvent, 1), err: errors.New("broker down")}
	d := NewDispatcher(producer, zerolog.Nop())

	d.Dispatch(LifecycleEvent{Kind: KindApproved, ContributionID: "c1"})
	select {
	case <-producer.events:
	case <-time.After(2 * time.Second):
		t.Fatal("event not published")
	}
}

func TestDispatcher_CloseDrainsInflightPublishes(t *testing.T) {
	producer := &gatedProducer{started: make(chan struct{}, 1), release: make(chan struct{})}
	d := NewDispatcher(producer, zerolog.Nop())

	d.Dispatch(LifecycleEvent{Kind: KindApproved, ContributionID: "c1"})
	<-producer.started

	closed := make(chan error, 1)
	go func() { closed <- d.Close() }()

	select {
	case <-closed:
		t.Fatal("Close returned before the in-flight publish finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(producer.release)
	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}

	producer.mu.Lock()
	defer producer.mu.Unlock()
	assert.Equal(t, 1, producer.published)
	assert.True(t, producer.closed)
}

func TestDispatcher_DropsEventsAfterClose(t *testing.T) {
	producer := &chanProducer{events: make(chan LifecycleEvent, 1)}
	d := NewDispatcher(producer, zerolog.Nop())
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	d.Dispatch(LifecycleEvent{Kind: KindApproved, ContributionID: "c1"})
	select {
	case <-producer.events:
		t.Fatal("event published after close")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDispatcher_NilIsNoop(t *testing.T) {
	var d *Dispatcher
	d.Dispatch(LifecycleEvent{Kind: KindApproved})
	require.NoError(t, d.Close())
	NewDispatcher(nil, zerolog.Nop()).Dispatch(LifecycleEvent{Kind: KindApproved})
}

func TestLifecycleEvent_Key(t *testing.T) {
	tests := []struct {
		event LifecycleEvent
		want  string
	}{
		{LifecycleEvent{ContributionID: "c1", TaskID: "t1"}, "c1"},
		{LifecycleEvent{TaskID: "t1"}, "t1"},
		{LifecycleEvent{BatchID: "b1"}, "b1"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, tt.event.Key())
	}
}
