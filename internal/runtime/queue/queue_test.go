package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaygrid/actorhub/internal/runtime/handle"
	"github.com/relaygrid/actorhub/internal/runtime/mailbox"
)

func TestPushPopFIFOOrder(t *testing.T) {
	q := New()
	mb1 := mailbox.New(handle.New(1, 1), q, 4)
	mb2 := mailbox.New(handle.New(1, 2), q, 4)

	q.Push(mb1)
	q.Push(mb2)
	assert.Equal(t, 2, q.Len())

	got1, ok := q.Pop()
	require.True(t, ok)
	assert.Same(t, mb1, got1)

	got2, ok := q.Pop()
	require.True(t, ok)
	assert.Same(t, mb2, got2)

	assert.Equal(t, 0, q.Len())
}

func TestTryPopOnEmptyQueueDoesNotBlock(t *testing.T) {
	q := New()
	_, ok := q.TryPop()
	assert.False(t, ok)
}

func TestPopBlocksUntilPush(t *testing.T) {
	q := New()
	mb := mailbox.New(handle.New(1, 1), q, 4)

	done := make(chan *mailbox.Mailbox, 1)
	go func() {
		got, ok := q.Pop()
		if ok {
			done <- got
		} else {
			done <- nil
		}
	}()

	select {
	case <-done:
		t.Fatal("Pop returned before anything was pushed")
	case <-time.After(20 * time.Millisecond):
	}

	q.Push(mb)

	select {
	case got := <-done:
		assert.Same(t, mb, got)
	case <-time.After(time.Second):
		t.Fatal("Pop never woke up after Push")
	}
}

func TestCloseWakesBlockedPopWithFalse(t *testing.T) {
	q := New()

	done := make(chan bool, 1)
	go func() {
		_, ok := q.Pop()
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Pop never woke up after Close")
	}
}

func TestWakeUnblocksPopWithoutAPush(t *testing.T) {
	q := New()

	released := make(chan struct{})
	go func() {
		q.mu.Lock()
		for q.head == nil && !q.quit {
			q.cond.Wait()
		}
		q.mu.Unlock()
		close(released)
	}()

	time.Sleep(20 * time.Millisecond)
	q.Wake()

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("Wake never released the waiter")
	}
}
