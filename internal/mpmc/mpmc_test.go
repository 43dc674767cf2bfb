package mpmc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFOOrdering(t *testing.T) {
	sender, receiver := New[int]()
	for i := 0; i < 10; i++ {
		require.NoError(t, sender.Send(i))
	}
	sender.Close()

	for i := 0; i < 10; i++ {
		v, ok := receiver.Recv()
		require.True(t, ok)
		require.Equal(t, i, v)
	}

	_, ok := receiver.Recv()
	assert.False(t, ok)
}

func TestCloseAfterDrainIsClosed(t *testing.T) {
	sender, receiver := New[string]()
	require.NoError(t, sender.Send("a"))
	sender.Close()

	v, ok := receiver.Recv()
	require.True(t, ok)
	require.Equal(t, "a", v)

	// once a recv reports closed, every subsequent recv must also report closed
	for i := 0; i < 3; i++ {
		_, ok := receiver.Recv()
		assert.False(t, ok)
	}
}

func TestSendAfterReceiversGoneReturnsValue(t *testing.T) {
	sender, receiver := New[int]()
	receiver.Close()

	err := sender.Send(42)
	require.Error(t, err)
	var closedErr *ClosedError[int]
	require.ErrorAs(t, err, &closedErr)
	assert.Equal(t, 42, closedErr.Value)
}

func TestMultipleProducersMultipleConsumers(t *testing.T) {
	sender, receiver := New[int]()

	const producers = 4
	const perProducer = 100

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		s := sender.Clone()
		go func() {
			defer wg.Done()
			defer s.Close()
			for i := 0; i < perProducer; i++ {
				require.NoError(t, s.Send(i))
			}
		}()
	}
	sender.Close()

	var received int
	var mu sync.Mutex
	var consumersWg sync.WaitGroup
	const consumers = 4
	consumersWg.Add(consumers)
	for c := 0; c < consumers; c++ {
		r := receiver.Clone()
		go func() {
			defer consumersWg.Done()
			defer r.Close()
			for {
				_, ok := r.Recv()
				if !ok {
					return
				}
				mu.Lock()
				received++
				mu.Unlock()
			}
		}()
	}
	receiver.Close()

	wg.Wait()
	consumersWg.Wait()

	assert.Equal(t, producers*perProducer, received)
}

func TestCloneKeepsChannelOpenUntilAllDropped(t *testing.T) {
	sender, receiver := New[int]()
	sender2 := sender.Clone()
	sender.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, ok := receiver.Recv()
		assert.True(t, ok)
	}()

	require.NoError(t, sender2.Send(1))
	<-done
	sender2.Close()

	_, ok := receiver.Recv()
	assert.False(t, ok)
}
