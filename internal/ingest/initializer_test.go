package ingest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializerRunsOnce(t *testing.T) {
	init := NewInitializer()
	var runs atomic.Int64
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			init.Start(func() error {
				runs.Add(1)
				<-release
				return nil
			})
		}()
	}
	wg.Wait()

	assert.False(t, init.Ready())
	assert.NoError(t, init.Err())

	close(release)
	require.NoError(t, init.Wait(context.Background()))
	assert.True(t, init.Ready())
	assert.Equal(t, int64(1), runs.Load())
}

func TestInitializerFailure(t *testing.T) {
	init := NewInitializer()
	boom := errors.New("snapshot corrupt")
	init.Start(func() error { return boom })

	err := init.Wait(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, init.Ready())
	assert.ErrorIs(t, init.Err(), boom)
}

func TestInitializerWaitHonorsContext(t *testing.T) {
	init := NewInitializer()
	release := make(chan struct{})
	defer close(release)
	init.Start(func() error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, init.Wait(ctx), context.DeadlineExceeded)
}

func TestInitializerSharedOutcome(t *testing.T) {
	init := NewInitializer()
	init.Start(func() error { return nil })

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, init.Wait(context.Background()))
		}()
	}
	wg.Wait()
	assert.True(t, init.Ready())
}
