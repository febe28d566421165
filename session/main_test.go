package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocabtextdev/textutil"
)

func TestSessionTransitions(t *testing.T) {
	s := &Session{Phase: AwaitingTopic, Words: []string{"old"}, Level: textutil.LevelB1}

	s.StartUpload("run\tcorrer")
	assert.Equal(t, Session{Phase: AwaitingColumn, RawText: "run\tcorrer"}, *s)

	s.SetVocabulary([]string{"run"}, textutil.English)
	assert.Equal(t, AwaitingConfirmation, s.Phase)
	assert.Equal(t, textutil.English, s.Language)

	s.Confirm()
	assert.Equal(t, AwaitingLevel, s.Phase)

	s.SetLevel(textutil.LevelA2)
	assert.Equal(t, AwaitingTopic, s.Phase)
	assert.Equal(t, textutil.LevelA2, s.Level)
}

func TestStoreSaveGetDelete(t *testing.T) {
	store := NewStore(StoreProps{})

	_, ok := store.Get(1)
	require.False(t, ok)

	s := &Session{Phase: AwaitingColumn, RawText: "a\tb"}
	store.Save(1, s)

	got, ok := store.Get(1)
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, store.Len())

	store.Delete(1)
	_, ok = store.Get(1)
	assert.False(t, ok)
}

func TestStoreIdleTTL(t *testing.T) {
	store := NewStore(StoreProps{IdleTTL: 20 * time.Millisecond})
	store.Save(7, &Session{Phase: AwaitingLevel})

	require.Eventually(t, func() bool {
		_, ok := store.Get(7)
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestStoreLockSerializesOneUser(t *testing.T) {
	store := NewStore(StoreProps{})
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := store.Lock(42)
			defer unlock()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxInside)
	store.mu.Lock()
	assert.Empty(t, store.locks)
	store.mu.Unlock()
}

func TestStoreLockIndependentUsers(t *testing.T) {
	store := NewStore(StoreProps{})

	unlockA := store.Lock(1)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := store.Lock(2)
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock for a different user blocked")
	}
}
