package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ziadkadry99/deckviz/internal/deck"
)

const validDeck = `
title: Watched
slides:
  - id: one
    title: One
`

func startWatcher(t *testing.T, path string, fn ChangeFunc) (stop func()) {
	t.Helper()
	w, err := New(path, fn, WithDebounce(50*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	return func() {
		cancel()
		require.NoError(t, <-done)
	}
}

func TestWatcherDebouncesWrites(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	path := filepath.Join(dir, "deck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validDeck), 0o644))

	var calls atomic.Int32
	stop := startWatcher(t, path, func(ctx context.Context, p string) error {
		assert.Equal(t, path, p)
		calls.Add(1)
		return nil
	})

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte(validDeck), 0o644))
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	stop()
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validDeck), 0o644))

	var calls atomic.Int32
	stop := startWatcher(t, path, func(context.Context, string) error {
		calls.Add(1)
		return nil
	})
	defer stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestWatcherSurvivesCallbackErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validDeck), 0o644))

	var calls atomic.Int32
	stop := startWatcher(t, path, func(context.Context, string) error {
		calls.Add(1)
		return errors.New("boom")
	})
	defer stop()

	require.NoError(t, os.WriteFile(path, []byte(validDeck), 0o644))
	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(validDeck), 0o644))
	require.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
}

type fakeReloader struct {
	mu    sync.Mutex
	decks []*deck.Deck
}

func (f *fakeReloader) Reload(d *deck.Deck) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decks = append(f.decks, d)
	return nil
}

func TestDeckReloader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deck.yaml")
	r := &fakeReloader{}
	fn := DeckReloader(r, nil)

	require.NoError(t, os.WriteFile(path, []byte(validDeck), 0o644))
	require.NoError(t, fn(context.Background(), path))
	require.Len(t, r.decks, 1)
	assert.Equal(t, "Watched", r.decks[0].Title)

	// A broken save must not replace the deck being shown.
	require.NoError(t, os.WriteFile(path, []byte("title: Broken\nslides: []\n"), 0o644))
	err := fn(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, deck.ErrInvalidDeck)
	assert.Len(t, r.decks, 1)
}
