package watcher_test

import (
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/relcache/internal/adapters/watcher"
)

// batches records every callback invocation.
type batches struct {
	mu  sync.Mutex
	got [][]string
}

func (b *batches) add(paths []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.got = append(b.got, paths)
}

func (b *batches) all() [][]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]string{}, b.got...)
}

func TestDebouncer_Coalesces(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var b batches
		d := watcher.NewDebouncer(100*time.Millisecond, b.add)

		d.Add("/srv/sources/c.yaml")
		d.Add("/srv/sources/a.yaml")
		d.Add("/srv/sources/c.yaml")
		d.Add("/srv/sources/b.yaml")

		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		assert.Equal(t, [][]string{{"/srv/sources/a.yaml", "/srv/sources/b.yaml", "/srv/sources/c.yaml"}}, b.all())
	})
}

func TestDebouncer_WindowRestarts(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var b batches
		d := watcher.NewDebouncer(100*time.Millisecond, b.add)

		d.Add("/srv/sources/a.yaml")
		time.Sleep(60 * time.Millisecond)
		d.Add("/srv/sources/b.yaml")
		time.Sleep(60 * time.Millisecond)
		synctest.Wait()
		assert.Empty(t, b.all())

		time.Sleep(50 * time.Millisecond)
		synctest.Wait()
		assert.Len(t, b.all(), 1)
	})
}

func TestDebouncer_Flush(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var b batches
		d := watcher.NewDebouncer(100*time.Millisecond, b.add)

		d.Flush()
		assert.Empty(t, b.all(), "nothing pending")

		d.Add("/srv/sources/a.yaml")
		d.Flush()
		require.Equal(t, [][]string{{"/srv/sources/a.yaml"}}, b.all())

		time.Sleep(150 * time.Millisecond)
		synctest.Wait()
		assert.Len(t, b.all(), 1, "flushed paths are not delivered again")

		d.Add("/srv/sources/b.yaml")
		time.Sleep(150 * time.Millisecond)
		synctest.Wait()
		d.Flush()
		assert.Equal(t, [][]string{{"/srv/sources/a.yaml"}, {"/srv/sources/b.yaml"}}, b.all())
	})
}

func TestDebouncer_Stop(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var b batches
		d := watcher.NewDebouncer(100*time.Millisecond, b.add)

		d.Add("/srv/sources/a.yaml")
		d.Stop()
		d.Add("/srv/sources/b.yaml")

		time.Sleep(150 * time.Millisecond)
		synctest.Wait()
		d.Flush()
		assert.Empty(t, b.all())
	})
}

func TestDebouncer_NilCallback(t *testing.T) {
	synctest.Test(t, func(_ *testing.T) {
		d := watcher.NewDebouncer(50*time.Millisecond, nil)
		d.Add("/srv/sources/a.yaml")
		time.Sleep(100 * time.Millisecond)
		synctest.Wait()
		d.Flush()
	})
}
