package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// A pared-down stream definition, enough to notice reload content.
type testDefs struct {
	Source string `toml:"source"`
	Loop   int    `toml:"loop"`
}

func loadDefs(path string) (testDefs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return testDefs{}, err
	}
	var defs testDefs
	err = toml.Unmarshal(data, &defs)
	return defs, err
}

func writeDefs(t *testing.T, path, source string, loop int) {
	t.Helper()
	data := fmt.Appendf(nil, "source = %q\nloop = %d\n", source, loop)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startWatcher(t *testing.T, w *Watcher[testDefs]) {
	t.Helper()
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := w.Stop(); err != nil {
			t.Errorf("watcher.Stop failed: %v", err)
		}
	})
	// Give the watch goroutine a moment to come up
	time.Sleep(100 * time.Millisecond)
}

func TestConfigWatcher_BasicReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streams.toml")
	writeDefs(t, path, "intro.mp4", 1)

	received := make(chan testDefs, 1)
	w := NewConfigWatcher(path, loadDefs, quietLogger(), WithDebounce[testDefs](50*time.Millisecond))
	w.OnReload(func(defs testDefs) {
		received <- defs
	})
	startWatcher(t, w)

	writeDefs(t, path, "show.mp4", 3)

	select {
	case defs := <-received:
		if defs.Source != "show.mp4" || defs.Loop != 3 {
			t.Errorf("got %+v, want source=show.mp4, loop=3", defs)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
}

func TestConfigWatcher_LoadsFreshOnEveryChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streams.toml")
	writeDefs(t, path, "intro.mp4", 1)

	var loads atomic.Int32
	loader := func(p string) (testDefs, error) {
		loads.Add(1)
		return loadDefs(p)
	}

	received := make(chan testDefs, 10)
	w := NewConfigWatcher(path, loader, quietLogger(), WithDebounce[testDefs](50*time.Millisecond))
	w.OnReload(func(defs testDefs) {
		received <- defs
	})
	startWatcher(t, w)

	writeDefs(t, path, "intro.mp4", 10)
	<-received

	time.Sleep(100 * time.Millisecond)
	writeDefs(t, path, "intro.mp4", 20)
	defs := <-received

	if defs.Loop != 20 {
		t.Errorf("expected loop=20 from the latest content, got %d", defs.Loop)
	}
	if got := loads.Load(); got < 2 {
		t.Errorf("expected at least 2 loads, got %d", got)
	}
}

func TestConfigWatcher_MultipleHandlers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streams.toml")
	writeDefs(t, path, "intro.mp4", 1)

	var calls atomic.Int32
	var mu sync.Mutex
	var seen []testDefs

	w := NewConfigWatcher(path, loadDefs, quietLogger(), WithDebounce[testDefs](50*time.Millisecond))
	for range 3 {
		w.OnReload(func(defs testDefs) {
			calls.Add(1)
			mu.Lock()
			seen = append(seen, defs)
			mu.Unlock()
		})
	}
	startWatcher(t, w)

	writeDefs(t, path, "show.mp4", 2)
	time.Sleep(200 * time.Millisecond)

	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 handlers called, got %d", got)
	}

	// Every handler must see the same snapshot
	mu.Lock()
	defer mu.Unlock()
	for i, defs := range seen {
		if defs.Source != "show.mp4" || defs.Loop != 2 {
			t.Errorf("handler %d got wrong value: %+v", i, defs)
		}
	}
}

func TestConfigWatcher_Unsubscribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streams.toml")
	writeDefs(t, path, "intro.mp4", 1)

	var calls1, calls2 atomic.Int32
	var last1, last2 atomic.Int32

	w := NewConfigWatcher(path, loadDefs, quietLogger(), WithDebounce[testDefs](50*time.Millisecond))
	w.OnReload(func(defs testDefs) {
		last1.Store(int32(defs.Loop))
		calls1.Add(1)
	})
	unsub := w.OnReload(func(defs testDefs) {
		last2.Store(int32(defs.Loop))
		calls2.Add(1)
	})
	startWatcher(t, w)

	// First change reaches both handlers
	writeDefs(t, path, "intro.mp4", 10)
	time.Sleep(200 * time.Millisecond)

	unsub()

	// Second change reaches only the first
	writeDefs(t, path, "intro.mp4", 20)
	time.Sleep(200 * time.Millisecond)

	if got := calls1.Load(); got != 2 {
		t.Errorf("handler1: expected 2 calls, got %d", got)
	}
	if got := calls2.Load(); got != 1 {
		t.Errorf("handler2: expected 1 call, got %d", got)
	}
	if got := last1.Load(); got != 20 {
		t.Errorf("handler1: expected last loop 20, got %d", got)
	}
	if got := last2.Load(); got != 10 {
		t.Errorf("handler2: expected last loop 10, got %d", got)
	}
}

func TestConfigWatcher_ErrorHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streams.toml")
	writeDefs(t, path, "intro.mp4", 1)

	loadErrs := make(chan error, 1)
	reloaded := make(chan testDefs, 1)

	w := NewConfigWatcher(path, loadDefs, quietLogger(),
		WithDebounce[testDefs](50*time.Millisecond),
		WithErrorHandler[testDefs](func(err error) {
			loadErrs <- err
		}),
	)
	w.OnReload(func(defs testDefs) {
		reloaded <- defs
	})
	startWatcher(t, w)

	if err := os.WriteFile(path, []byte("not toml [[["), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-loadErrs:
		// expected
	case <-reloaded:
		t.Fatal("reload handler must not run when loading fails")
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for error handler")
	}
}

func TestConfigWatcher_Debounce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streams.toml")
	writeDefs(t, path, "intro.mp4", 0)

	var calls atomic.Int32
	var last atomic.Int32

	w := NewConfigWatcher(path, loadDefs, quietLogger(), WithDebounce[testDefs](200*time.Millisecond))
	w.OnReload(func(defs testDefs) {
		calls.Add(1)
		last.Store(int32(defs.Loop))
	})
	startWatcher(t, w)

	// A burst of writes inside the debounce window collapses into one
	// reload carrying the final content.
	for i := 1; i <= 5; i++ {
		writeDefs(t, path, "intro.mp4", i)
		time.Sleep(50 * time.Millisecond)
	}
	time.Sleep(500 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 debounced call, got %d", got)
	}
	if got := last.Load(); got != 5 {
		t.Errorf("expected final loop 5, got %d", got)
	}
}

func TestConfigWatcher_ConcurrentSubscribers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streams.toml")
	writeDefs(t, path, "intro.mp4", 1)

	w := NewConfigWatcher(path, loadDefs, quietLogger(), WithDebounce[testDefs](10*time.Millisecond))
	startWatcher(t, w)

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := w.OnReload(func(testDefs) {})
			time.Sleep(time.Millisecond)
			unsub()
		}()
	}

	// Keep events flowing while handlers churn
	for i := range 10 {
		writeDefs(t, path, "intro.mp4", i)
		time.Sleep(20 * time.Millisecond)
	}
	wg.Wait()
}

func TestConfigWatcher_FileReplaced(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "streams.toml")
	writeDefs(t, path, "intro.mp4", 1)

	received := make(chan testDefs, 4)
	w := NewConfigWatcher(path, loadDefs, quietLogger(), WithDebounce[testDefs](50*time.Millisecond))
	w.OnReload(func(defs testDefs) {
		received <- defs
	})
	startWatcher(t, w)

	// Save the way editors do: write a sibling, rename over the target
	replacement := filepath.Join(dir, "streams.toml.tmp")
	writeDefs(t, replacement, "intro.mp4", 2)
	if err := os.Rename(replacement, path); err != nil {
		t.Fatal(err)
	}

	select {
	case defs := <-received:
		if defs.Loop != 2 {
			t.Errorf("expected loop=2 after replace, got %d", defs.Loop)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload after file replace")
	}

	// The re-armed watch must survive a second replacement
	writeDefs(t, replacement, "intro.mp4", 3)
	if err := os.Rename(replacement, path); err != nil {
		t.Fatal(err)
	}

	select {
	case defs := <-received:
		if defs.Loop != 3 {
			t.Errorf("expected loop=3 after second replace, got %d", defs.Loop)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for reload after second replace")
	}
}

func TestConfigWatcher_StartMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")

	w := NewConfigWatcher(path, loadDefs, quietLogger())
	if err := w.Start(); err == nil {
		w.Stop()
		t.Fatal("expected Start to fail for a missing file")
	}
}

func TestConfigWatcher_Stop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streams.toml")
	writeDefs(t, path, "intro.mp4", 1)

	var calls atomic.Int32
	w := NewConfigWatcher(path, loadDefs, quietLogger(), WithDebounce[testDefs](50*time.Millisecond))
	w.OnReload(func(testDefs) {
		calls.Add(1)
	})

	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	if err := w.Stop(); err != nil {
		t.Fatal(err)
	}
	// Stop is idempotent
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop failed: %v", err)
	}

	writeDefs(t, path, "intro.mp4", 99)
	time.Sleep(200 * time.Millisecond)

	if got := calls.Load(); got != 0 {
		t.Errorf("expected no calls after Stop, got %d", got)
	}
}
