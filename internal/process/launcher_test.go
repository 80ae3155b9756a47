package process

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeScript writes a fake push binary into a temp dir.
func writeScript(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatalf("writing script: %v", err)
	}
	return path
}

func newTestLauncher(t *testing.T, script string) *Launcher {
	t.Helper()
	return NewLauncher(writeScript(t, script), testLogger())
}

// waitForResult waits for the attempt's exit result, failing on timeout.
func waitForResult(t *testing.T, a *Attempt, timeout time.Duration) ExitResult {
	t.Helper()
	select {
	case res := <-a.Done():
		return res
	case <-time.After(timeout):
		t.Fatal("timeout waiting for attempt to exit")
		return ExitResult{}
	}
}

func TestLaunchCleanExit(t *testing.T) {
	l := newTestLauncher(t, "exit 0")

	a, err := l.Launch("s1", nil, nil)
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}

	if res := waitForResult(t, a, time.Second); res.Code != 0 || res.Err != nil {
		t.Errorf("expected clean exit, got code %d err %v", res.Code, res.Err)
	}
}

func TestLaunchNonzeroExit(t *testing.T) {
	l := newTestLauncher(t, "exit 3")

	a, err := l.Launch("s1", nil, nil)
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}

	res := waitForResult(t, a, time.Second)
	if res.Code != 3 {
		t.Errorf("expected exit code 3, got %d", res.Code)
	}
	if res.Err == nil {
		t.Error("expected an error for nonzero exit")
	}
}

func TestLaunchSpawnError(t *testing.T) {
	l := NewLauncher("/nonexistent/binary", testLogger())

	if _, err := l.Launch("s1", nil, nil); err == nil {
		t.Fatal("expected spawn error for missing binary")
	}
}

func TestLaunchSingleResult(t *testing.T) {
	l := newTestLauncher(t, "exit 0")

	a, err := l.Launch("s1", nil, nil)
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}

	waitForResult(t, a, time.Second)

	// The done channel must deliver exactly once
	select {
	case res := <-a.Done():
		t.Errorf("unexpected second result: %+v", res)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestInterruptGraceful(t *testing.T) {
	l := newTestLauncher(t, `trap 'exit 0' INT TERM; while :; do sleep 0.05; done`)

	a, err := l.Launch("s1", nil, nil)
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if err := a.Interrupt(); err != nil {
		t.Fatalf("Interrupt failed: %v", err)
	}

	if res := waitForResult(t, a, time.Second); res.Code != 0 {
		t.Errorf("expected exit code 0 after graceful stop, got %d", res.Code)
	}
}

func TestKillReportsSignalExit(t *testing.T) {
	// Process that ignores SIGINT so only SIGKILL can end it
	l := newTestLauncher(t, `trap '' INT; sleep 10`)

	a, err := l.Launch("s1", nil, nil)
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if err := a.Kill(); err != nil {
		t.Fatalf("Kill failed: %v", err)
	}

	res := waitForResult(t, a, time.Second)
	if res.Code != -1 {
		t.Errorf("expected -1 for signal death, got %d", res.Code)
	}
}

func TestSignalAfterExit(t *testing.T) {
	l := newTestLauncher(t, "exit 0")

	a, err := l.Launch("s1", nil, nil)
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	waitForResult(t, a, time.Second)

	// Signaling a reaped process must not error or panic
	if err := a.Interrupt(); err != nil {
		t.Errorf("Interrupt after exit: %v", err)
	}
	if err := a.Kill(); err != nil {
		t.Errorf("Kill after exit: %v", err)
	}
}

func TestOutputReachesHandlerBeforeExit(t *testing.T) {
	var mu sync.Mutex
	var lines []string

	l := newTestLauncher(t, `echo "[info] opening output" 1>&2
echo "frame= 10 time=00:00:01.00" 1>&2
exit 0`)

	a, err := l.Launch("s1", nil, func(line string) bool {
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
		return false
	})
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}

	waitForResult(t, a, time.Second)

	// Output is drained before the exit result is delivered
	mu.Lock()
	defer mu.Unlock()
	if !slices.Contains(lines, "[info] opening output") {
		t.Errorf("log line not seen, got %v", lines)
	}
	if !slices.Contains(lines, "frame= 10 time=00:00:01.00") {
		t.Errorf("stats line not seen, got %v", lines)
	}
}

func TestCarriageReturnStatsDeliveredPromptly(t *testing.T) {
	// Stats line terminated with a bare \r, then a long sleep: the line
	// must arrive while the process is still alive.
	l := newTestLauncher(t, `printf 'time=00:00:05.00 bitrate=2000k\r' 1>&2
sleep 2`)

	got := make(chan string, 4)
	a, err := l.Launch("s1", nil, func(line string) bool {
		got <- line
		return true
	})
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	defer func() {
		_ = a.Kill()
		<-a.Done()
	}()

	select {
	case line := <-got:
		if line != "time=00:00:05.00 bitrate=2000k" {
			t.Errorf("unexpected line %q", line)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("CR-terminated stats line was not delivered before exit")
	}
}

func TestPID(t *testing.T) {
	l := newTestLauncher(t, "sleep 1")

	a, err := l.Launch("s1", nil, nil)
	if err != nil {
		t.Fatalf("Launch failed: %v", err)
	}
	defer func() {
		_ = a.Kill()
		<-a.Done()
	}()

	if a.PID() <= 0 {
		t.Errorf("expected positive pid, got %d", a.PID())
	}
}

func TestScanLinesCR(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []string
	}{
		{"newlines", "a\nb\n", []string{"a", "b"}},
		{"carriage returns", "a\rb\r", []string{"a", "b"}},
		{"crlf pairs", "a\r\nb\r\n", []string{"a", "b"}},
		{"mixed", "stats\rline\nlast", []string{"stats", "line", "last"}},
		{"no terminator", "partial", []string{"partial"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			data := []byte(tt.data)
			for len(data) > 0 {
				advance, token, err := scanLinesCR(data, true)
				if err != nil {
					t.Fatalf("split error: %v", err)
				}
				if advance == 0 {
					break
				}
				if len(token) > 0 {
					got = append(got, string(token))
				}
				data = data[advance:]
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("tokens = %v, want %v", got, tt.want)
			}
		})
	}
}
