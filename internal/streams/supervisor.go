// Package streams supervises long-running push processes: one ffmpeg
// subprocess per stream, relaunched on failure and stopped on request.
package streams

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/PatrickBoulton12345/livestreamrepeater/internal/events"
	"github.com/PatrickBoulton12345/livestreamrepeater/internal/ffmpeg"
	"github.com/PatrickBoulton12345/livestreamrepeater/internal/logging"
	"github.com/PatrickBoulton12345/livestreamrepeater/internal/process"
)

// Reconnect and stop defaults. A constant delay between relaunches is
// deliberate: the remote ingest expects the stream back as soon as
// possible, so backing off exponentially only grows the outage.
const (
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectDelay       = 5 * time.Second
	DefaultStopTimeout          = 5 * time.Second
)

// SupervisorOptions configures a Supervisor. Zero values fall back to
// the defaults above; a nil EventBus disables event publishing.
type SupervisorOptions struct {
	// FFmpegPath is the binary to spawn, resolved via PATH when empty.
	FFmpegPath string

	// MaxReconnectAttempts is how many consecutive failed attempts are
	// tolerated before a stream is declared failed.
	MaxReconnectAttempts int

	// ReconnectDelay is the fixed pause before each relaunch.
	ReconnectDelay time.Duration

	// StopTimeout is the grace period between SIGINT and SIGKILL when
	// stopping a single stream.
	StopTimeout time.Duration

	EventBus *events.Bus
	Logger   *slog.Logger
}

// Supervisor owns the stream registry and the restart policy. All
// methods are safe for concurrent use.
type Supervisor struct {
	opts     SupervisorOptions
	launcher *process.Launcher
	logger   *slog.Logger

	mu      sync.RWMutex
	streams map[string]*stream
}

// stream is the supervisor's record for one stream. Fields are guarded
// by mu; registry lookups under Supervisor.mu happen before any stream
// lock is taken, never after.
type stream struct {
	mu sync.Mutex

	id          string
	source      string
	config      StreamConfig
	args        []string
	clipSeconds float64

	status       Status
	reconnecting bool
	startedAt    time.Time

	attempt           *process.Attempt
	reconnectAttempts int
	reconnectTimer    *time.Timer
	graceTimer        *time.Timer

	stats Stats
}

// NewSupervisor creates a supervisor with the given options.
func NewSupervisor(opts SupervisorOptions) *Supervisor {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = ffmpeg.DefaultBinary
	}
	if opts.MaxReconnectAttempts <= 0 {
		opts.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = DefaultStopTimeout
	}

	logger := opts.Logger
	var outputLogger logging.Logger
	if logger == nil {
		logger = logging.GetLogger("supervisor")
		outputLogger = logging.GetLogger("ffmpeg")
	} else {
		outputLogger = logger
	}

	launcher := process.NewLauncher(opts.FFmpegPath, logger)
	launcher.SetLogParser(outputLogger, ffmpeg.ParseLogLevel)

	return &Supervisor{
		opts:     opts,
		launcher: launcher,
		logger:   logger,
		streams:  make(map[string]*stream),
	}
}

// Start registers a stream and launches its first push attempt. The id
// must not collide with a live stream; restarting a finished id
// replaces its record, including stats and reconnect history.
func (s *Supervisor) Start(id, source string, config StreamConfig) error {
	if id == "" {
		return NewStreamError(ErrCodeInvalidConfig, "stream id is required", nil)
	}
	if source == "" {
		return NewStreamError(ErrCodeInvalidConfig, "source is required", nil)
	}
	if config.RTMPURL == "" {
		return NewStreamError(ErrCodeInvalidConfig, "rtmp_url is required", nil)
	}

	args, err := BuildArgs(source, config)
	if err != nil {
		return NewStreamError(ErrCodeInvalidConfig, "invalid push configuration", err)
	}

	st := &stream{
		id:          id,
		source:      source,
		config:      config,
		args:        args,
		clipSeconds: config.ClipSeconds(),
		status:      StatusRunning,
		startedAt:   time.Now(),
	}

	s.mu.Lock()
	if existing, ok := s.streams[id]; ok {
		existing.mu.Lock()
		live := !existing.status.terminal()
		existing.mu.Unlock()
		if live {
			s.mu.Unlock()
			return NewStreamError(ErrCodeStreamExists, fmt.Sprintf("stream %q is already running", id), nil)
		}
	}
	s.streams[id] = st
	s.mu.Unlock()

	// Destination without the key; the key is a secret
	s.logger.Info("Starting stream",
		"stream_id", id,
		"source", source,
		"destination", ffmpeg.Destination(config.RTMPURL, ""))
	s.publish(events.StreamStartedEvent{
		StreamID:  id,
		Source:    source,
		Timestamp: timestamp(),
	})

	s.launch(st)
	return nil
}

// launch spawns one push attempt for st and wires its exit back into
// the supervisor. Spawn failures run through the same exit handling as
// process failures, so they count against the reconnect budget.
func (s *Supervisor) launch(st *stream) {
	st.mu.Lock()
	if st.status != StatusRunning {
		st.mu.Unlock()
		return
	}
	args := st.args
	st.mu.Unlock()

	attempt, err := s.launcher.Launch(st.id, args, func(line string) bool {
		return s.observeOutput(st, line)
	})
	if err != nil {
		s.logger.Error("Failed to spawn push process", "stream_id", st.id, "error", err)
		s.handleExit(st, process.ExitResult{Code: -1, Err: err})
		return
	}

	st.mu.Lock()
	if st.status != StatusRunning {
		// Stopped while the spawn was in flight; the fresh process must
		// not outlive the decision.
		st.mu.Unlock()
		_ = attempt.Kill()
		go func() { <-attempt.Done() }()
		return
	}
	st.attempt = attempt
	st.mu.Unlock()

	go func() {
		s.handleExit(st, <-attempt.Done())
	}()
}

// handleExit applies the restart policy to one attempt's exit result.
func (s *Supervisor) handleExit(st *stream, res process.ExitResult) {
	st.mu.Lock()
	st.attempt = nil
	if st.graceTimer != nil {
		st.graceTimer.Stop()
		st.graceTimer = nil
	}

	if st.status != StatusRunning {
		// Stop already decided the outcome; the exit only confirms it
		st.mu.Unlock()
		return
	}

	if res.Code == 0 {
		st.status = StatusCompleted
		st.reconnecting = false
		st.mu.Unlock()
		s.logger.Info("Stream completed", "stream_id", st.id)
		s.publish(events.StreamCompletedEvent{StreamID: st.id, Timestamp: timestamp()})
		return
	}

	if st.reconnectAttempts >= s.opts.MaxReconnectAttempts {
		attempts := st.reconnectAttempts
		st.status = StatusError
		st.mu.Unlock()
		s.logger.Error("Stream failed, reconnect attempts exhausted",
			"stream_id", st.id,
			"attempts", attempts,
			"exit_code", res.Code)
		s.publish(events.StreamFailedEvent{
			StreamID:  st.id,
			Attempts:  attempts,
			ExitCode:  res.Code,
			Timestamp: timestamp(),
		})
		return
	}

	st.reconnectAttempts++
	attempt := st.reconnectAttempts
	st.status = StatusReconnecting
	st.reconnecting = true
	st.reconnectTimer = time.AfterFunc(s.opts.ReconnectDelay, func() {
		s.relaunch(st)
	})
	st.mu.Unlock()

	s.logger.Warn("Push process exited, reconnecting",
		"stream_id", st.id,
		"exit_code", res.Code,
		"attempt", attempt,
		"max_attempts", s.opts.MaxReconnectAttempts,
		"delay", s.opts.ReconnectDelay)
	s.publish(events.StreamReconnectingEvent{
		StreamID:  st.id,
		Attempt:   attempt,
		ExitCode:  res.Code,
		Timestamp: timestamp(),
	})
}

// relaunch fires when the reconnect delay elapses. The status check
// makes a concurrent Stop win: a stopped stream stays stopped.
func (s *Supervisor) relaunch(st *stream) {
	st.mu.Lock()
	if st.status != StatusReconnecting {
		st.mu.Unlock()
		return
	}
	st.status = StatusRunning
	st.reconnectTimer = nil
	attempt := st.reconnectAttempts
	st.mu.Unlock()

	s.logger.Info("Relaunching push process", "stream_id", st.id, "attempt", attempt)
	s.launch(st)
}

// observeOutput feeds one output line through the progress parser.
// Any progress proves the push is healthy again, so it resets the
// reconnect budget and lowers the reconnecting flag.
func (s *Supervisor) observeOutput(st *stream, line string) bool {
	progress, ok := ffmpeg.ParseProgress(line)
	if !ok {
		return false
	}

	st.mu.Lock()
	if st.status != StatusRunning {
		// Late stats from a process already stopped or replaced
		st.mu.Unlock()
		return true
	}
	st.stats.Time = progress.Clock
	st.stats.LoopCount = ffmpeg.LoopCount(progress.Seconds, st.clipSeconds)
	loopCount := st.stats.LoopCount
	recovered := st.reconnecting
	st.reconnectAttempts = 0
	st.reconnecting = false
	st.mu.Unlock()

	if recovered {
		s.logger.Info("Stream recovered", "stream_id", st.id, "time", progress.Clock)
	}
	s.publish(events.StreamProgressEvent{
		StreamID:  st.id,
		Time:      progress.Clock,
		Seconds:   progress.Seconds,
		FPS:       progress.FPS,
		Speed:     progress.Speed,
		LoopCount: loopCount,
	})
	return true
}

// Stop requests graceful termination of one stream. The process gets
// SIGINT, then SIGKILL if it outlives the stop timeout. Returns false
// when the id is unknown or the stream already finished.
func (s *Supervisor) Stop(id string) bool {
	s.mu.RLock()
	st := s.streams[id]
	s.mu.RUnlock()
	if st == nil {
		return false
	}

	st.mu.Lock()
	if st.status.terminal() {
		st.mu.Unlock()
		return false
	}
	if st.reconnectTimer != nil {
		st.reconnectTimer.Stop()
		st.reconnectTimer = nil
	}
	st.status = StatusStopped
	st.reconnecting = false
	attempt := st.attempt
	if attempt != nil {
		st.graceTimer = time.AfterFunc(s.opts.StopTimeout, func() {
			s.forceKill(st)
		})
	}
	st.mu.Unlock()

	if attempt != nil {
		if err := attempt.Interrupt(); err != nil {
			s.logger.Warn("Failed to interrupt push process", "stream_id", id, "error", err)
		}
	}

	s.logger.Info("Stream stopped", "stream_id", id)
	s.publish(events.StreamStoppedEvent{StreamID: id, Timestamp: timestamp()})
	return true
}

// forceKill fires when the stop grace period expires. A clean exit in
// the meantime clears st.attempt, making this a no-op.
func (s *Supervisor) forceKill(st *stream) {
	st.mu.Lock()
	attempt := st.attempt
	st.graceTimer = nil
	st.mu.Unlock()
	if attempt == nil {
		return
	}

	s.logger.Warn("Push process ignored interrupt, killing", "stream_id", st.id)
	_ = attempt.Kill()
}

// StopAll terminates every live stream immediately with SIGKILL. Used
// on shutdown, where waiting out per-stream grace periods would stall
// the whole exit.
func (s *Supervisor) StopAll() {
	stopped := 0
	for _, st := range s.all() {
		st.mu.Lock()
		if st.status.terminal() {
			st.mu.Unlock()
			continue
		}
		if st.reconnectTimer != nil {
			st.reconnectTimer.Stop()
			st.reconnectTimer = nil
		}
		if st.graceTimer != nil {
			st.graceTimer.Stop()
			st.graceTimer = nil
		}
		st.status = StatusStopped
		st.reconnecting = false
		attempt := st.attempt
		st.mu.Unlock()

		if attempt != nil {
			_ = attempt.Kill()
		}
		s.publish(events.StreamStoppedEvent{StreamID: st.id, Timestamp: timestamp()})
		stopped++
	}

	if stopped > 0 {
		s.logger.Info("All streams stopped", "count", stopped)
	}
}

// Status returns a snapshot for one stream id. Unknown ids are not an
// error; they report StatusNotFound with zero stats.
func (s *Supervisor) Status(id string) StreamStatus {
	s.mu.RLock()
	st := s.streams[id]
	s.mu.RUnlock()
	if st == nil {
		return StreamStatus{StreamID: id, Status: StatusNotFound}
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return st.snapshotLocked()
}

// List returns snapshots of every known stream, sorted by id.
func (s *Supervisor) List() []StreamStatus {
	all := s.all()
	statuses := make([]StreamStatus, 0, len(all))
	for _, st := range all {
		st.mu.Lock()
		statuses = append(statuses, st.snapshotLocked())
		st.mu.Unlock()
	}
	slices.SortFunc(statuses, func(a, b StreamStatus) int {
		return cmp.Compare(a.StreamID, b.StreamID)
	})
	return statuses
}

// IsRunning reports whether the id names a stream that has not reached
// a terminal state. Reconnecting streams count as running.
func (s *Supervisor) IsRunning(id string) bool {
	s.mu.RLock()
	st := s.streams[id]
	s.mu.RUnlock()
	if st == nil {
		return false
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return !st.status.terminal()
}

// Pids returns the live process id per stream, for process-level
// resource collectors. Streams without a live process are omitted.
func (s *Supervisor) Pids() map[string]int {
	pids := make(map[string]int)
	for _, st := range s.all() {
		st.mu.Lock()
		if st.attempt != nil {
			if pid := st.attempt.PID(); pid > 0 {
				pids[st.id] = pid
			}
		}
		st.mu.Unlock()
	}
	return pids
}

// CheckAvailability reports whether the configured push binary can be
// found.
func (s *Supervisor) CheckAvailability() bool {
	return ffmpeg.Available(s.opts.FFmpegPath)
}

// all snapshots the registry so per-stream work happens outside s.mu.
func (s *Supervisor) all() []*stream {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make([]*stream, 0, len(s.streams))
	for _, st := range s.streams {
		snapshot = append(snapshot, st)
	}
	return snapshot
}

// snapshotLocked builds the external view; callers hold st.mu. The
// internal reconnecting status is reported as running because the
// stream is still live from the caller's point of view.
func (st *stream) snapshotLocked() StreamStatus {
	status := st.status
	if status == StatusReconnecting {
		status = StatusRunning
	}

	snap := StreamStatus{
		StreamID:         st.id,
		Status:           status,
		Reconnecting:     st.reconnecting,
		ReconnectAttempt: st.reconnectAttempts,
		StartedAt:        st.startedAt,
		Stats:            st.stats,
	}
	if st.attempt != nil {
		snap.PID = st.attempt.PID()
	}
	return snap
}

func (s *Supervisor) publish(ev events.Event) {
	if s.opts.EventBus != nil {
		s.opts.EventBus.Publish(ev)
	}
}

func timestamp() string {
	return time.Now().Format(time.RFC3339)
}
