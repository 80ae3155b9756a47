package process

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/PatrickBoulton12345/livestreamrepeater/internal/logging"
)

// OutputHandler receives each diagnostic output line from an attempt.
// Returning true marks the line as consumed progress, which demotes its
// re-log to debug so stats updates do not flood the output logger.
type OutputHandler func(line string) bool

// LogParser parses a log line and returns the log level and message.
// Used to extract structured log info from process output.
type LogParser func(line string) (level, msg string)

// ExitResult is the single terminal event of an attempt: the process
// exit code, or -1 with Err set when the process was signal-terminated
// or failed outside the exit-code protocol.
type ExitResult struct {
	Code int
	Err  error
}

// Launcher spawns push attempts for one configured binary. It owns
// process creation and output streaming only; restart and termination
// policy belong to the caller.
type Launcher struct {
	binPath      string
	logger       logging.Logger
	outputLogger logging.Logger
	logParser    LogParser
}

// NewLauncher creates a launcher for the given binary path.
func NewLauncher(binPath string, logger logging.Logger) *Launcher {
	return &Launcher{binPath: binPath, logger: logger}
}

// SetLogParser sets a dedicated logger and log parser for process
// output, so subprocess lines surface at their own levels under their
// own module instead of the launcher's.
func (l *Launcher) SetLogParser(logger logging.Logger, parser LogParser) {
	l.outputLogger = logger
	l.logParser = parser
}

// Attempt is one live subprocess. Exactly one ExitResult is delivered
// on Done after the process exits and its output is drained.
type Attempt struct {
	cmd  *exec.Cmd
	done chan ExitResult
}

// Launch spawns one attempt. The argument vector is not logged because
// destinations may embed access keys.
func (l *Launcher) Launch(id string, args []string, handler OutputHandler) (*Attempt, error) {
	cmd := exec.Command(l.binPath, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	l.logger.Info("Process started", "stream_id", id, "pid", cmd.Process.Pid)

	a := &Attempt{cmd: cmd, done: make(chan ExitResult, 1)}
	go func() {
		// Drain output before Wait so the last stats lines are handled
		// ahead of the exit event.
		l.streamOutput(id, stderr, handler)
		waitErr := cmd.Wait()
		res := ExitResult{Code: exitCodeFromError(waitErr)}
		if waitErr != nil {
			res.Err = waitErr
		}
		l.logger.Info("Process exited", "stream_id", id, "pid", a.PID(), "exit_code", res.Code)
		a.done <- res
	}()

	return a, nil
}

// Done returns the channel carrying the attempt's single exit result.
func (a *Attempt) Done() <-chan ExitResult {
	return a.done
}

// PID returns the process id, or 0 before the process exists.
func (a *Attempt) PID() int {
	if a.cmd.Process == nil {
		return 0
	}
	return a.cmd.Process.Pid
}

// Interrupt requests graceful termination with SIGINT. It never
// escalates; callers own the grace-period policy.
func (a *Attempt) Interrupt() error {
	return a.signal(func(p *os.Process) error { return p.Signal(syscall.SIGINT) })
}

// Kill terminates the process immediately with SIGKILL.
func (a *Attempt) Kill() error {
	return a.signal(func(p *os.Process) error { return p.Kill() })
}

func (a *Attempt) signal(send func(*os.Process) error) error {
	if a.cmd.Process == nil {
		return nil
	}
	err := send(a.cmd.Process)
	if err != nil && errors.Is(err, os.ErrProcessDone) {
		// Exited between the decision to signal and the signal itself
		return nil
	}
	return err
}

// exitCodeFromError extracts exit code from a Wait error. Returns 0 for
// nil, the exit code for ExitError (-1 when signal-terminated), or -1
// for other errors.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// streamOutput scans attempt output line by line, feeding the handler
// and re-logging through the output logger at parsed levels.
func (l *Launcher) streamOutput(id string, reader io.Reader, handler OutputHandler) {
	scanner := bufio.NewScanner(reader)
	scanner.Split(scanLinesCR)

	logger := l.outputLogger
	if logger == nil {
		logger = l.logger
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		handled := false
		if handler != nil {
			handled = handler(line)
		}

		level, msg := "info", line
		if l.logParser != nil {
			level, msg = l.logParser(line)
		}
		if handled {
			// Progress stats repeat every few hundred milliseconds
			logger.Debug(msg)
			continue
		}

		switch level {
		case "panic", "fatal", "error":
			logger.Error(msg)
		case "warning":
			logger.Warn(msg)
		case "verbose", "debug", "trace":
			logger.Debug(msg)
		default:
			logger.Info(msg)
		}
	}

	if err := scanner.Err(); err != nil {
		l.logger.Warn("Error reading process output", "stream_id", id, "error", err)
	}
}

// scanLinesCR is a bufio.SplitFunc that treats both \n and \r as line
// terminators. ffmpeg rewrites its stats line in place with a bare \r,
// which bufio.ScanLines would buffer until the process exits.
func scanLinesCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
			return i + 2, data[:i], nil
		}
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
