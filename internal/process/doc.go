// Package process provides subprocess spawning for push attempts.
//
// Launcher starts one subprocess per attempt and reports exactly one
// terminal ExitResult per attempt:
//   - Output streaming line by line with pluggable log parsing;
//     carriage-return terminated stats lines are delivered promptly
//   - Interrupt (SIGINT) and Kill (SIGKILL) as distinct operations
//     with no escalation between them
//   - Exit codes extracted from exec.ExitError, -1 for signal deaths
//
// Restart, grace periods, and retry policy deliberately live above this
// package, in the stream supervisor.
//
// Example:
//
//	launcher := process.NewLauncher("ffmpeg", logger)
//	attempt, err := launcher.Launch("stream1", args, func(line string) bool {
//	    _, ok := ffmpeg.ParseProgress(line)
//	    return ok
//	})
//	if err != nil { ... }
//	res := <-attempt.Done()
package process
