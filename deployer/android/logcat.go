package android

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/spance/droidship/deployer/definitions"
)

const (
	// crashMarker is the divider logcat prints at the head of crash output.
	crashMarker = "beginning of crash"

	// crashSettleDelay gives a freshly launched app time to reach the crash
	// buffer before the scan reads it.
	crashSettleDelay = 150 * time.Millisecond

	tailChunkSize = 4096
)

// tailState drives the active tailer loop.
type tailState int

const (
	tailStreaming tailState = iota
	tailCrashDetected
)

// TailFilters builds the logcat tag filters for an active tail. Raw mode
// streams everything. Filtered mode restricts output to the diagnostic tags
// of debug builds, the caller's extra tags, and the target activity,
// silencing all other tags.
func TailFilters(req *definitions.DeploymentRequest) []string {
	if req.LogMode == definitions.LogRaw {
		return nil
	}

	var filters []string
	if req.IsDebugBuild() {
		filters = append(filters, "AndroidRuntime:V", "DEBUG:V")
	}
	for _, tag := range req.LogTags {
		if !strings.Contains(tag, ":") {
			tag += ":V"
		}
		filters = append(filters, tag)
	}
	filters = append(filters, "V:V")
	filters = append(filters, req.Activity+":V")
	filters = append(filters, "*:S")
	return filters
}

// TailLogs follows the device log until the stream ends, the context is
// cancelled, or a crash marker appears. It reports whether a crash marker
// stopped the stream. The logcat child is reaped on every path.
func (b *Bridge) TailLogs(ctx context.Context, deviceID string, filters []string, out io.Writer) (bool, error) {
	cmdArgs := b.adbArgs(deviceID, "logcat")
	cmdArgs = append(cmdArgs, filters...)

	log.Debug().Str("cmd", fmt.Sprintf("[TailLogs] run cmd: %s %s", b.path, strings.Join(cmdArgs, " "))).Msg("")

	cmd := exec.CommandContext(ctx, b.path, cmdArgs...)
	cmd.Stderr = os.Stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return false, fmt.Errorf("open logcat pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return false, fmt.Errorf("start logcat: %w", err)
	}

	state := followStream(stdout, out)

	if state == tailCrashDetected {
		// Stop logcat without draining what it buffered past the marker.
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return true, nil
	}

	// Stream ended on its own: flush whatever is left and reap.
	_, _ = io.Copy(out, stdout)
	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, fmt.Errorf("logcat exited: %w", err)
	}
	return false, nil
}

// followStream pumps bounded chunks from r to w until the stream yields no
// data or a chunk carries the crash marker. The marker chunk itself is not
// written.
func followStream(r io.Reader, w io.Writer) tailState {
	buf := make([]byte, tailChunkSize)
	for {
		n, err := r.Read(buf)
		if n == 0 {
			return tailStreaming
		}

		chunk := buf[:n]
		if bytes.Contains(chunk, []byte(crashMarker)) {
			return tailCrashDetected
		}
		_, _ = w.Write(chunk)

		if err != nil {
			return tailStreaming
		}
	}
}

// ScanCrashLog pulls the dedicated crash buffer after a short settle delay
// and reports whether a crash landed there.
func (b *Bridge) ScanCrashLog(ctx context.Context, deviceID string) (definitions.CrashReport, error) {
	time.Sleep(crashSettleDelay)

	rawOutput, err := b.runner.Run(ctx, "ScanCrashLog", b.path, b.adbArgs(deviceID, "logcat", "--buffer=crash", "-d")...)
	if err != nil {
		return definitions.CrashReport{}, err
	}
	return crashReportFromDump(string(rawOutput)), nil
}

// crashReportFromDump flags a crash when the dumped buffer holds more than 3
// newline-delimited lines.
func crashReportFromDump(buf string) definitions.CrashReport {
	if strings.Count(buf, "\n") > 3 {
		return definitions.CrashReport{Detected: true, Log: buf}
	}
	return definitions.CrashReport{}
}

// WriteCrashDump saves a crash buffer to a uniquely named file under the
// temp dir and returns its path.
func WriteCrashDump(logText string) (string, error) {
	dumpPath := filepath.Join(os.TempDir(), fmt.Sprintf("droidship_crash_%s.log", uuid.New().String()))
	if err := os.WriteFile(dumpPath, []byte(logText), 0o644); err != nil {
		return "", err
	}
	return dumpPath, nil
}
