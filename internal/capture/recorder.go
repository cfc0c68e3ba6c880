// Package capture records the microphone through ffmpeg and hands the encoded
// audio out in fixed time slices.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Clang-dev/clang-tui/internal/logging"
)

// ErrDeviceUnavailable wraps every failure to open or keep the input device.
var ErrDeviceUnavailable = errors.New("audio device unavailable")

// ErrRunning is returned by Start while a capture is already in progress.
var ErrRunning = errors.New("capture already running")

// Config describes the ffmpeg invocation. Args, when set, replaces the
// generated argument list.
type Config struct {
	Command    string
	Args       []string
	Format     string
	Input      string
	Device     string
	Slice      time.Duration
	SampleRate int
}

// Arguments returns the ffmpeg arguments for c.
func (c Config) Arguments() []string {
	if len(c.Args) > 0 {
		return c.Args
	}
	rate := c.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	args := []string{
		"-hide_banner", "-loglevel", "error", "-nostdin",
		"-f", c.Input,
		"-i", c.Device,
		"-ac", "1",
		"-ar", strconv.Itoa(rate),
	}
	switch c.Format {
	case "webm":
		args = append(args, "-c:a", "libopus", "-f", "webm")
	case "ogg":
		args = append(args, "-c:a", "libopus", "-f", "ogg")
	default:
		args = append(args, "-c:a", "pcm_s16le", "-f", "s16le")
	}
	return append(args, "-flush_packets", "1", "pipe:1")
}

// Recorder owns at most one running capture at a time.
type Recorder struct {
	cfg    Config
	logger *log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// NewRecorder returns an idle recorder.
func NewRecorder(cfg Config, logger *log.Logger) *Recorder {
	if cfg.Slice <= 0 {
		cfg.Slice = 500 * time.Millisecond
	}
	if cfg.Command == "" {
		cfg.Command = "ffmpeg"
	}
	return &Recorder{
		cfg:    cfg,
		logger: logging.OrDiscard(logger).WithPrefix(logging.PrefixCapture),
	}
}

// Start launches the capture process. The returned channel yields one chunk
// of encoded audio per slice interval, in capture order, and is closed when
// the capture ends for any reason.
func (r *Recorder) Start(ctx context.Context) (<-chan []byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done != nil {
		select {
		case <-r.done:
		default:
			return nil, ErrRunning
		}
	}

	path, err := exec.LookPath(r.cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	cctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(cctx, path, r.cfg.Arguments()...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr := &tailBuffer{max: 2048}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	r.logger.Info("capture started", "command", r.cfg.Command, "slice", r.cfg.Slice)

	out := make(chan []byte, 16)
	raw := make(chan []byte, 16)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done
	r.err = nil

	// Read stdout as it arrives.
	go func() {
		defer close(raw)
		buf := make([]byte, 32*1024)
		for {
			n, err := stdout.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				raw <- chunk
			}
			if err != nil {
				if !errors.Is(err, io.EOF) && cctx.Err() == nil {
					r.logger.Warn("read capture output", "err", err)
				}
				return
			}
		}
	}()

	// Group reads into slices on a ticker, then reap the process.
	go func() {
		defer close(done)
		defer close(out)

		ticker := time.NewTicker(r.cfg.Slice)
		defer ticker.Stop()

		// pending is only reset once its slice is handed over, so a stop never
		// loses audio that was already captured.
		var pending bytes.Buffer
		send := func(give <-chan struct{}) {
			if pending.Len() == 0 {
				return
			}
			select {
			case out <- bytes.Clone(pending.Bytes()):
				pending.Reset()
			case <-give:
			}
		}

	loop:
		for {
			select {
			case chunk, ok := <-raw:
				if !ok {
					break loop
				}
				pending.Write(chunk)
			case <-ticker.C:
				send(cctx.Done())
			}
		}
		// The tail goes out like a final slice. The consumer gets one slice
		// interval to take it.
		tctx, tcancel := context.WithTimeout(context.Background(), r.cfg.Slice)
		send(tctx.Done())
		tcancel()

		err := cmd.Wait()
		stopped := cctx.Err() != nil
		cancel()

		r.mu.Lock()
		defer r.mu.Unlock()
		if err != nil && !stopped {
			r.err = fmt.Errorf("%w: %v: %s", ErrDeviceUnavailable, err, strings.TrimSpace(stderr.String()))
			r.logger.Error("capture exited", "err", r.err)
			return
		}
		r.logger.Info("capture stopped")
	}()

	return out, nil
}

// Stop ends the running capture and waits for it to finish. It is a no-op
// when nothing is running.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		return fmt.Errorf("capture did not stop")
	}
	return nil
}

// Err returns why the last capture ended on its own, or nil when it finished
// normally or was stopped.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Running reports whether a capture is in progress.
func (r *Recorder) Running() bool {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

