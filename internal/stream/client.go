package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/Clang-dev/clang-tui/internal/logging"
)

// Path is the room transcription endpoint under the versioned stream base.
const Path = "/transcribe/room/asr_translate_v2"

// Framing selects how audio slices travel.
type Framing string

const (
	// FramingBinary sends each slice as its own binary frame.
	FramingBinary Framing = "binary"
	// FramingJSON sends each slice as an audio_data envelope.
	FramingJSON Framing = "json"
)

const (
	writeTimeout      = 10 * time.Second
	closeFrameTimeout = 250 * time.Millisecond
)

// ErrClosed is returned by ReadEnvelope when the connection ended cleanly,
// either by a normal close frame or by a local Close.
var ErrClosed = errors.New("connection closed")

// URL builds the room socket address from the versioned stream base.
func URL(base, roomID, userID string) string {
	q := url.Values{}
	q.Set("classroom_uid", roomID)
	q.Set("user_uid", userID)
	return strings.TrimRight(base, "/") + Path + "?" + q.Encode()
}

// Options configures Dial.
type Options struct {
	Framing          Framing
	Header           http.Header
	HandshakeTimeout time.Duration
	Logger           *log.Logger
}

// Client is one room connection. Writes are serialized; reads must come from
// a single goroutine.
type Client struct {
	conn    *websocket.Conn
	framing Framing
	logger  *log.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

// Dial opens the room socket for (roomID, userID).
func Dial(ctx context.Context, base, roomID, userID string, opts Options) (*Client, error) {
	dialer := *websocket.DefaultDialer
	if opts.HandshakeTimeout > 0 {
		dialer.HandshakeTimeout = opts.HandshakeTimeout
	}
	if opts.Framing == "" {
		opts.Framing = FramingBinary
	}
	logger := logging.OrDiscard(opts.Logger).WithPrefix(logging.PrefixStream)

	u := URL(base, roomID, userID)
	conn, _, err := dialer.DialContext(ctx, u, opts.Header)
	if err != nil {
		return nil, fmt.Errorf("connect to room: %w", err)
	}
	logger.Info("connected", "room", roomID, "user", userID, "framing", opts.Framing)

	return &Client{
		conn:    conn,
		framing: opts.Framing,
		logger:  logger,
		closed:  make(chan struct{}),
	}, nil
}

// Send writes one JSON envelope.
func (c *Client) Send(env Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("write %s: %w", env.Type, err)
	}
	c.logger.Debug("sent", "type", env.Type)
	return nil
}

// SendAudio writes one audio slice using the configured framing.
func (c *Client) SendAudio(slice []byte) error {
	if len(slice) == 0 {
		return nil
	}
	if c.framing == FramingJSON {
		return c.Send(AudioData(slice))
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(websocket.BinaryMessage, slice); err != nil {
		return fmt.Errorf("write audio: %w", err)
	}
	return nil
}

// ReadEnvelope blocks until the next JSON envelope arrives. Binary frames and
// malformed JSON are logged and skipped.
func (c *Client) ReadEnvelope() (Envelope, error) {
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
				return Envelope{}, ErrClosed
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return Envelope{}, ErrClosed
			}
			return Envelope{}, fmt.Errorf("read envelope: %w", err)
		}
		if kind != websocket.TextMessage {
			c.logger.Debug("skipping non-text frame", "kind", kind, "bytes", len(data))
			continue
		}

		env, err := Decode(data)
		if err != nil {
			c.logger.Warn("skipping malformed frame", "err", err)
			continue
		}
		c.logger.Debug("received", "type", env.Type)
		return env, nil
	}
}

// Close sends a normal close frame and shuts the connection. Safe to call
// more than once and concurrently with a blocked ReadEnvelope. A write stuck
// on a slow peer is not waited for: the close frame is skipped and closing
// the socket fails the pending write.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)

		if c.writeMu.TryLock() {
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(closeFrameTimeout))
			c.writeMu.Unlock()
		} else {
			c.logger.Debug("write in flight, closing without close frame")
		}

		err = c.conn.Close()
		c.logger.Info("disconnected")
	})
	return err
}
