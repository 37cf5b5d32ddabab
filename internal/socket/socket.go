// Package socket wraps the per-model websocket to the chat bridge.
package socket

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ollamachat/internal/logging"
	"ollamachat/internal/models"
)

const (
	DefaultHandshakeTimeout = 15 * time.Second
	closeWriteTimeout       = time.Second
)

// Endpoint builds the websocket URL for model from the bridge's HTTP base URL.
func Endpoint(baseURL string, model models.ModelID) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}

	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws", "":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server url %q has no host", baseURL)
	}

	prefix := strings.TrimRight(u.Path, "/") + "/ws/"
	u.Path = prefix + string(model)
	u.RawPath = (&url.URL{Path: prefix}).EscapedPath() + url.PathEscape(string(model))
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

type Dialer struct {
	HandshakeTimeout time.Duration
	Logger           zerolog.Logger
}

func NewDialer(logger zerolog.Logger) *Dialer {
	return &Dialer{
		HandshakeTimeout: DefaultHandshakeTimeout,
		Logger:           logging.Component(logger, "socket"),
	}
}

// Dial opens one connection. There are no retries; a failed dial leaves
// the caller disconnected.
func (d *Dialer) Dial(ctx context.Context, endpoint string) (*Conn, error) {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = d.HandshakeTimeout

	d.Logger.Debug().Str("url", endpoint).Msg("Dialing")
	ws, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	d.Logger.Info().Str("url", endpoint).Msg("Connected")
	return &Conn{ws: ws, url: endpoint, logger: d.Logger}, nil
}

// Conn is one open websocket. Send is safe for concurrent use; ReadFrame
// must only be called from a single goroutine.
type Conn struct {
	ws     *websocket.Conn
	url    string
	logger zerolog.Logger

	writeMu sync.Mutex
	closeMu sync.Mutex
	closed  bool
}

func (c *Conn) URL() string { return c.url }

// Send writes frame as one JSON text message.
func (c *Conn) Send(frame any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.WriteJSON(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadFrame blocks until the next text or binary message arrives.
func (c *Conn) ReadFrame() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	c.logger.Trace().Str("url", c.url).Bytes("frame", data).Msg("Frame received")
	return data, nil
}

// Close sends a normal close frame and tears down the connection. Calling
// it more than once is harmless.
func (c *Conn) Close() error {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return nil
	}
	c.closed = true
	c.closeMu.Unlock()

	c.writeMu.Lock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(closeWriteTimeout))
	_ = c.ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()

	c.logger.Debug().Str("url", c.url).Msg("Closed")
	return c.ws.Close()
}

// IsNormalClose reports whether err is the expected result of either side
// closing the connection on purpose.
func IsNormalClose(err error) bool {
	if err == nil {
		return false
	}
	if websocket.IsCloseError(err, websocket.CloseNormalClosure,
		websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		return true
	}
	return errors.Is(err, net.ErrClosed)
}
