package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
	"github.com/custodia-labs/threadsearch/internal/core/ports/driven"
	"github.com/custodia-labs/threadsearch/internal/logger"
)

// Subprotocol is negotiated on every connection.
const Subprotocol = "threadsearch-v1"

// AccountHeader carries the account a connection searches.
const AccountHeader = "X-Account-Id"

// DefaultPingTimeout is how long a connection may stay silent, pings
// included, before it is treated as dead.
var DefaultPingTimeout = 30 * time.Second

// DefaultDialTimeout bounds the WebSocket handshake.
var DefaultDialTimeout = 10 * time.Second

// ErrPingTimeout is logged when no frame arrives within the ping timeout.
var ErrPingTimeout = errors.New("ping timeout: no frames received")

// maxReadSize caps a single frame. Batches are JSON rows, 4 MB is plenty.
const maxReadSize = 4 << 20

// frame is one JSON message from the server.
type frame struct {
	Type    string          `json:"type"`
	Threads []domain.Thread `json:"threads,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Connector opens streaming search connections against one server.
type Connector struct {
	baseURL     string
	tokens      oauth2.TokenSource
	httpClient  *http.Client
	pingTimeout time.Duration
	dialTimeout time.Duration
}

// Ensure Connector implements the interface.
var _ driven.StreamConnector = (*Connector)(nil)

// NewConnector creates a connector for the server at baseURL
// (ws://, wss://, http:// or https://). tokens may be nil for
// unauthenticated servers.
func NewConnector(baseURL string, tokens oauth2.TokenSource) *Connector {
	return &Connector{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		tokens:      tokens,
		pingTimeout: DefaultPingTimeout,
		dialTimeout: DefaultDialTimeout,
	}
}

// NewConnectorFromSettings creates a connector from stream settings.
// A non-empty token is sent as a static bearer token.
func NewConnectorFromSettings(s domain.StreamSettings) *Connector {
	var tokens oauth2.TokenSource
	if s.Token != "" {
		tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: s.Token, TokenType: "Bearer"})
	}
	return NewConnector(s.BaseURL, tokens)
}

// SetPingTimeout overrides the silence timeout. Zero disables it.
func (c *Connector) SetPingTimeout(d time.Duration) {
	c.pingTimeout = d
}

// SetHTTPClient overrides the client used for the handshake.
func (c *Connector) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Connect prepares a connection. No I/O happens until Start.
func (c *Connector) Connect(accountID, path string, handlers driven.StreamHandlers) (driven.StreamConnection, error) {
	if accountID == "" {
		return nil, fmt.Errorf("%w: empty account id", domain.ErrInvalidInput)
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("%w: no stream base url configured", domain.ErrInvalidInput)
	}
	target := c.baseURL + path
	if _, err := url.Parse(target); err != nil {
		return nil, fmt.Errorf("%w: stream url: %v", domain.ErrInvalidInput, err)
	}
	if handlers.OnBatch == nil {
		handlers.OnBatch = func([]domain.Thread) {}
	}
	if handlers.OnStatusChanged == nil {
		handlers.OnStatusChanged = func(domain.StreamStatus) {}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &connection{
		connector: c,
		accountID: accountID,
		url:       target,
		handlers:  handlers,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// connection is one streaming search. It is safe for concurrent use.
type connection struct {
	connector *Connector
	accountID string
	url       string
	handlers  driven.StreamHandlers

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
	ended   bool
	conn    *websocket.Conn

	terminal sync.Once
}

// Start dials the server and begins delivering events from a background
// goroutine. It returns domain.ErrStreamClosed after End.
func (c *connection) Start() error {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return domain.ErrStreamClosed
	}
	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("stream for %s already started", c.accountID)
	}
	c.started = true
	c.mu.Unlock()

	c.handlers.OnStatusChanged(domain.StreamConnecting)

	header := http.Header{}
	header.Set(AccountHeader, c.accountID)
	if c.connector.tokens != nil {
		tok, err := c.connector.tokens.Token()
		if err != nil {
			c.finish(domain.StreamClosed)
			return fmt.Errorf("stream token: %w", err)
		}
		header.Set("Authorization", tok.Type()+" "+tok.AccessToken)
	}

	dialCtx, dialCancel := context.WithTimeout(c.ctx, c.connector.dialTimeout)
	defer dialCancel()

	conn, resp, err := websocket.Dial(dialCtx, c.url, &websocket.DialOptions{
		HTTPClient:   c.connector.httpClient,
		HTTPHeader:   header,
		Subprotocols: []string{Subprotocol},
	})
	if err != nil {
		c.finish(domain.StreamClosed)
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return fmt.Errorf("%w: %s", domain.ErrStreamRejected, resp.Status)
		}
		return fmt.Errorf("dial %s: %w", c.accountID, err)
	}
	conn.SetReadLimit(maxReadSize)

	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		_ = conn.CloseNow()
		return domain.ErrStreamClosed
	}
	c.conn = conn
	c.mu.Unlock()

	logger.Debug("Stream %s: connected to %s", c.accountID, c.url)
	c.handlers.OnStatusChanged(domain.StreamOpen)

	go c.readLoop(conn)
	return nil
}

// readLoop delivers frames until the stream ends or the socket drops.
func (c *connection) readLoop(conn *websocket.Conn) {
	pingTimeout := c.connector.pingTimeout
	for {
		readCtx := c.ctx
		var readCancel context.CancelFunc
		if pingTimeout > 0 {
			readCtx, readCancel = context.WithTimeout(c.ctx, pingTimeout)
		}

		_, data, err := conn.Read(readCtx)

		if readCancel != nil {
			readCancel()
		}

		if err != nil {
			if pingTimeout > 0 && c.ctx.Err() == nil && readCtx.Err() != nil {
				err = ErrPingTimeout
			}
			if c.ctx.Err() == nil {
				logger.Debug("Stream %s: read: %v", c.accountID, err)
			}
			_ = conn.CloseNow()
			c.finish(domain.StreamClosed)
			c.cancel()
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			logger.Warn("Stream %s: skipping malformed frame: %v", c.accountID, err)
			continue
		}

		switch f.Type {
		case "batch":
			if len(f.Threads) > 0 {
				c.handlers.OnBatch(f.Threads)
			}
		case "error":
			logger.Warn("Stream %s: server error: %s", c.accountID, f.Message)
			c.handlers.OnStatusChanged(domain.StreamErrored)
		case "end":
			c.finish(domain.StreamEnded)
			_ = conn.Close(websocket.StatusNormalClosure, "done")
			c.cancel()
			return
		case "ping":
			continue
		default:
			logger.Debug("Stream %s: ignoring frame type %q", c.accountID, f.Type)
		}
	}
}

// End closes the connection without waiting for the reader to exit.
func (c *connection) End() error {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return nil
	}
	c.ended = true
	conn := c.conn
	c.mu.Unlock()

	c.cancel()
	if conn != nil {
		_ = conn.CloseNow()
	}
	c.finish(domain.StreamClosed)
	return nil
}

// finish reports the terminal status once.
func (c *connection) finish(status domain.StreamStatus) {
	c.terminal.Do(func() {
		c.handlers.OnStatusChanged(status)
	})
}
