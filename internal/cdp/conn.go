// Package cdp is a minimal Chrome DevTools Protocol client over a single
// browser-level websocket, using flattened target sessions.
package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrClosed is returned by calls on a closed connection.
var ErrClosed = errors.New("devtools connection closed")

// Error is a protocol-level error reply.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (e *Error) Error() string {
	if e.Data != "" {
		return fmt.Sprintf("cdp error %d: %s (%s)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("cdp error %d: %s", e.Code, e.Message)
}

// Event is an unsolicited protocol message.
type Event struct {
	SessionID string
	Method    string
	Params    json.RawMessage
}

// Unmarshal decodes the event parameters into v.
func (e Event) Unmarshal(v any) error {
	if len(e.Params) == 0 {
		return nil
	}
	return json.Unmarshal(e.Params, v)
}

type message struct {
	ID        int64           `json:"id,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Method    string          `json:"method,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *Error          `json:"error,omitempty"`
}

const (
	readLimit    = 64 << 20
	writeTimeout = 10 * time.Second
)

// Conn is a DevTools connection. Call is safe for concurrent use. Event
// handlers run in order on a dedicated goroutine and may call Call.
type Conn struct {
	ws     *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	nextID   int64
	pending  map[int64]chan *message
	handlers []func(Event)
	closeErr error

	queue []Event
	wake  chan struct{}
	done  chan struct{}
	once  sync.Once
}

// Dial connects to a browser websocket debugger URL.
func Dial(ctx context.Context, wsURL string, logger *slog.Logger) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial devtools: %w", err)
	}
	return newConn(ws, logger), nil
}

func newConn(ws *websocket.Conn, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	ws.SetReadLimit(readLimit)
	c := &Conn{
		ws:      ws,
		logger:  logger.With("component", "cdp"),
		pending: make(map[int64]chan *message),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go c.readPump()
	go c.dispatch()
	return c
}

// OnEvent registers fn for every event.
func (c *Conn) OnEvent(fn func(Event)) {
	c.mu.Lock()
	c.handlers = append(c.handlers, fn)
	c.mu.Unlock()
}

// Done is closed when the connection ends.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns why the connection ended, or nil while it is open.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeErr
}

// Call sends method with params to sessionID ("" for the browser target)
// and decodes the result into result when it is non-nil.
func (c *Conn) Call(ctx context.Context, sessionID, method string, params, result any) error {
	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("%s: encode params: %w", method, err)
		}
		raw = data
	}

	reply := make(chan *message, 1)
	c.mu.Lock()
	if c.closeErr != nil {
		c.mu.Unlock()
		return ErrClosed
	}
	c.nextID++
	id := c.nextID
	c.pending[id] = reply
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.write(&message{ID: id, SessionID: sessionID, Method: method, Params: raw}); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	select {
	case msg := <-reply:
		if msg.Error != nil {
			return fmt.Errorf("%s: %w", method, msg.Error)
		}
		if result != nil && len(msg.Result) > 0 {
			if err := json.Unmarshal(msg.Result, result); err != nil {
				return fmt.Errorf("%s: decode result: %w", method, err)
			}
		}
		return nil
	case <-c.done:
		return fmt.Errorf("%s: %w", method, ErrClosed)
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", method, ctx.Err())
	}
}

// Close ends the connection.
func (c *Conn) Close() error {
	c.shutdown(ErrClosed)
	return nil
}

func (c *Conn) write(msg *message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *Conn) readPump() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("devtools read failed", "error", err)
			}
			c.shutdown(err)
			return
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Debug("undecodable devtools message", "error", err)
			continue
		}

		if msg.ID != 0 {
			c.mu.Lock()
			reply, ok := c.pending[msg.ID]
			c.mu.Unlock()
			if ok {
				reply <- &msg
			}
			continue
		}
		if msg.Method == "" {
			continue
		}

		c.mu.Lock()
		c.queue = append(c.queue, Event{SessionID: msg.SessionID, Method: msg.Method, Params: msg.Params})
		c.mu.Unlock()
		select {
		case c.wake <- struct{}{}:
		default:
		}
	}
}

func (c *Conn) dispatch() {
	for {
		select {
		case <-c.wake:
		case <-c.done:
			return
		}
		c.mu.Lock()
		events := c.queue
		c.queue = nil
		handlers := slices.Clone(c.handlers)
		c.mu.Unlock()
		for _, ev := range events {
			for _, h := range handlers {
				h(ev)
			}
		}
	}
}

func (c *Conn) shutdown(err error) {
	c.once.Do(func() {
		if err == nil {
			err = ErrClosed
		}
		c.mu.Lock()
		c.closeErr = err
		c.mu.Unlock()

		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		_ = c.ws.Close()
		close(c.done)
	})
}

// Session scopes calls to one attached target.
type Session struct {
	Conn *Conn
	ID   string
}

// Call sends method to the session's target.
func (s Session) Call(ctx context.Context, method string, params, result any) error {
	return s.Conn.Call(ctx, s.ID, method, params, result)
}
