package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/joonholab/argos/internal/realtime"
	"github.com/joonholab/argos/pkg/backoff"
	"github.com/joonholab/argos/pkg/logger"
)

const (
	handshakeTimeout = 10 * time.Second
	loginTimeout     = 5 * time.Second

	reconnectBase        = 5 * time.Second
	maxReconnectAttempts = 10

	watchdogPeriod = 30 * time.Second
)

// State is the feed connection state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateAwaitingLogin
	StateConnected
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAwaitingLogin:
		return "awaiting_login"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Handler consumes one realtime event.
type Handler func(realtime.Event)

// Client keeps a realtime websocket session alive: dial, LOGIN, subscription
// replay, and linear-backoff reconnect until the attempt budget runs out.
// ⭐ SSOT: 실시간 웹소켓 연결은 이 클라이언트에서만 관리
type Client struct {
	url    string
	token  func() string
	logger *logger.Logger

	registry  *realtime.Registry
	queue     *realtime.Queue
	reconnect backoff.Policy

	handlersMu sync.RWMutex
	handlers   map[realtime.Topic][]Handler

	connMu sync.Mutex
	conn   *websocket.Conn

	state    atomic.Int32
	attempts atomic.Int32
	lastMsg  atomic.Int64 // unix nanos of last inbound frame
}

// NewClient creates a feed client. token is called on every login so a
// refreshed access token is always used.
func NewClient(url string, token func() string, log *logger.Logger) *Client {
	return &Client{
		url:      url,
		token:    token,
		logger:   log,
		registry: realtime.NewRegistry(),
		queue:    realtime.NewQueue(realtime.DefaultQueueCapacity, log),
		reconnect: backoff.Policy{
			Base:        reconnectBase,
			Growth:      backoff.Linear,
			MaxAttempts: maxReconnectAttempts,
		},
		handlers: make(map[realtime.Topic][]Handler),
	}
}

// State returns the current connection state.
func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
}

// OnEvent registers a handler for a topic. Handlers must be registered
// before Run.
func (c *Client) OnEvent(topic realtime.Topic, h Handler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers[topic] = append(c.handlers[topic], h)
}

// Subscribe records a subscription and, when connected, pushes the REG
// frame immediately. Code "ALL" subscribes every stock.
func (c *Client) Subscribe(topic realtime.Topic, code string) error {
	c.registry.Add(topic, code)
	if c.State() != StateConnected {
		return nil
	}
	return c.writeReg("REG", topic, code)
}

// Unsubscribe removes a subscription and, when connected, pushes the
// REMOVE frame immediately.
func (c *Client) Unsubscribe(topic realtime.Topic, code string) error {
	c.registry.Remove(topic, code)
	if c.State() != StateConnected {
		return nil
	}
	return c.writeReg("REMOVE", topic, code)
}

// Run connects and serves the session until ctx is cancelled or the
// reconnect budget is exhausted. The returned error is nil only on
// cancellation.
func (c *Client) Run(ctx context.Context) error {
	go c.dispatchLoop(ctx)
	go c.watchdogLoop(ctx)

	for {
		conn, err := c.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if err := c.delayReconnect(ctx, err); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			continue
		}

		// A completed login resets the reconnect counter.
		c.attempts.Store(0)

		if err := c.serve(ctx, conn); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.WithError(err).Warn("피드 연결 끊김, 재연결 시도")
			if err := c.delayReconnect(ctx, err); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			continue
		}
		return nil
	}
}

// delayReconnect counts the failure against the reconnect budget and waits
// the attempt's delay. Connect failures and dropped established sessions
// both go through here.
func (c *Client) delayReconnect(ctx context.Context, cause error) error {
	attempt := int(c.attempts.Add(1))
	if c.reconnect.Exhausted(attempt) {
		c.setState(StateFailed)
		c.logger.WithError(cause).WithField("attempts", attempt).
			Error("실시간 피드 재연결 포기")
		return fmt.Errorf("feed down after %d attempts: %w", attempt, cause)
	}

	c.setState(StateReconnecting)
	c.logger.WithError(cause).WithFields(map[string]interface{}{
		"attempt": attempt,
		"delay":   c.reconnect.Delay(attempt).String(),
	}).Warn("피드 재연결 대기")

	return c.reconnect.Sleep(ctx, attempt)
}

// connect dials, logs in, and replays the subscription registry.
func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	c.setState(StateConnecting)

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.url, err)
	}

	c.setState(StateAwaitingLogin)

	if err := conn.WriteJSON(map[string]string{
		"trnm":  "LOGIN",
		"token": c.token(),
	}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send login: %w", err)
	}

	if err := c.awaitLoginAck(conn); err != nil {
		conn.Close()
		return nil, err
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	c.setState(StateConnected)
	c.lastMsg.Store(time.Now().UnixNano())
	c.logger.Info("실시간 피드 로그인 성공")

	if err := c.replaySubscriptions(); err != nil {
		c.logger.WithError(err).Error("Subscription replay failed")
		conn.Close()
		return nil, err
	}

	return conn, nil
}

// awaitLoginAck reads frames until the LOGIN ack arrives or the login
// window closes.
func (c *Client) awaitLoginAck(conn *websocket.Conn) error {
	deadline := time.Now().Add(loginTimeout)
	if err := conn.SetReadDeadline(deadline); err != nil {
		return err
	}
	defer conn.SetReadDeadline(time.Time{})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("await login ack: %w", err)
		}

		var frame inboundFrame
		if err := json.Unmarshal(msg, &frame); err != nil {
			continue
		}
		if frame.Trnm != "LOGIN" {
			continue
		}
		if frame.ReturnCode != 0 {
			return fmt.Errorf("login rejected: code=%d msg=%s", frame.ReturnCode, frame.ReturnMsg)
		}
		return nil
	}
}

// replaySubscriptions re-registers everything in the registry, one REG
// frame per entry.
func (c *Client) replaySubscriptions() error {
	for topic, codes := range c.registry.Snapshot() {
		for _, code := range codes {
			if err := c.writeReg("REG", topic, code); err != nil {
				return fmt.Errorf("replay %s/%s: %w", topic, code, err)
			}
		}
	}
	return nil
}

// serve reads frames until the connection breaks or ctx is cancelled.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) error {
	defer func() {
		c.connMu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.connMu.Unlock()
		conn.Close()
		if c.State() == StateConnected {
			c.setState(StateDisconnected)
		}
	}()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}

		c.lastMsg.Store(time.Now().UnixNano())
		c.handleFrame(conn, msg)
	}
}

func (c *Client) handleFrame(conn *websocket.Conn, msg []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(msg, &frame); err != nil {
		c.logger.WithError(err).Debug("Unparseable frame ignored")
		return
	}

	switch frame.Trnm {
	case "PING":
		// 받은 메시지 그대로 응답
		if err := c.writeMessage(conn, msg); err != nil {
			c.logger.WithError(err).Warn("Ping echo failed")
		}
	case "REG", "REMOVE":
		c.logger.WithFields(map[string]interface{}{
			"trnm":       frame.Trnm,
			"returnCode": frame.ReturnCode,
			"returnMsg":  frame.ReturnMsg,
		}).Debug("Subscription ack")
	case "REAL":
		now := time.Now()
		for _, d := range frame.Data {
			c.queue.Push(realtime.Event{
				Topic:      realtime.Topic(d.Type),
				Code:       d.Item,
				Name:       d.Name,
				Values:     d.Values,
				ReceivedAt: now,
			})
		}
	case "LOGIN":
		// Late login ack after replay, nothing to do.
	default:
		c.logger.WithField("trnm", frame.Trnm).Debug("Unknown frame type")
	}
}

// dispatchLoop fans queued events out to topic handlers.
func (c *Client) dispatchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-c.queue.Events():
			if !ok {
				return
			}
			c.dispatch(ev)
		}
	}
}

// dispatch routes one event to every handler of its topic. A panicking
// handler is logged and skipped, the rest still run.
func (c *Client) dispatch(ev realtime.Event) {
	c.handlersMu.RLock()
	handlers := c.handlers[ev.Topic]
	c.handlersMu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.WithFields(map[string]interface{}{
						"topic": string(ev.Topic),
						"code":  ev.Code,
						"panic": fmt.Sprint(r),
					}).Error("Event handler panicked")
				}
			}()
			h(ev)
		}()
	}
}

// watchdogLoop logs when no frame has arrived for a full period. The
// read loop's own error handling drives the actual reconnect.
func (c *Client) watchdogLoop(ctx context.Context) {
	ticker := time.NewTicker(watchdogPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.State() != StateConnected {
				continue
			}
			last := time.Unix(0, c.lastMsg.Load())
			if silence := time.Since(last); silence > watchdogPeriod {
				c.logger.WithField("silence", silence.String()).
					Warn("피드 수신 없음")
			}
		}
	}
}

func (c *Client) writeReg(trnm string, topic realtime.Topic, code string) error {
	item := code
	if code == realtime.CodeAll {
		item = ""
	}
	return c.writeJSON(map[string]interface{}{
		"trnm":    trnm,
		"grp_no":  "1",
		"refresh": "1",
		"data": []map[string]interface{}{
			{
				"item": []string{item},
				"type": []string{string(topic)},
			},
		},
	})
}

func (c *Client) writeJSON(v interface{}) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	return c.conn.WriteJSON(v)
}

func (c *Client) writeMessage(conn *websocket.Conn, msg []byte) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, msg)
}

// inboundFrame covers every server-to-client message shape.
type inboundFrame struct {
	Trnm       string     `json:"trnm"`
	ReturnCode int        `json:"return_code"`
	ReturnMsg  string     `json:"return_msg"`
	Data       []realData `json:"data"`
}

type realData struct {
	Type   string            `json:"type"`
	Item   string            `json:"item"`
	Name   string            `json:"name"`
	Values map[string]string `json:"values"`
}
