// Package main provides a CI-friendly WebSocket smoke test for splitbite realtime.
//
// It validates:
//   - handshake + subprotocol selection
//   - hello/ack connection establishment
//   - session_watch echo + initial orders_updated snapshot
//   - orders_updated fanout to a second watcher after an HTTP mutation
//
// The session under test must already exist; create one over the HTTP API and
// pass its id via -session.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	v1 "splitbite/shared/contracts/orders/v1"

	"github.com/coder/websocket"
)

const (
	defaultSubprotocol = "splitbite.orders.v1"
	maxReadBytes       = 1 << 20 // 1MiB
)

type smokeClient struct {
	name     string
	conn     *websocket.Conn
	clientID string

	inbox chan v1.Envelope
	errCh chan error
}

func main() {
	var (
		wsURL     = flag.String("url", "ws://127.0.0.1:8080/ws", "WebSocket URL")
		apiURL    = flag.String("api", "http://127.0.0.1:8080", "HTTP API base URL")
		origin    = flag.String("origin", "http://localhost", "Origin header to send (browser-like WS handshake)")
		sessionID = flag.String("session", "", "Order session id to watch (created beforehand via the HTTP API)")
		token     = flag.String("token", "", "Bearer token for the mutation step (minted via /api/auth/token)")
		timeout   = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose   = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if err := validateWSURL(*wsURL); err != nil {
		fatalf("invalid -url: %v", err)
	}
	if err := validateOrigin(*origin); err != nil {
		fatalf("invalid -origin: %v", err)
	}
	if strings.TrimSpace(*sessionID) == "" {
		fatalf("-session is required")
	}

	root := context.Background()

	a := mustConnect(root, "A", *wsURL, *origin, *timeout)
	defer closeWS(a.conn)

	b := mustConnect(root, "B", *wsURL, *origin, *timeout)
	defer closeWS(b.conn)

	if *verbose {
		fmt.Printf("connected: A=%s B=%s origin=%q\n", a.clientID, b.clientID, *origin)
	}

	mustWatch(root, a, *sessionID, *timeout)
	mustWatch(root, b, *sessionID, *timeout)

	// A mutation through the HTTP API must fan out to both watchers.
	if strings.TrimSpace(*token) != "" {
		mustSubmitOrder(root, *apiURL, *token, *sessionID, *timeout)
		mustAssertOrdersUpdated(root, a, *sessionID, *timeout)
		mustAssertOrdersUpdated(root, b, *sessionID, *timeout)
	} else if *verbose {
		fmt.Println("no -token given: skipping mutation fanout step")
	}

	fmt.Printf("OK: A=%s B=%s session_id=%s\n", a.clientID, b.clientID, *sessionID)
}

func validateWSURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	if strings.TrimSpace(u.Path) == "" {
		return errors.New("missing path")
	}
	return nil
}

func validateOrigin(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("origin must be http/https, got: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("origin missing host")
	}
	return nil
}

func mustConnect(parent context.Context, name, wsURL, origin string, stepTimeout time.Duration) *smokeClient {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	h := http.Header{}
	if strings.TrimSpace(origin) != "" {
		h.Set("Origin", origin)
	}

	conn, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		Subprotocols: []string{defaultSubprotocol},
		HTTPHeader:   h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err != nil {
		fatalf("connect %s: %v", name, err)
	}

	assertSubprotocol(resp, defaultSubprotocol)

	conn.SetReadLimit(maxReadBytes)

	c := &smokeClient{
		name:  name,
		conn:  conn,
		inbox: make(chan v1.Envelope, 512),
		errCh: make(chan error, 1),
	}
	c.startReadLoop()

	hello := v1.Envelope{
		V:       v1.Version,
		Type:    v1.TypeHello,
		ID:      fmt.Sprintf("%s-hello", name),
		TS:      time.Now().UTC(),
		Payload: mustJSON(v1.HelloPayload{}),
	}
	mustWriteWithTimeout(parent, conn, hello, stepTimeout)

	ack := c.mustReadUntilType(parent, v1.TypeHelloAck, stepTimeout, nil)

	var p v1.HelloAckPayload
	if err := json.Unmarshal(ack.Payload, &p); err != nil {
		fatalf("unmarshal hello_ack payload (%s): %v", name, err)
	}
	if strings.TrimSpace(p.ClientID) == "" {
		fatalf("hello_ack missing client_id (%s)", name)
	}
	c.clientID = p.ClientID

	return c
}

func assertSubprotocol(resp *http.Response, want string) {
	if resp == nil {
		return
	}
	got := strings.TrimSpace(resp.Header.Get("Sec-WebSocket-Protocol"))
	if got == "" {
		return
	}
	if got != want {
		fatalf("subprotocol mismatch: got=%q want=%q", got, want)
	}
}

func (c *smokeClient) startReadLoop() {
	go func() {
		defer close(c.inbox)

		for {
			mt, data, err := c.conn.Read(context.Background())
			if err != nil {
				select {
				case c.errCh <- err:
				default:
				}
				return
			}

			if mt != websocket.MessageText && mt != websocket.MessageBinary {
				select {
				case c.errCh <- fmt.Errorf("unsupported message type: %v", mt):
				default:
				}
				return
			}

			var env v1.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				select {
				case c.errCh <- fmt.Errorf("bad json: %w", err):
				default:
				}
				return
			}
			if err := env.Validate(); err != nil {
				select {
				case c.errCh <- fmt.Errorf("bad envelope: %w", err):
				default:
				}
				return
			}

			select {
			case c.inbox <- env:
			default:
				select {
				case c.errCh <- errors.New("inbox overflow: consumer too slow"):
				default:
				}
				return
			}
		}
	}()
}

func mustWatch(parent context.Context, c *smokeClient, sessionID string, stepTimeout time.Duration) {
	env := v1.Envelope{
		V:    v1.Version,
		Type: v1.TypeSessionWatch,
		ID:   fmt.Sprintf("%s-watch", c.name),
		TS:   time.Now().UTC(),
		Payload: mustJSON(v1.SessionWatchPayload{
			SessionID: sessionID,
		}),
	}
	mustWriteWithTimeout(parent, c.conn, env, stepTimeout)

	echo := c.mustReadUntilType(parent, v1.TypeSessionWatch, stepTimeout, nil)

	var p v1.SessionWatchPayload
	if err := json.Unmarshal(echo.Payload, &p); err != nil {
		fatalf("unmarshal watch echo payload (%s): %v", c.name, err)
	}
	if p.SessionID != sessionID {
		fatalf("watch echo session_id mismatch (%s): got=%q want=%q", c.name, p.SessionID, sessionID)
	}

	// The server pushes the current ledger right after the watch echo.
	mustAssertOrdersUpdated(parent, c, sessionID, stepTimeout)
}

func mustSubmitOrder(parent context.Context, apiURL, token, sessionID string, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	body := map[string]any{
		"items": []map[string]any{
			{"name": "smoke-noodles", "price": 9.5, "quantity": 1},
		},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		fatalf("marshal order: %v", err)
	}

	u := strings.TrimRight(apiURL, "/") + "/api/sessions/" + sessionID + "/orders"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(raw))
	if err != nil {
		fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatalf("submit order: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fatalf("submit order: status=%d", resp.StatusCode)
	}
}

func mustAssertOrdersUpdated(parent context.Context, c *smokeClient, sessionID string, stepTimeout time.Duration) {
	env := c.mustReadUntilType(parent, v1.TypeOrdersUpdated, stepTimeout, map[string]struct{}{
		v1.TypeFeeUpdated:        {},
		v1.TypeRestaurantUpdated: {},
	})

	var p v1.OrdersUpdatedPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		fatalf("unmarshal orders_updated payload (%s): %v", c.name, err)
	}
	if p.SessionID != sessionID {
		fatalf("orders_updated session_id mismatch (%s): got=%q want=%q", c.name, p.SessionID, sessionID)
	}
	if len(p.Orders) != len(p.Costs) {
		// Unavailable-only orders still appear with a zero cost row.
		fatalf("orders_updated ledger/cost mismatch (%s): orders=%d costs=%d", c.name, len(p.Orders), len(p.Costs))
	}
}

func (c *smokeClient) mustReadUntilType(parent context.Context, wantType string, stepTimeout time.Duration, skipTypes map[string]struct{}) v1.Envelope {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			fatalf("timeout waiting for %q (%s): %v", wantType, c.name, ctx.Err())
		case err := <-c.errCh:
			if err == nil {
				fatalf("connection closed while waiting for %q (%s)", wantType, c.name)
			}
			fatalf("connection error while waiting for %q (%s): %v", wantType, c.name, err)
		case env, ok := <-c.inbox:
			if !ok {
				fatalf("connection closed while waiting for %q (%s)", wantType, c.name)
			}
			if env.Type == wantType {
				return env
			}
			if env.Type == v1.TypeError {
				var ep v1.ErrorPayload
				_ = json.Unmarshal(env.Payload, &ep)
				fatalf("server error (%s): code=%q msg=%q", c.name, ep.Code, ep.Message)
			}
			if skipTypes != nil {
				if _, ok := skipTypes[env.Type]; ok {
					continue
				}
			}
			fatalf("unexpected envelope type (%s): got=%q want=%q", c.name, env.Type, wantType)
		}
	}
}

func mustWriteWithTimeout(parent context.Context, conn *websocket.Conn, env v1.Envelope, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	b, err := json.Marshal(env)
	if err != nil {
		fatalf("marshal envelope: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, b); err != nil {
		fatalf("write failed: %v", err)
	}
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func closeWS(conn *websocket.Conn) {
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
