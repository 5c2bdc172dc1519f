package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	gatewayVersion = "10"
	maxFrameBytes  = 4 << 20

	reconnectBase = time.Second
	reconnectMax  = time.Minute
)

// gateway maintains one websocket session to the Discord gateway:
// hello/identify handshake, heartbeats, and dispatch delivery.
type gateway struct {
	token    string
	intents  int
	dispatch func(event string, data json.RawMessage)
	logger   *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
	seq  int64
}

// run connects and processes events until ctx is canceled or the
// connection drops. Callers loop over run with backoff for reconnects.
func (g *gateway) run(ctx context.Context, url string) error {
	wsURL := url + "/?v=" + gatewayVersion + "&encoding=json"

	dialCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	conn, _, err := websocket.Dial(dialCtx, wsURL, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("discord: dial gateway: %w", err)
	}
	conn.SetReadLimit(maxFrameBytes)

	g.mu.Lock()
	g.conn = conn
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.conn = nil
		g.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	// The handshake starts with a hello carrying the heartbeat interval.
	hello, err := g.read(ctx, conn)
	if err != nil {
		return err
	}
	if hello.Op != opHello {
		return fmt.Errorf("discord: expected hello, got op %d", hello.Op)
	}
	var hd helloData
	if err := json.Unmarshal(hello.Data, &hd); err != nil {
		return fmt.Errorf("discord: decode hello: %w", err)
	}

	if err := g.send(ctx, conn, payload{Op: opIdentify, Data: mustMarshal(identifyData{
		Token:   g.token,
		Intents: g.intents,
		Properties: identifyProperties{
			OS:      runtime.GOOS,
			Browser: "orb",
			Device:  "orb",
		},
	})}); err != nil {
		return err
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	hbErr := make(chan error, 1)
	go g.heartbeat(hbCtx, conn, time.Duration(hd.HeartbeatIntervalMS)*time.Millisecond, hbErr)

	for {
		select {
		case err := <-hbErr:
			return err
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		p, err := g.read(ctx, conn)
		if err != nil {
			return err
		}

		switch p.Op {
		case opDispatch:
			if p.Seq != nil {
				g.mu.Lock()
				g.seq = *p.Seq
				g.mu.Unlock()
			}
			g.dispatch(p.Type, p.Data)
		case opHeartbeat:
			// Immediate heartbeat request from the server.
			if err := g.sendHeartbeat(ctx, conn); err != nil {
				return err
			}
		case opHeartbeatACK:
			// Nothing to do.
		case opReconnect, opInvalidSession:
			g.logger.Info("gateway requested reconnect", "op", p.Op)
			return errReconnect
		default:
			g.logger.Debug("unhandled gateway op", "op", p.Op)
		}
	}
}

var errReconnect = errors.New("discord: gateway reconnect requested")

// heartbeat sends op 1 at the server-provided interval.
func (g *gateway) heartbeat(ctx context.Context, conn *websocket.Conn, interval time.Duration, out chan<- error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := g.sendHeartbeat(ctx, conn); err != nil {
				out <- err
				return
			}
		}
	}
}

func (g *gateway) sendHeartbeat(ctx context.Context, conn *websocket.Conn) error {
	g.mu.Lock()
	seq := g.seq
	g.mu.Unlock()

	var data json.RawMessage
	if seq > 0 {
		data = mustMarshal(seq)
	} else {
		data = json.RawMessage("null")
	}
	return g.send(ctx, conn, payload{Op: opHeartbeat, Data: data})
}

func (g *gateway) read(ctx context.Context, conn *websocket.Conn) (payload, error) {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return payload{}, fmt.Errorf("discord: gateway read: %w", err)
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return payload{}, fmt.Errorf("discord: decode gateway payload: %w", err)
	}
	return p, nil
}

func (g *gateway) send(ctx context.Context, conn *websocket.Conn, p payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("discord: encode gateway payload: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("discord: gateway write: %w", err)
	}
	return nil
}

// close shuts the current connection if one is open.
func (g *gateway) close() {
	g.mu.Lock()
	conn := g.conn
	g.mu.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "shutting down")
	}
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
