package outbound

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const defaultTimeout = 30 * time.Second

// HTTP posts each envelope as JSON. The response body is the reply stream.
type HTTP struct {
	URL    string
	Client *http.Client
	Header http.Header
}

// NewHTTP creates an HTTP transport with the given request timeout.
func NewHTTP(url string, timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTP{URL: url, Client: &http.Client{Timeout: timeout}}
}

func (h *HTTP) Send(ctx context.Context, env Envelope) (io.ReadCloser, error) {
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	for k, vs := range h.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/jsonl, application/json")

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("status %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	return resp.Body, nil
}

// ErrUnauthorized is returned by Probe when the endpoint rejects the
// configured credentials.
var ErrUnauthorized = errors.New("endpoint rejected credentials")

// Prober is a transport that can check its endpoint without sending an action.
type Prober interface {
	Probe(ctx context.Context) error
}

// Probe sends a HEAD request. Any answer short of an auth failure or a
// server error counts as reachable; agents often only accept POST.
func (h *HTTP) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, h.URL, nil)
	if err != nil {
		return err
	}
	for k, vs := range h.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w (status %s)", ErrUnauthorized, resp.Status)
	case resp.StatusCode >= 500:
		return fmt.Errorf("status %s", resp.Status)
	}
	return nil
}

// WebSocket dials the backend per action, writes the envelope as one JSON
// frame and streams every text frame that follows as one line, until the
// server closes the connection or ctx is done. A done ctx ends the stream
// with ctx.Err().
type WebSocket struct {
	URL     string
	Timeout time.Duration
	Header  http.Header
}

// NewWebSocket creates a websocket transport.
func NewWebSocket(url string, timeout time.Duration) *WebSocket {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &WebSocket{URL: url, Timeout: timeout}
}

func (w *WebSocket) Send(ctx context.Context, env Envelope) (io.ReadCloser, error) {
	d := &websocket.Dialer{HandshakeTimeout: w.Timeout}
	conn, resp, err := d.DialContext(ctx, w.URL, w.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial failed: %w (status %s)", err, resp.Status)
		}
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	if err := conn.WriteJSON(env); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write envelope: %w", err)
	}

	pr, pw := io.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		pump(conn, pw)
	}()
	go func() {
		select {
		case <-ctx.Done():
			pw.CloseWithError(ctx.Err())
			conn.Close()
		case <-done:
		}
	}()
	return &wsStream{PipeReader: pr, conn: conn}, nil
}

// Probe completes a handshake and closes the connection.
func (w *WebSocket) Probe(ctx context.Context) error {
	d := &websocket.Dialer{HandshakeTimeout: w.Timeout}
	conn, resp, err := d.DialContext(ctx, w.URL, w.Header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return fmt.Errorf("%w (status %s)", ErrUnauthorized, resp.Status)
		}
		return fmt.Errorf("dial failed: %w", err)
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return conn.Close()
}

func pump(conn *websocket.Conn, pw *io.PipeWriter) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = nil
			}
			pw.CloseWithError(err)
			return
		}
		data = append(bytes.TrimRight(data, "\r\n"), '\n')
		if _, err := pw.Write(data); err != nil {
			return
		}
	}
}

type wsStream struct {
	*io.PipeReader
	conn *websocket.Conn
	once sync.Once
}

func (s *wsStream) Close() error {
	var err error
	s.once.Do(func() {
		s.PipeReader.Close()
		err = s.conn.Close()
		if errors.Is(err, websocket.ErrCloseSent) {
			err = nil
		}
	})
	return err
}

// Writer writes each envelope as a JSON line to W and returns an empty reply
// stream. It is the offline transport used by replay.
type Writer struct {
	mu sync.Mutex
	W  io.Writer
}

func (w *Writer) Send(_ context.Context, env Envelope) (io.ReadCloser, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	enc := json.NewEncoder(w.W)
	if err := enc.Encode(env); err != nil {
		return nil, fmt.Errorf("write envelope: %w", err)
	}
	return io.NopCloser(strings.NewReader("")), nil
}
