// Package realtime subscribes to the remote change feed over a websocket.
//
// The feed pushes one JSON message per changed row. The listener does not
// apply changes itself; it only tells the caller that something changed so
// a regular sync cycle can pick it up.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/dmitrijs2005/logmoments/internal/logging"
)

// DefaultReconnectDelay is the pause between a dropped connection and the
// next dial.
const DefaultReconnectDelay = 30 * time.Second

// Change is the subset of a feed message the listener looks at.
type Change struct {
	Type   string `json:"type"`
	Table  string `json:"table"`
	UserID string `json:"user_id"`
}

// TokenSource supplies the bearer token sent on dial.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

type Listener struct {
	url    string
	apiKey string
	tokens TokenSource
	delay  time.Duration
	log    logging.Logger
}

func NewListener(url, apiKey string, tokens TokenSource, log logging.Logger) *Listener {
	if log == nil {
		log = logging.Nop()
	}
	return &Listener{
		url:    url,
		apiKey: apiKey,
		tokens: tokens,
		delay:  DefaultReconnectDelay,
		log:    log.With("module", "realtime"),
	}
}

// SetReconnectDelay overrides DefaultReconnectDelay.
func (l *Listener) SetReconnectDelay(d time.Duration) {
	if d > 0 {
		l.delay = d
	}
}

// Run keeps a connection open until ctx is done, calling onChange once per
// received change. Dial and read failures are logged and retried after the
// reconnect delay. Run returns ctx.Err().
func (l *Listener) Run(ctx context.Context, onChange func(Change)) error {
	for {
		err := l.session(ctx, onChange)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if IsClosed(err) {
			l.log.Info(ctx, "realtime feed closed by server", "retry_in", l.delay.String())
		} else {
			l.log.Warn(ctx, "realtime connection lost", "error", err, "retry_in", l.delay.String())
		}

		t := time.NewTimer(l.delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (l *Listener) header(ctx context.Context) http.Header {
	h := http.Header{}
	if l.apiKey != "" {
		h.Set("apikey", l.apiKey)
	}
	if l.tokens != nil {
		if tok, err := l.tokens.AccessToken(ctx); err == nil && tok != "" {
			h.Set("Authorization", "Bearer "+tok)
		}
	}
	return h
}

// session dials once and reads until the connection fails.
func (l *Listener) session(ctx context.Context, onChange func(Change)) error {
	conn, _, err := websocket.Dial(ctx, l.url, &websocket.DialOptions{HTTPHeader: l.header(ctx)})
	if err != nil {
		return fmt.Errorf("dial %s: %w", l.url, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	l.log.Info(ctx, "realtime connected", "url", l.url)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			continue
		}
		var c Change
		if err := json.Unmarshal(data, &c); err != nil {
			l.log.Debug(ctx, "ignoring malformed change message", "error", err)
			continue
		}
		onChange(c)
	}
}

// IsClosed reports whether err is a normal websocket closure.
func IsClosed(err error) bool {
	var ce websocket.CloseError
	return errors.As(err, &ce) && ce.Code == websocket.StatusNormalClosure
}
