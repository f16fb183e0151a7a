package offline

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// ConnectivityProbe reports whether the main ledger's endpoint is
// currently reachable, the "simple reachability probe" spec.md §4.7
// requires before a sync attempt.
type ConnectivityProbe interface {
	Reachable(ctx context.Context) bool
}

// WebSocketProbe dials endpoint and reports success as reachability,
// grounded on other_examples' coinjoin-engine client, which opens a
// websocket connection to its coordinator the same way before
// submitting a signed transaction.
type WebSocketProbe struct {
	Endpoint string
	Dialer   *websocket.Dialer
}

// NewWebSocketProbe constructs a WebSocketProbe against endpoint using
// gorilla/websocket's default dialer.
func NewWebSocketProbe(endpoint string) *WebSocketProbe {
	return &WebSocketProbe{Endpoint: endpoint, Dialer: websocket.DefaultDialer}
}

// Reachable dials Endpoint and immediately closes the connection on
// success; any dial error (refused, timeout, TLS failure) is treated
// as unreachable.
func (p *WebSocketProbe) Reachable(ctx context.Context) bool {
	dialer := p.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, p.Endpoint, nil)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// PollUntilReachable blocks, polling probe every interval, until
// either probe reports reachable or ctx is done. It returns promptly
// on the first reachable check; the caller is responsible for
// initiating Sync afterward.
func PollUntilReachable(ctx context.Context, probe ConnectivityProbe, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if probe.Reachable(ctx) {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("offline: connectivity wait cancelled: %w", ctx.Err())
		case <-ticker.C:
			if probe.Reachable(ctx) {
				return nil
			}
		}
	}
}
