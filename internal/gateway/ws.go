package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"toolbroker/internal/domain"
)

// Frame types of the WebSocket protocol.
const (
	FrameInvoke  = "invoke"
	FrameResults = "results"
	FrameError   = "error"
)

// WSMessage is the JSON message protocol for the WebSocket gateway.
// Example: {"type":"invoke","id":"turn-1","requests":[...],"context":{"sessionId":"123"}}
type WSMessage struct {
	Type     string                   `json:"type"`
	ID       string                   `json:"id,omitempty"`
	Requests []domain.ToolCallRequest `json:"requests,omitempty"`
	Context  map[string]any           `json:"context,omitempty"`
	Results  []domain.ToolCallResult  `json:"results,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

// jsonMarshal is used when encoding responses; tests may replace it to force Marshal errors.
// Access is protected by jsonMarshalMu for race-safe test swaps.
var (
	jsonMarshalMu sync.RWMutex
	jsonMarshalFn = json.Marshal
)

func jsonMarshal(v any) ([]byte, error) {
	jsonMarshalMu.RLock()
	marshal := jsonMarshalFn
	jsonMarshalMu.RUnlock()
	return marshal(v)
}

// Default upgrader for WebSocket connections.
var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWS upgrades the request to WebSocket and runs a read loop. Each
// invoke frame runs as its own batch; results are written back with the
// frame's id as they complete, so replies may arrive out of frame order.
// Batches still running when the client disconnects are canceled.
// Only GET is accepted for the WebSocket handshake.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log().Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	var (
		writeMu  sync.Mutex
		inflight sync.WaitGroup
	)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var in WSMessage
		if err := json.Unmarshal(raw, &in); err != nil {
			writeWSMessage(conn, &writeMu, &WSMessage{Type: FrameError, Error: "invalid JSON"})
			continue
		}
		if in.Type != FrameInvoke {
			writeWSMessage(conn, &writeMu, &WSMessage{Type: FrameError, ID: in.ID, Error: "unsupported message type: " + in.Type})
			continue
		}

		inflight.Add(1)
		go func() {
			defer inflight.Done()
			results := s.invoker.InvokeAll(ctx, in.Requests, domain.NewToolContext(in.Context))
			writeWSMessage(conn, &writeMu, &WSMessage{Type: FrameResults, ID: in.ID, Results: results})
		}()
	}
	cancel()
	inflight.Wait()
}

func writeWSMessage(conn *websocket.Conn, mu *sync.Mutex, msg *WSMessage) {
	data, err := jsonMarshal(msg)
	if err != nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	_ = conn.WriteMessage(websocket.TextMessage, data)
}
