package demo

import (
	"context"

	"toolbroker/internal/domain"
	"toolbroker/internal/tooling"
)

// SessionToolName is the name of the context-reading tool.
const SessionToolName = "SessionInfo"

// SessionKey is the ToolContext key holding the caller's session id.
const SessionKey = "sessionId"

// SessionRequest is empty: everything SessionInfo needs comes from the ToolContext.
type SessionRequest struct{}

// SessionResponse reports what the tool saw in its context.
type SessionResponse struct {
	SessionID string   `json:"sessionId,omitempty"`
	Keys      []string `json:"keys"`
}

// SessionInfo reports the session id and the context keys visible to it.
func SessionInfo(_ context.Context, _ SessionRequest, tc domain.ToolContext) (SessionResponse, error) {
	id, _ := tc.String(SessionKey)
	return SessionResponse{SessionID: id, Keys: tc.Keys()}, nil
}

// NewSessionTool builds the SessionInfo tool.
func NewSessionTool() (tooling.Tool, error) {
	return tooling.NewContextFunc(SessionToolName, "Describe the current conversation session", SessionInfo)
}
