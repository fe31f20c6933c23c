package gateway

import (
	"strings"
	"testing"

	"toolbroker/internal/broker"
	"toolbroker/internal/demo"
	"toolbroker/internal/domain"
	"toolbroker/internal/tooling"
)

// newTestServer returns a gateway over the example tools.
func newTestServer(t *testing.T, cfg *domain.GatewayConfig) *Server {
	t.Helper()
	reg := tooling.NewToolRegistry()
	if err := demo.Register(reg); err != nil {
		t.Fatalf("demo.Register: %v", err)
	}
	inv := broker.NewInvoker(reg)
	t.Cleanup(inv.Close)
	srv, err := NewServer(cfg, inv)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + "/ws"
}
