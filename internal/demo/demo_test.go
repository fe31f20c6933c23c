package demo

import (
	"context"
	"errors"
	"testing"

	"toolbroker/internal/domain"
	"toolbroker/internal/tooling"
)

func TestRegister_ShouldAddAllExampleTools(t *testing.T) {
	reg := tooling.NewToolRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	for _, name := range []string{WeatherToolName, CalculatorToolName, SessionToolName} {
		if !reg.Has(name) {
			t.Errorf("expected %q to be registered", name)
		}
	}
	if err := Register(reg); !errors.Is(err, tooling.ErrDuplicateTool) {
		t.Errorf("second Register should fail with ErrDuplicateTool, got %v", err)
	}
}

// =============================================================================
// CurrentWeather
// =============================================================================

func TestCurrentWeather_ShouldReturnMockTemperaturePerCity(t *testing.T) {
	cases := map[string]float64{
		"San Francisco": 15.0,
		"Tokyo":         10.0,
		"Paris":         12.0,
		"  paris ":      12.0,
		"Reykjavik":     defaultTemperature,
	}
	for city, want := range cases {
		resp, err := CurrentWeather(context.Background(), WeatherRequest{Location: city})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", city, err)
		}
		if resp.Temperature != want || resp.Unit != "C" {
			t.Errorf("%s: want %.1fC, got %.1f%s", city, want, resp.Temperature, resp.Unit)
		}
		if resp.Location != city {
			t.Errorf("%s: location not echoed, got %q", city, resp.Location)
		}
	}
}

func TestCurrentWeather_WhenFahrenheit_ShouldConvert(t *testing.T) {
	resp, err := CurrentWeather(context.Background(), WeatherRequest{Location: "Tokyo", Unit: "F"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Temperature != 50.0 || resp.Unit != "F" {
		t.Errorf("want 50F, got %.1f%s", resp.Temperature, resp.Unit)
	}
}

// =============================================================================
// Calculator
// =============================================================================

func TestCalculate_ShouldHandleAllOperations(t *testing.T) {
	cases := []struct {
		op   string
		want float64
	}{
		{"add", 8}, {"subtract", 4}, {"multiply", 12}, {"divide", 3},
	}
	for _, tc := range cases {
		out, err := Calculate(context.Background(), CalculatorInput{Operation: tc.op, A: 6, B: 2})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.op, err)
		}
		if out.Result != tc.want || out.Operation != tc.op {
			t.Errorf("%s: want %v, got %+v", tc.op, tc.want, out)
		}
	}
}

func TestCalculate_WhenDivideByZero_ShouldReturnDomainError(t *testing.T) {
	_, err := Calculate(context.Background(), CalculatorInput{Operation: "divide", A: 1, B: 0})
	if !errors.Is(err, ErrDivisionByZero) {
		t.Errorf("want ErrDivisionByZero, got %v", err)
	}
}

func TestCalculate_WhenUnknownOperation_ShouldReturnError(t *testing.T) {
	if _, err := calculate(CalculatorInput{Operation: "modulo"}); err == nil {
		t.Error("expected error for unknown operation")
	}
}

// =============================================================================
// SessionInfo
// =============================================================================

func TestSessionInfo_ShouldReadSessionFromToolContext(t *testing.T) {
	tc := domain.NewToolContext(map[string]any{SessionKey: "123", "tenant": "acme"})
	resp, err := SessionInfo(context.Background(), SessionRequest{}, tc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.SessionID != "123" {
		t.Errorf("want sessionId 123, got %q", resp.SessionID)
	}
	if len(resp.Keys) != 2 || resp.Keys[0] != SessionKey || resp.Keys[1] != "tenant" {
		t.Errorf("unexpected keys %v", resp.Keys)
	}
}

func TestSessionInfo_WhenContextEmpty_ShouldReportNoSession(t *testing.T) {
	resp, err := SessionInfo(context.Background(), SessionRequest{}, domain.ToolContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.SessionID != "" || len(resp.Keys) != 0 {
		t.Errorf("expected empty response, got %+v", resp)
	}
}
