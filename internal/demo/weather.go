package demo

import (
	"context"
	"strings"

	"toolbroker/internal/tooling"
)

// WeatherToolName is the name the model uses to request the current weather.
const WeatherToolName = "CurrentWeather"

// WeatherRequest is the argument object of CurrentWeather.
type WeatherRequest struct {
	Location string `json:"location" jsonschema:"minLength=1" jsonschema_description:"City name such as San Francisco"`
	Unit     string `json:"unit,omitempty" jsonschema:"enum=C,enum=F" jsonschema_description:"Temperature unit, C unless set"`
}

// WeatherResponse is what CurrentWeather returns to the model.
type WeatherResponse struct {
	Location    string  `json:"location"`
	Temperature float64 `json:"temperature"`
	Unit        string  `json:"unit"`
}

// mockTemperatures are Celsius readings keyed by lower-cased city.
var mockTemperatures = map[string]float64{
	"san francisco": 15.0,
	"tokyo":         10.0,
	"paris":         12.0,
}

const defaultTemperature = 20.0

// CurrentWeather returns the mock temperature for req.Location.
func CurrentWeather(_ context.Context, req WeatherRequest) (WeatherResponse, error) {
	celsius, ok := mockTemperatures[strings.ToLower(strings.TrimSpace(req.Location))]
	if !ok {
		celsius = defaultTemperature
	}
	resp := WeatherResponse{Location: req.Location, Temperature: celsius, Unit: "C"}
	if req.Unit == "F" {
		resp.Temperature = celsius*9/5 + 32
		resp.Unit = "F"
	}
	return resp, nil
}

// NewWeatherTool builds the CurrentWeather tool.
func NewWeatherTool() (tooling.Tool, error) {
	return tooling.NewFunc(WeatherToolName, "Get the current weather in a given location", CurrentWeather)
}
