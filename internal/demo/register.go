// Package demo holds the example tools served by the toolbroker binary.
package demo

import "toolbroker/internal/tooling"

// Register adds every example tool to reg.
func Register(reg *tooling.ToolRegistry) error {
	builders := []func() (tooling.Tool, error){
		NewWeatherTool,
		NewCalculatorTool,
		NewSessionTool,
	}
	for _, build := range builders {
		tool, err := build()
		if err != nil {
			return err
		}
		if err := reg.Register(tool); err != nil {
			return err
		}
	}
	return nil
}
