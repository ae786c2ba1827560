package tools

import "time"

// ToolConfig specifies how tools are exposed and executed during an episode
type ToolConfig struct {
	ExecutionTimeout time.Duration `json:"execution_timeout" mapstructure:"execution-timeout"`
	// AllowedTools restricts the tools offered to the planner. nil allows all.
	AllowedTools []string `json:"allowed_tools" mapstructure:"allowed-tools"`
}

// DefaultToolConfig returns a sensible default configuration
func DefaultToolConfig() ToolConfig {
	return ToolConfig{
		ExecutionTimeout: 30 * time.Second,
		AllowedTools:     nil,
	}
}

func (tc ToolConfig) WithExecutionTimeout(timeout time.Duration) ToolConfig {
	tc.ExecutionTimeout = timeout
	return tc
}

func (tc ToolConfig) WithAllowedTools(toolNames []string) ToolConfig {
	tc.AllowedTools = toolNames
	return tc
}

// IsToolAllowed checks if a tool is allowed based on the configuration
func (tc *ToolConfig) IsToolAllowed(toolName string) bool {
	if tc.AllowedTools == nil {
		return true
	}

	for _, allowed := range tc.AllowedTools {
		if allowed == toolName {
			return true
		}
	}

	return false
}

// FilterTools returns only the tools that are allowed by this configuration
func (tc *ToolConfig) FilterTools(specs []ToolSpec) []ToolSpec {
	if tc.AllowedTools == nil {
		return specs
	}

	filtered := make([]ToolSpec, 0, len(specs))
	for _, spec := range specs {
		if tc.IsToolAllowed(spec.Name) {
			filtered = append(filtered, spec)
		}
	}

	return filtered
}
