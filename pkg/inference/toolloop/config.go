package toolloop

import (
	"time"
)

// LoopConfig bounds a single episode.
type LoopConfig struct {
	// MaxSteps caps the number of planner calls. "plan tool A, observe, plan
	// tool B, observe, final" takes three.
	MaxSteps int `json:"max_steps" mapstructure:"max-steps"`
	// Timeout is the wall clock ceiling of the whole episode. Zero disables it.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		MaxSteps: 4,
		Timeout:  2 * time.Minute,
	}
}

func (c LoopConfig) WithMaxSteps(maxSteps int) LoopConfig {
	c.MaxSteps = maxSteps
	return c
}

func (c LoopConfig) WithTimeout(timeout time.Duration) LoopConfig {
	c.Timeout = timeout
	return c
}
