package orchestrator

import (
	"fmt"
	"time"

	"github.com/viant/taskgate/model/task"
)

// Config represents orchestrator configuration
type Config struct {
	// PollingInterval is how often awaiting approvals are checked and queued tasks dispatched
	PollingInterval time.Duration `yaml:"pollingInterval"`

	// Workers bounds the number of tasks running at once
	Workers int `yaml:"workers"`

	// ExecutionTimeout bounds a single executor call
	ExecutionTimeout time.Duration `yaml:"executionTimeout"`

	// CompletedLimit caps the history of completed and rejected tasks
	CompletedLimit int `yaml:"completedLimit"`

	// DeadLetterLimit caps the dead-letter list; oldest entries are trimmed
	DeadLetterLimit int `yaml:"deadLetterLimit"`

	Weights task.Weights `yaml:"weights"`
}

// DefaultConfig returns the default orchestrator configuration
func DefaultConfig() Config {
	return Config{
		PollingInterval:  time.Second,
		Workers:          1,
		ExecutionTimeout: 5 * time.Minute,
		CompletedLimit:   500,
		DeadLetterLimit:  100,
		Weights:          task.DefaultWeights(),
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch {
	case c.PollingInterval <= 0:
		return fmt.Errorf("orchestrator: pollingInterval must be positive")
	case c.Workers <= 0:
		return fmt.Errorf("orchestrator: workers must be positive")
	case c.CompletedLimit <= 0:
		return fmt.Errorf("orchestrator: completedLimit must be positive")
	case c.DeadLetterLimit <= 0:
		return fmt.Errorf("orchestrator: deadLetterLimit must be positive")
	}
	return nil
}
