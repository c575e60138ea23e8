package chat

import "time"

// Defaults applied when corresponding ModelConfig fields are unset.
const (
	DefaultMinQueryLength      = 64
	DefaultMaxContextLength    = 131072
	DefaultMaxGenerationLength = 1024
	defaultQueueWait           = 30 * time.Second
)

// ModelConfig encapsulates all tunables for Model construction.
type ModelConfig struct {
	MinQueryLength      int
	MaxContextLength    int
	MaxGenerationLength int
	// Admission control; MaxInflight <= 0 disables it.
	MaxInflight int
	MaxQueue    int
	QueueWait   time.Duration
	Publisher   EventPublisher
}

func (c ModelConfig) withDefaults() ModelConfig {
	if c.MinQueryLength <= 0 {
		c.MinQueryLength = DefaultMinQueryLength
	}
	if c.MaxContextLength <= 0 {
		c.MaxContextLength = DefaultMaxContextLength
	}
	if c.MaxGenerationLength <= 0 {
		c.MaxGenerationLength = DefaultMaxGenerationLength
	}
	if c.QueueWait <= 0 {
		c.QueueWait = defaultQueueWait
	}
	if c.Publisher == nil {
		c.Publisher = noopPublisher{}
	}
	return c
}
