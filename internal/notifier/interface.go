package notifier

import (
	"context"
)

// Config holds notifier configuration
type Config struct {
	Type   string         `mapstructure:"type"`
	Params map[string]any `mapstructure:"params"`
}

// Message is one report message. Image is an optional PNG attachment.
type Message struct {
	Text      string
	Image     []byte
	ImageName string
}

// Notifier defines the interface for report delivery channels
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init initializes the notifier with configuration
	Init(cfg Config) error

	// Send delivers one message
	Send(ctx context.Context, msg Message) error

	// MaxLength is the longest text the channel accepts, 0 for no limit
	MaxLength() int
}
