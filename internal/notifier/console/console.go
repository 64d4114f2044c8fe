// Package console prints reports instead of sending them, for dry runs.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/notifier"
)

// Console implements the Notifier interface by writing to an io.Writer
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// New creates a console notifier. A nil writer means stdout.
func New(out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{out: out}
}

func (c *Console) Name() string { return "console" }

func (c *Console) MaxLength() int { return 0 }

func (c *Console) Init(cfg notifier.Config) error {
	if c.out == nil {
		c.out = os.Stdout
	}
	return nil
}

func (c *Console) Send(ctx context.Context, msg notifier.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := fmt.Fprintln(c.out, msg.Text); err != nil {
		return fmt.Errorf("console: %w", err)
	}
	if len(msg.Image) > 0 {
		fmt.Fprintf(c.out, "[image %s, %d bytes]\n", msg.ImageName, len(msg.Image))
	}
	_, err := fmt.Fprintln(c.out)
	return err
}
