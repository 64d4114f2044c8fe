package notifier

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/core"
)

// Registry manages notifier instances and fans messages out to all of them
type Registry struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
}

// NewRegistry creates a new notifier registry
func NewRegistry() *Registry {
	return &Registry{
		notifiers: make(map[string]Notifier),
	}
}

// Register adds a notifier to the registry
func (r *Registry) Register(n Notifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := n.Name()
	if _, exists := r.notifiers[name]; exists {
		return fmt.Errorf("notifier %s already registered", name)
	}

	r.notifiers[name] = n
	return nil
}

// Get retrieves a notifier by name
func (r *Registry) Get(name string) (Notifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, exists := r.notifiers[name]
	if !exists {
		return nil, fmt.Errorf("notifier %s not found", name)
	}
	return n, nil
}

// GetAll returns all registered notifiers ordered by name
func (r *Registry) GetAll() []Notifier {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Notifier, 0, len(r.notifiers))
	for _, n := range r.notifiers {
		result = append(result, n)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Len returns the number of registered notifiers
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.notifiers)
}

// Send delivers msg to every registered notifier. Text longer than a
// channel's MaxLength is sent in line-aligned chunks with the image on the
// first chunk. Every channel is attempted; the message counts as delivered
// only when all of them succeed.
func (r *Registry) Send(ctx context.Context, msg Message) error {
	notifiers := r.GetAll()
	if len(notifiers) == 0 {
		return core.WrapError(core.ErrNotifierFailed, errors.New("no notifiers registered"))
	}

	var errs []error
	for _, n := range notifiers {
		if err := sendChunked(ctx, n, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	if len(errs) > 0 {
		return core.WrapError(core.ErrNotifierFailed, errors.Join(errs...))
	}
	return nil
}

func sendChunked(ctx context.Context, n Notifier, msg Message) error {
	for i, text := range Chunk(msg.Text, n.MaxLength()) {
		part := Message{Text: text}
		if i == 0 {
			part.Image = msg.Image
			part.ImageName = msg.ImageName
		}
		if err := n.Send(ctx, part); err != nil {
			return err
		}
	}
	return nil
}
