package factory

import (
	"fmt"
	"io"
	"sort"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/config"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/notifier"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/notifier/console"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/notifier/email"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/notifier/line"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/notifier/telegram"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/notifier/webhook"
)

// New creates an uninitialized notifier by channel name.
func New(name string) (notifier.Notifier, error) {
	switch name {
	case "line":
		return line.New(""), nil
	case "telegram":
		return telegram.New("", ""), nil
	case "webhook":
		return webhook.New("", nil), nil
	case "email":
		return email.New("", 0, "", "", "", nil), nil
	case "console":
		return console.New(nil), nil
	default:
		return nil, fmt.Errorf("unknown notifier: %s", name)
	}
}

// Build initializes every enabled channel and registers it. The map key is
// the channel name.
func Build(cfgs map[string]config.NotifierConfig) (*notifier.Registry, error) {
	names := make([]string, 0, len(cfgs))
	for name := range cfgs {
		names = append(names, name)
	}
	sort.Strings(names)

	reg := notifier.NewRegistry()
	for _, name := range names {
		cfg := cfgs[name]
		if !cfg.Enabled {
			continue
		}
		n, err := New(name)
		if err != nil {
			return nil, err
		}
		if err := n.Init(notifier.Config{Type: name, Params: cfg.Params}); err != nil {
			return nil, err
		}
		if err := reg.Register(n); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// DryRun returns a registry holding only a console notifier on out.
func DryRun(out io.Writer) *notifier.Registry {
	reg := notifier.NewRegistry()
	_ = reg.Register(console.New(out))
	return reg
}
