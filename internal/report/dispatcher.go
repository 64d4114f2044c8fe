package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Ken-helpme/pts-ranking-reporter/internal/core"
	"github.com/Ken-helpme/pts-ranking-reporter/internal/notifier"
)

// Sender delivers one message. notifier.Registry implements it.
type Sender interface {
	Send(ctx context.Context, msg notifier.Message) error
}

// Recorder counts delivered and failed messages.
type Recorder interface {
	RecordMessage(status string)
}

// Message statuses reported to the Recorder.
const (
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)

// Config holds the report settings.
type Config struct {
	MinVolume int64
	Location  *time.Location
}

// Result tallies one dispatch.
type Result struct {
	Attempted int
	Delivered int
	Failed    []string // codes whose message was not delivered
}

// OK reports whether every attempted message was delivered.
func (r Result) OK() bool {
	return r.Delivered == r.Attempted
}

// Err returns ErrDispatchPartial when some messages were not delivered.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return core.WrapError(core.ErrDispatchPartial,
		fmt.Errorf("%d of %d messages delivered", r.Delivered, r.Attempted))
}

// Dispatcher renders and sends report messages in rank order.
type Dispatcher struct {
	sender   Sender
	cfg      Config
	logger   *zap.Logger
	recorder Recorder
	now      func() time.Time
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(sender Sender, cfg Config, logger *zap.Logger, recorder Recorder) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Dispatcher{
		sender:   sender,
		cfg:      cfg,
		logger:   logger,
		recorder: recorder,
		now:      time.Now,
	}
}

// Dispatch sends one message per record. A failed message does not stop the
// remaining ones. images is keyed by code and may be nil.
func (d *Dispatcher) Dispatch(ctx context.Context, records []core.ReportRecord, images map[string][]byte) Result {
	var res Result
	header := Header(d.now().In(d.cfg.Location), d.cfg.MinVolume, len(records))

	for i, rec := range records {
		text := FormatRecord(rec)
		if i == 0 {
			text = header + "\n\n" + text
		}

		msg := notifier.Message{Text: text}
		if img, ok := images[rec.Signal.Code]; ok && len(img) > 0 {
			msg.Image = img
			msg.ImageName = rec.Signal.Code + ".png"
		}

		res.Attempted++
		if err := d.sender.Send(ctx, msg); err != nil {
			d.logger.Error("report message failed",
				zap.Int("rank", rec.Rank),
				zap.String("code", rec.Signal.Code),
				zap.Error(err),
			)
			res.Failed = append(res.Failed, rec.Signal.Code)
			d.record(StatusFailed)
			continue
		}
		res.Delivered++
		d.record(StatusDelivered)
	}

	d.logger.Info("report dispatched",
		zap.Int("attempted", res.Attempted),
		zap.Int("delivered", res.Delivered),
	)
	return res
}

// SendSummary sends the run statistics.
func (d *Dispatcher) SendSummary(ctx context.Context, stats core.RunStats) error {
	return d.send(ctx, FormatSummary(stats))
}

// SendError sends an upstream failure notice.
func (d *Dispatcher) SendError(ctx context.Context, msg string) error {
	return d.send(ctx, FormatError(msg, d.now().In(d.cfg.Location)))
}

func (d *Dispatcher) send(ctx context.Context, text string) error {
	if d.sender == nil {
		return core.WrapError(core.ErrNotifierFailed, errors.New("no sender"))
	}
	if err := d.sender.Send(ctx, notifier.Message{Text: text}); err != nil {
		d.record(StatusFailed)
		return err
	}
	d.record(StatusDelivered)
	return nil
}

func (d *Dispatcher) record(status string) {
	if d.recorder != nil {
		d.recorder.RecordMessage(status)
	}
}
