package lending

import (
	"context"
	"time"

	"Gin_postgres_redis_asset_lending/models"
)

const (
	EventLoanCreated        = "loan.created"
	EventLoanStatusChanged  = "loan.status_changed"
	EventReservationExpired = "loan.reservation_expired"
	EventRecordArchived     = "record.archived"
	EventRecordRestored     = "record.restored"
)

// Event describes a committed lifecycle change.
type Event struct {
	Type    string    `json:"type"`
	Kind    string    `json:"kind"` // asset, loan or user
	ID      string    `json:"id"`
	Barcode string    `json:"barcode,omitempty"`
	AssetID string    `json:"assetId,omitempty"`
	From    string    `json:"from,omitempty"`
	To      string    `json:"to,omitempty"`
	At      time.Time `json:"at"`
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Event) error { return nil }

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type nopMetrics struct{}

func (nopMetrics) LoanTransition(_, _ models.LoanStatus) {}
func (nopMetrics) BarcodeGenerated(string)               {}
func (nopMetrics) ArchiveOperation(_, _, _ string)       {}
func (nopMetrics) SweepCompleted(_, _ int)               {}

type options struct {
	notifier      Notifier
	clock         Clock
	logger        Logger
	metrics       Metrics
	notifyTimeout time.Duration
	recordTimeout time.Duration
}

// Option configures a Service or an Archiver.
type Option func(*options)

func WithNotifier(n Notifier) Option {
	return func(o *options) {
		if n != nil {
			o.notifier = n
		}
	}
}

func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithRecordTimeout bounds a single expired-reservation cancellation. The
// cancellation is detached from the sweep context so shutdown never interrupts
// it halfway.
func WithRecordTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.recordTimeout = d
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		notifier:      nopNotifier{},
		clock:         SystemClock{},
		logger:        nopLogger{},
		metrics:       nopMetrics{},
		notifyTimeout: 2 * time.Second,
		recordTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o *options) now() time.Time { return o.clock.Now().UTC() }

func (o *options) notify(ctx context.Context, ev Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.notifyTimeout)
	defer cancel()
	if err := o.notifier.Notify(ctx, ev); err != nil {
		o.logger.Warn("notification failed", "type", ev.Type, "kind", ev.Kind, "id", ev.ID, "err", err)
	}
}
