package assignment

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	notifyQueueSize   = 1024
	notifySendTimeout = 10 * time.Second
)

// AssignmentNotice tells an assignee that tasks were generated for them. One
// notice is emitted per (series, assignee), not per instance.
type AssignmentNotice struct {
	CompanyID     int32
	AssigneeID    int32
	SeriesUID     string
	Title         string
	FirstDue      time.Time
	InstanceCount int
}

// Notifier delivers assignment notices. Delivery is best effort: the engine
// logs failures and moves on, it never retries or blocks a write path on the
// notifier.
type Notifier interface {
	NotifyAssignment(ctx context.Context, notice AssignmentNotice) error
}

// LogNotifier writes notices to the log. Default when no real transport is
// configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) NotifyAssignment(_ context.Context, notice AssignmentNotice) error {
	n.Logger.Info("assignment notice",
		slog.Int64("company_id", int64(notice.CompanyID)),
		slog.Int64("assignee_id", int64(notice.AssigneeID)),
		slog.String("series_uid", notice.SeriesUID),
		slog.String("title", notice.Title),
		slog.String("first_due", notice.FirstDue.Format(time.DateOnly)),
		slog.Int("instance_count", notice.InstanceCount))
	return nil
}

// dispatcher decouples notice delivery from the write paths: enqueue never
// blocks, a single worker drains the queue through a rate limiter. Notices
// are dropped with a warning when the queue is full.
type dispatcher struct {
	notifier Notifier
	limiter  *rate.Limiter
	logger   *slog.Logger
	queue    chan AssignmentNotice

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func newDispatcher(notifier Notifier, ratePerSec float64, logger *slog.Logger) *dispatcher {
	d := &dispatcher{
		notifier: notifier,
		limiter:  rate.NewLimiter(rate.Limit(ratePerSec), int(ratePerSec)+1),
		logger:   logger,
		queue:    make(chan AssignmentNotice, notifyQueueSize),
		done:     make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) enqueue(notice AssignmentNotice) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- notice:
	default:
		d.logger.Warn("notification queue full, dropping notice",
			slog.String("series_uid", notice.SeriesUID),
			slog.Int64("assignee_id", int64(notice.AssigneeID)))
	}
}

func (d *dispatcher) run() {
	defer close(d.done)
	for notice := range d.queue {
		if err := d.limiter.Wait(context.Background()); err != nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), notifySendTimeout)
		err := d.notifier.NotifyAssignment(ctx, notice)
		cancel()
		if err != nil {
			d.logger.Warn("failed to deliver assignment notice",
				slog.String("series_uid", notice.SeriesUID),
				slog.Int64("assignee_id", int64(notice.AssigneeID)),
				slog.String("error", err.Error()))
		}
	}
}

// close drains the queue and waits for in-flight delivery to finish.
func (d *dispatcher) close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	<-d.done
}
