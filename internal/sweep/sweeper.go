package sweep

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/renewhub/renewhub/internal/expiry"
	"github.com/renewhub/renewhub/internal/models"
	"github.com/renewhub/renewhub/internal/services"
	apperrors "github.com/renewhub/renewhub/pkg/errors"
	"github.com/renewhub/renewhub/pkg/logger"
	"github.com/renewhub/renewhub/pkg/metrics"
)

// defaultSchedule runs the sweep every day at 09:00 server time.
const defaultSchedule = "0 9 * * *"

// ErrSweepRunning is returned when a sweep is requested while one is already
// in flight. Runs never overlap.
var ErrSweepRunning = apperrors.New("SWEEP_RUNNING", "An expiry sweep is already running", http.StatusConflict)

// Summary reports what a single sweep run did.
type Summary struct {
	StartedAt       time.Time `json:"started_at"`
	Duration        string    `json:"duration"`
	ServicesChecked int       `json:"services_checked"`
	RemindersSent   int       `json:"reminders_sent"`
	Failures        int       `json:"failures"`
	SkippedServices int       `json:"skipped_services"`
}

// Sweeper walks the whole service inventory on a schedule, evaluates which
// reminder thresholds are due and hands them to the dispatcher.
type Sweeper struct {
	inventory  *services.InventoryService
	settings   *services.SettingsService
	dispatcher *Dispatcher

	cron     *cron.Cron
	schedule string
	now      func() time.Time
	log      *zap.Logger

	mu sync.Mutex
	wg sync.WaitGroup
}

// Option customises the Sweeper.
type Option func(*Sweeper)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Sweeper) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithNow overrides the clock used for threshold evaluation.
func WithNow(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSchedule overrides the cron specification for the daily sweep.
func WithSchedule(spec string) Option {
	return func(s *Sweeper) {
		if spec != "" {
			s.schedule = spec
		}
	}
}

// NewSweeper constructs a Sweeper with sensible defaults.
func NewSweeper(inventory *services.InventoryService, settings *services.SettingsService, dispatcher *Dispatcher, opts ...Option) (*Sweeper, error) {
	if inventory == nil {
		return nil, errors.New("sweeper: inventory service is required")
	}
	if settings == nil {
		return nil, errors.New("sweeper: settings service is required")
	}
	if dispatcher == nil {
		return nil, errors.New("sweeper: dispatcher is required")
	}

	s := &Sweeper{
		inventory:  inventory,
		settings:   settings,
		dispatcher: dispatcher,
		schedule:   defaultSchedule,
		now:        time.Now,
		log:        logger.WithModule("sweep"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.cron == nil {
		s.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return s, nil
}

// Start registers the sweep job with the cron scheduler and launches it.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.RunOnce(context.Background()); err != nil && !errors.Is(err, ErrSweepRunning) {
			s.log.Warn("scheduled sweep finished with errors", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("expiry sweep scheduled", zap.String("schedule", s.schedule))
	return nil
}

// Stop halts the scheduler. The returned context is done once every running
// sweep has finished, including background runs started by TriggerNow.
func (s *Sweeper) Stop() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer cancel()
		if s.cron != nil {
			<-s.cron.Stop().Done()
		}
		s.wg.Wait()
	}()
	return ctx
}

// TriggerNow starts a sweep in the background and returns immediately, so a
// request handler never blocks on email delivery. If a sweep is already in
// flight it returns ErrSweepRunning instead of queueing.
func (s *Sweeper) TriggerNow() error {
	if !s.mu.TryLock() {
		metrics.SweepRuns.WithLabelValues("skipped").Inc()
		return ErrSweepRunning
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.mu.Unlock()
		if _, err := s.runLocked(context.Background()); err != nil {
			s.log.Warn("triggered sweep finished with errors", zap.Error(err))
		}
	}()
	return nil
}

// RunOnce executes a full sweep immediately and waits for it to finish. Only
// one run may be in flight at a time; a second caller gets ErrSweepRunning
// instead of queueing.
//
// The settings row is read once at the start and used for the whole run, so a
// concurrent settings change never flips providers mid-sweep. A failure on one
// service is recorded and the sweep moves on to the next.
func (s *Sweeper) RunOnce(ctx context.Context) (*Summary, error) {
	if !s.mu.TryLock() {
		metrics.SweepRuns.WithLabelValues("skipped").Inc()
		return nil, ErrSweepRunning
	}
	defer s.mu.Unlock()

	return s.runLocked(ctx)
}

func (s *Sweeper) runLocked(ctx context.Context) (*Summary, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	started := s.now()
	summary := &Summary{StartedAt: started}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		metrics.SweepRuns.WithLabelValues("error").Inc()
		return nil, err
	}

	rows, err := s.inventory.ListAll(ctx)
	if err != nil {
		metrics.SweepRuns.WithLabelValues("error").Inc()
		return nil, err
	}
	summary.ServicesChecked = len(rows)
	metrics.ServicesTracked.Set(float64(len(rows)))

	var errs error
	for i := range rows {
		svc := &rows[i]

		if _, parseErr := expiry.ComputeStatus(svc.ExpiryDate, svc.StoredStatus, started); parseErr != nil {
			summary.SkippedServices++
			s.log.Warn("skipping service with unparseable expiry date",
				zap.String("service_id", svc.ID),
				zap.String("expiry_date", svc.ExpiryDate))
			continue
		}

		due := expiry.DueThresholds(svc, started)
		if len(due) == 0 {
			continue
		}

		if len(serviceRecipients(svc)) == 0 {
			summary.SkippedServices++
			s.log.Warn("skipping service with no reminder recipients",
				zap.String("service_id", svc.ID),
				zap.String("service_name", svc.Name))
			continue
		}

		for t := range due {
			threshold := due[t]
			deliveries, dispatchErr := s.dispatcher.Notify(ctx, svc, &threshold, models.NotificationKindAuto, *settings)
			if dispatchErr != nil {
				// Dispatch never ran (provider misconfigured, unusable
				// expiry), so the threshold stays unmarked for the next run.
				summary.Failures++
				errs = multierr.Append(errs, dispatchErr)
				continue
			}

			for _, delivery := range deliveries {
				if delivery.Sent {
					summary.RemindersSent++
				} else {
					summary.Failures++
				}
			}

			// An attempted threshold joins the notified-set whether or not
			// the sends succeeded. The sweep never retries a failed send;
			// the log records it and the manual reminder covers resends.
			if markErr := s.inventory.MarkNotified(ctx, svc.ID, []string{threshold.ID}); markErr != nil {
				errs = multierr.Append(errs, markErr)
			}
			svc.NotificationsSent = append(svc.NotificationsSent, threshold.ID)
		}
	}

	summary.Duration = s.now().Sub(started).String()

	result := "success"
	if errs != nil {
		result = "error"
	}
	metrics.SweepRuns.WithLabelValues(result).Inc()

	s.log.Info("expiry sweep finished",
		zap.Int("services_checked", summary.ServicesChecked),
		zap.Int("reminders_sent", summary.RemindersSent),
		zap.Int("failures", summary.Failures),
		zap.Int("skipped", summary.SkippedServices),
		zap.String("duration", summary.Duration))

	return summary, errs
}
