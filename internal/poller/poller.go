package poller

import (
	"context"
	"sync"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// FetchFunc retrieves the current status projection for an order
type FetchFunc func(ctx context.Context, orderID string) (*models.StatusProjection, error)

// Config configures a StatusPoller
type Config struct {
	OrderID string
	// Interval between status fetches. Defaults to 5s.
	Interval time.Duration
	// SuccessDelay before OnSuccess fires after a terminal-success status.
	// Defaults to 2s.
	SuccessDelay time.Duration
	// FetchTimeout bounds a single status fetch so a hung request cannot
	// delay the next tick. Defaults to 3s.
	FetchTimeout time.Duration
	Fetch        FetchFunc
	// OnChange, if set, is invoked with the terminal-success status before
	// the success delay starts.
	OnChange func(models.PaymentStatus)
	// OnSuccess, if set, fires once after SuccessDelay; the storefront uses
	// it to navigate to the success view.
	OnSuccess func(orderID string)
	Logger    *zap.Logger
}

// StatusPoller repeatedly queries an order's payment status until a
// terminal-success state is reached or the poller is stopped. It exists to
// detect out-of-band updates made by the gateway's webhook.
type StatusPoller struct {
	cfg Config

	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// New creates a poller; Start decides whether it actually polls.
func New(cfg Config) *StatusPoller {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.SuccessDelay <= 0 {
		cfg.SuccessDelay = 2 * time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 3 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = util.GetLogger()
	}
	return &StatusPoller{
		cfg:    cfg,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start decides once, from the status observed at mount time:
//   - already approved: no fetch at all, only the delayed success callback;
//   - pending: poll on the configured interval;
//   - anything else: do nothing. Failure states are surfaced elsewhere.
//
// Start must be called at most once.
func (p *StatusPoller) Start(initial models.PaymentStatus) {
	switch initial {
	case models.PaymentStatusApproved:
		go func() {
			defer close(p.done)
			p.delayedSuccess()
		}()
	case models.PaymentStatusPending:
		go p.run()
	default:
		close(p.done)
	}
}

// Stop cancels the poller. It is safe to call multiple times and guarantees
// no further fetch occurs afterward.
func (p *StatusPoller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
}

// Done is closed when the poller has fully wound down
func (p *StatusPoller) Done() <-chan struct{} {
	return p.done
}

func (p *StatusPoller) run() {
	defer close(p.done)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			proj, err := p.fetch()
			if err != nil {
				// A missed tick is immaterial as long as polling resumes.
				p.cfg.Logger.Warn("Status fetch failed, will retry",
					zap.String("order_id", p.cfg.OrderID),
					zap.Error(err))
				continue
			}
			if proj.IsPaid {
				ticker.Stop()
				if p.cfg.OnChange != nil {
					p.cfg.OnChange(proj.PaymentStatus)
				}
				p.delayedSuccess()
				return
			}
		}
	}
}

func (p *StatusPoller) fetch() (*models.StatusProjection, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.FetchTimeout)
	defer cancel()
	return p.cfg.Fetch(ctx, p.cfg.OrderID)
}

// delayedSuccess fires OnSuccess after the configured delay unless the
// poller is stopped first.
func (p *StatusPoller) delayedSuccess() {
	timer := time.NewTimer(p.cfg.SuccessDelay)
	defer timer.Stop()

	select {
	case <-p.stopCh:
	case <-timer.C:
		if p.cfg.OnSuccess != nil {
			p.cfg.OnSuccess(p.cfg.OrderID)
		}
	}
}
