package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ogulcanaydogan/usagewatch/pkg/alerts"
	"github.com/ogulcanaydogan/usagewatch/pkg/auth"
	"github.com/ogulcanaydogan/usagewatch/pkg/model"
	"github.com/ogulcanaydogan/usagewatch/pkg/providers"
	"github.com/ogulcanaydogan/usagewatch/pkg/storage"
)

// CredentialSource yields credentials and the source that supplied them.
type CredentialSource interface {
	Load(ctx context.Context) (*auth.Credentials, auth.Source, error)
}

// TokenRefresher exchanges a refresh token for fresh credentials.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*auth.Credentials, error)
}

// Observer receives run metrics. *metrics.Recorder implements it.
type Observer interface {
	ObserveReading(reading model.UsageReading)
	ObserveEvents(events []model.Event)
	ObserveDeliveryError(notifier string)
	ObserveHistorySize(n int)
	ObserveSuccess(finished time.Time, took time.Duration)
}

// PollerConfig wires the collaborators of a Poller.
type PollerConfig struct {
	Credentials CredentialSource
	Refresher   TokenRefresher
	Usage       providers.UsageSource
	Store       storage.Storage
	Renderer    *alerts.Renderer
	Notifiers   []alerts.Notifier
	Alerts      model.AlertConfig

	// PersistRefreshed writes refreshed credentials back to their source
	// when the source supports it.
	PersistRefreshed bool

	Observer Observer
	Logger   *slog.Logger
	Now      func() time.Time
}

// RunResult summarizes a successful run.
type RunResult struct {
	Reading   model.UsageReading
	Snapshot  model.Snapshot
	Events    []model.Event
	Messages  []alerts.Message
	State     model.State
	Delivered int
	Failed    int
}

// Poller performs one poll: fetch usage, record history, evaluate alerts,
// notify and persist state.
type Poller struct {
	cfg     PollerConfig
	history *HistoryLog
	logger  *slog.Logger
	now     func() time.Time
}

// NewPoller creates a poller. Logger, Now and Renderer default to
// slog.Default, time.Now and a renderer without quips.
func NewPoller(cfg PollerConfig) *Poller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	if cfg.Renderer == nil {
		cfg.Renderer = alerts.NewRenderer(nil, alerts.WithClock(now))
	}
	history := NewHistoryLog(cfg.Store)
	history.now = now

	return &Poller{
		cfg:     cfg,
		history: history,
		logger:  logger,
		now:     now,
	}
}

// Run executes the poll. Errors wrap one of ErrCredentialsMissing, ErrAuth,
// ErrFetch or ErrPersistence. Delivery failures never fail the run.
func (p *Poller) Run(ctx context.Context) (*RunResult, error) {
	started := p.now()

	creds, err := p.credentials(ctx)
	if err != nil {
		return nil, err
	}

	reading, err := p.cfg.Usage.FetchUsage(ctx, creds.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	p.logger.Info("usage fetched",
		"provider", p.cfg.Usage.Name(),
		"five_hour", reading.Utilization(model.WindowFiveHour),
		"seven_day", reading.Utilization(model.WindowSevenDay),
	)
	if p.cfg.Observer != nil {
		p.cfg.Observer.ObserveReading(reading)
	}

	snapshot, err := p.history.Append(ctx, reading)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	p.logger.Debug("snapshot recorded", "timestamp", snapshot.Timestamp)

	state, err := p.cfg.Store.LoadState(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	events, next := Evaluate(reading, *state, p.cfg.Alerts, p.now())
	for _, ev := range events {
		p.logger.Info("alert decided", "event", ev.String(), "utilization", reading.ShortWindow().Utilization)
	}
	if p.cfg.Observer != nil {
		p.cfg.Observer.ObserveEvents(events)
	}

	result := &RunResult{
		Reading:  reading,
		Snapshot: snapshot,
		Events:   events,
		State:    next,
	}
	p.dispatch(ctx, reading, result)

	if err := p.cfg.Store.SaveState(ctx, &next); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if p.cfg.Observer != nil {
		p.cfg.Observer.ObserveHistorySize(p.history.Len())
		finished := p.now()
		p.cfg.Observer.ObserveSuccess(finished, finished.Sub(started))
	}
	return result, nil
}

// credentials acquires credentials and refreshes them when close to expiry.
func (p *Poller) credentials(ctx context.Context) (*auth.Credentials, error) {
	creds, src, err := p.cfg.Credentials.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCredentialsMissing, err)
	}
	p.logger.Debug("credentials loaded", "source", src.Name())

	if !creds.Expired(p.now()) || !creds.CanRefresh() {
		return creds, nil
	}

	p.logger.Info("access token expired, refreshing", "source", src.Name())
	refreshed, err := p.cfg.Refresher.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuth, err)
	}

	if saver, ok := src.(auth.Saver); ok && p.cfg.PersistRefreshed {
		if err := saver.Save(ctx, refreshed); err != nil {
			p.logger.Warn("save refreshed credentials", "source", src.Name(), "error", err)
		} else {
			p.logger.Info("refreshed credentials saved", "source", src.Name())
		}
	}
	return refreshed, nil
}

// dispatch renders and sends every event. Failures are logged and counted.
func (p *Poller) dispatch(ctx context.Context, reading model.UsageReading, result *RunResult) {
	for _, ev := range result.Events {
		msg := p.cfg.Renderer.Render(ev, reading)
		result.Messages = append(result.Messages, msg)

		if !p.cfg.Alerts.NotificationsEnabled {
			p.logger.Info("notifications disabled, not sending", "event", ev.String())
			continue
		}

		for _, n := range p.cfg.Notifiers {
			if err := n.Send(ctx, msg); err != nil {
				result.Failed++
				p.logger.Error("send notification failed",
					"notifier", n.Name(),
					"event", ev.String(),
					"error", fmt.Errorf("%w: %w", ErrDelivery, err),
				)
				if p.cfg.Observer != nil {
					p.cfg.Observer.ObserveDeliveryError(n.Name())
				}
				continue
			}
			result.Delivered++
		}
	}
}
