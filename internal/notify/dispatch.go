package notify

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/hollowaydev/fieldops/internal/model"
	"github.com/hollowaydev/fieldops/internal/store"
	"github.com/hollowaydev/fieldops/internal/websocket"
)

// defaultSendLimit bounds concurrent deliveries per dispatch call so a large
// broadcast does not hammer the push service past its rate limits.
const defaultSendLimit = 8

// Dispatcher fans one notification out to a target set of registrations and
// classifies every delivery outcome. Delivery is best-effort: individual
// endpoint failures never fail the dispatch, and a missing provider degrades
// to a zero-effect report.
type Dispatcher struct {
	tokens   *store.TokenStore
	provider Provider
	hub      *websocket.Hub
	logger   *slog.Logger
	limit    int
}

// NewDispatcher wires a dispatcher. provider may be nil when push delivery is
// not configured; hub may be nil when no telemetry feed is wanted.
func NewDispatcher(tokens *store.TokenStore, provider Provider, hub *websocket.Hub, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		tokens:   tokens,
		provider: provider,
		hub:      hub,
		logger:   logger,
		limit:    defaultSendLimit,
	}
}

// Dispatch resolves the target set (explicit owners, or every registration
// when userIDs is empty), attempts exactly one delivery per registration with
// bounded concurrency, prunes registrations the provider reports as
// permanently invalid, and returns the aggregate report. The returned error is
// non-nil only for store failures; delivery failures live in the report.
func (d *Dispatcher) Dispatch(ctx context.Context, userIDs []int64, n Notification) (Report, error) {
	if d.provider == nil {
		d.logger.Warn("dispatch skipped: push provider not configured")
		return Report{Message: "push provider not configured, nothing sent"}, nil
	}

	var regs []model.DeviceTokenWithOwner
	var err error
	if len(userIDs) > 0 {
		regs, err = d.tokens.ListByOwners(userIDs)
	} else {
		regs, err = d.tokens.ListAll()
	}
	if err != nil {
		return Report{}, err
	}

	if len(regs) == 0 {
		return Report{Message: "no recipients with registered devices"}, nil
	}

	var t tally
	var g errgroup.Group
	g.SetLimit(d.limit)

	for _, reg := range regs {
		g.Go(func() error {
			// Cancelled before this endpoint was attempted: the report
			// must not count it either way.
			if ctx.Err() != nil {
				return nil
			}
			d.attempt(ctx, reg, n, &t)
			return nil
		})
	}
	g.Wait()

	report := t.report()
	if d.hub != nil {
		d.hub.Broadcast(websocket.Event{
			Type:   websocket.EventDispatchComplete,
			Detail: report.Message,
		})
	}
	d.logger.Info("dispatch complete",
		"recipients", len(regs),
		"delivered", report.SuccessCount,
		"failed", report.FailureCount,
		"removed", report.RemovedCount,
	)
	return report, nil
}

// attempt performs the single delivery for one registration and records the
// classified outcome.
func (d *Dispatcher) attempt(ctx context.Context, reg model.DeviceTokenWithOwner, n Notification, t *tally) {
	err := d.provider.Send(ctx, reg.Token, n)

	outcome := OutcomeDelivered
	detail := ""
	switch {
	case err == nil:
		t.record(OutcomeDelivered)
	case errors.Is(err, ErrInvalidEndpoint):
		outcome = OutcomeFailed
		detail = err.Error()
		t.record(OutcomeFailed)
		if delErr := d.tokens.DeleteByID(reg.ID); delErr != nil {
			d.logger.Error("prune stale registration",
				"registration_id", reg.ID, "error", delErr)
		} else {
			outcome = OutcomeRemoved
			t.record(OutcomeRemoved)
		}
	default:
		outcome = OutcomeFailed
		detail = err.Error()
		t.record(OutcomeFailed)
	}

	d.logger.Info("dispatch attempt",
		"registration_id", reg.ID,
		"user_id", reg.UserID,
		"owner", reg.OwnerEmail,
		"outcome", string(outcome),
		"error", detail,
	)
	if d.hub != nil {
		d.hub.Broadcast(websocket.Event{
			Type:           websocket.EventDispatchAttempt,
			RegistrationID: reg.ID,
			OwnerID:        reg.UserID,
			OwnerEmail:     reg.OwnerEmail,
			Outcome:        string(outcome),
			Detail:         detail,
		})
	}
}
