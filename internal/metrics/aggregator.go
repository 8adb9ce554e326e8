// Package metrics folds inbound agent-response events into the owning
// campaign's aggregate counters and advances the enrollment state machine on
// first response.
package metrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/smartoutreach/hub/internal/model"
	"github.com/smartoutreach/hub/internal/phone"
	"github.com/smartoutreach/hub/internal/pkg/logger"
	"github.com/smartoutreach/hub/internal/store"
)

// ResponseEvent is one classified inbound response.
type ResponseEvent struct {
	CampaignID    string
	PhoneNumber   string
	Sentiment     model.Sentiment
	Handoff       bool
	HandoffReason string

	// EventID is the external message id when the producer supplies one;
	// it is the dedup key. Events without an id cannot be deduplicated.
	EventID string
}

// Aggregator applies response events. Counter writes for one event are
// coalesced into a single additive campaign update.
type Aggregator struct {
	campaigns   store.CampaignStore
	enrollments store.EnrollmentStore
	dedup       Deduper
}

// New creates an aggregator. dedup may be nil, in which case duplicate
// deliveries of the same event double-count (the queue is at-least-once).
func New(campaigns store.CampaignStore, enrollments store.EnrollmentStore, dedup Deduper) *Aggregator {
	return &Aggregator{campaigns: campaigns, enrollments: enrollments, dedup: dedup}
}

// ApplyResponse applies one response event's counter deltas. Missing
// enrollments produce a warning and a no-op, never an error: a response must
// be recordable even when its campaign linkage is gone.
//
// A response that lands while the enrollment is still pending or processing
// (delivery status not yet propagated) bumps only the unconditional
// sentiment counters. That window is a real race between delivery-status
// propagation and inbound responses and is kept as designed behavior.
func (a *Aggregator) ApplyResponse(ctx context.Context, evt ResponseEvent) error {
	if evt.CampaignID == "" {
		logger.Warn("response event without campaign id", "phone_number", phone.Mask(evt.PhoneNumber))
		return nil
	}

	if a.dedup != nil && evt.EventID != "" {
		first, err := a.dedup.FirstSeen(ctx, evt.EventID)
		if err != nil {
			// Dedup is best-effort; losing it degrades to at-least-once.
			logger.Warn("response dedup check failed", "event_id", evt.EventID, "error", err.Error())
		} else if !first {
			logger.Info("duplicate response event skipped", "event_id", evt.EventID, "campaign_id", evt.CampaignID)
			return nil
		}
	}

	enrollment, err := a.enrollments.Get(ctx, evt.CampaignID, evt.PhoneNumber)
	if err != nil {
		if errors.Is(err, model.ErrEnrollmentNotFound) {
			logger.Warn("no enrollment for response event",
				"campaign_id", evt.CampaignID,
				"phone_number", phone.Mask(evt.PhoneNumber))
			return nil
		}
		return fmt.Errorf("loading enrollment: %w", err)
	}

	sentiment := evt.Sentiment
	if !sentiment.Valid() {
		sentiment = model.SentimentNeutral
	}

	var delta model.MetricsDelta
	delta.AddResponse(sentiment)

	if enrollment.Status == model.EnrollmentSent {
		// First inbound response for this contact.
		delta.AddFirstResponse(sentiment)
		if err := a.enrollments.UpdateStatus(ctx, evt.CampaignID, evt.PhoneNumber, model.EnrollmentProcessed); err != nil {
			logger.Error("marking enrollment processed failed",
				"campaign_id", evt.CampaignID,
				"phone_number", phone.Mask(evt.PhoneNumber),
				"error", err.Error())
		}
	}

	if evt.Handoff && (enrollment.Status == model.EnrollmentSent || enrollment.Status == model.EnrollmentProcessed) {
		delta.AddHandoff(sentiment)
	}

	if err := a.campaigns.AddMetrics(ctx, evt.CampaignID, delta); err != nil {
		return fmt.Errorf("applying campaign metrics: %w", err)
	}
	return nil
}
