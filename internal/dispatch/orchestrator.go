// Package dispatch expands a campaign into per-contact send jobs and
// enqueues them in rate-limited batches. Failures are isolated at the batch
// level: one bad batch never blocks the rest of a large campaign.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/smartoutreach/hub/internal/config"
	"github.com/smartoutreach/hub/internal/model"
	"github.com/smartoutreach/hub/internal/personalize"
	"github.com/smartoutreach/hub/internal/phone"
	"github.com/smartoutreach/hub/internal/pkg/logger"
	"github.com/smartoutreach/hub/internal/queue"
	"github.com/smartoutreach/hub/internal/store"
)

// Mode classifies a dispatch run. Fixed once per run and applied uniformly.
type Mode string

const (
	ModeBroadcast    Mode = "broadcast"
	ModePersonalized Mode = "personalized"
)

// Result is the aggregate outcome of one dispatch run. Queued+Failed+Skipped
// equals the number of enrollments that resolved to customer records;
// Skipped counts contacts another run already claimed.
type Result struct {
	CampaignID    string `json:"campaign_id"`
	TotalContacts int    `json:"total_contacts"`
	Queued        int    `json:"queued"`
	Failed        int    `json:"failed"`
	Skipped       int    `json:"skipped"`
	BatchesOK     int    `json:"batches_ok"`
	BatchesFailed int    `json:"batches_failed"`
	Mode          Mode   `json:"mode"`
}

// Orchestrator drives the campaign-to-queue expansion.
type Orchestrator struct {
	stores    *store.Stores
	publisher queue.Publisher

	batchSize       int
	chunkSize       int
	interBatchDelay time.Duration
}

// New creates an orchestrator with the configured batching knobs.
func New(stores *store.Stores, publisher queue.Publisher, cfg config.DispatchConfig) *Orchestrator {
	return &Orchestrator{
		stores:          stores,
		publisher:       publisher,
		batchSize:       cfg.SendBatchSize,
		chunkSize:       cfg.LookupChunkSize,
		interBatchDelay: cfg.InterBatchDelay(),
	}
}

// Dispatch expands campaignID into queued send jobs. It fails only when the
// campaign is missing or has no enrolled contacts; everything downstream is
// per-batch isolated and reported through the Result counts.
func (o *Orchestrator) Dispatch(ctx context.Context, campaignID string) (*Result, error) {
	campaign, err := o.stores.Campaigns.Get(ctx, campaignID)
	if err != nil {
		if errors.Is(err, model.ErrCampaignNotFound) {
			return nil, model.ErrCampaignNotFound
		}
		return nil, fmt.Errorf("loading campaign: %w", err)
	}

	enrollments, err := o.stores.Enrollments.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("loading enrollments: %w", err)
	}
	if len(enrollments) == 0 {
		return nil, model.ErrNoEnrolledContacts
	}

	contacts := o.resolveCustomers(ctx, enrollments)

	mode := ModeBroadcast
	if personalize.HasPlaceholders(campaign.MessageTemplate) {
		mode = ModePersonalized
	}

	logger.Info("dispatch starting",
		"campaign_id", campaignID,
		"mode", string(mode),
		"enrolled", len(enrollments),
		"resolved", len(contacts))

	sending := model.CampaignSending
	if err := o.stores.Campaigns.Update(ctx, campaignID, store.CampaignUpdate{Status: &sending}); err != nil {
		return nil, fmt.Errorf("marking campaign sending: %w", err)
	}

	result := &Result{
		CampaignID:    campaignID,
		TotalContacts: len(contacts),
		Mode:          mode,
	}

	for start := 0; start < len(contacts); start += o.batchSize {
		end := start + o.batchSize
		if end > len(contacts) {
			end = len(contacts)
		}
		o.processBatch(ctx, campaign, contacts[start:end], mode, result)

		if end < len(contacts) && o.interBatchDelay > 0 {
			time.Sleep(o.interBatchDelay)
		}
	}

	now := time.Now().UTC()
	sent := model.CampaignSent
	if err := o.stores.Campaigns.Update(ctx, campaignID, store.CampaignUpdate{
		Status:    &sent,
		SentCount: &result.Queued,
		SentAt:    &now,
	}); err != nil {
		// The queue already holds the work; report but don't fail the run.
		logger.Error("finalizing campaign failed", "campaign_id", campaignID, "error", err.Error())
	}

	logger.Info("dispatch completed",
		"campaign_id", campaignID,
		"queued", result.Queued,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"batches_ok", result.BatchesOK,
		"batches_failed", result.BatchesFailed)

	return result, nil
}

// resolveCustomers loads full customer records for the enrolled phone
// numbers in bounded chunks, preserving enrollment order. Enrollments whose
// customer record is missing are dropped with a warning.
func (o *Orchestrator) resolveCustomers(ctx context.Context, enrollments []model.Enrollment) []*model.Customer {
	byPhone := make(map[string]*model.Customer, len(enrollments))
	var mu sync.Mutex

	for start := 0; start < len(enrollments); start += o.chunkSize {
		end := start + o.chunkSize
		if end > len(enrollments) {
			end = len(enrollments)
		}
		chunk := enrollments[start:end]

		var wg sync.WaitGroup
		for _, enrollment := range chunk {
			wg.Add(1)
			go func(phoneNumber string) {
				defer wg.Done()
				customer, err := o.stores.Customers.Get(ctx, phoneNumber)
				if err != nil {
					logger.Warn("dropping unresolvable contact", "phone_number", phone.Mask(phoneNumber), "error", err.Error())
					return
				}
				mu.Lock()
				byPhone[phoneNumber] = customer
				mu.Unlock()
			}(enrollment.PhoneNumber)
		}
		wg.Wait()
	}

	contacts := make([]*model.Customer, 0, len(byPhone))
	for _, enrollment := range enrollments {
		if customer, ok := byPhone[enrollment.PhoneNumber]; ok {
			contacts = append(contacts, customer)
		}
	}
	return contacts
}

// processBatch runs the per-batch pipeline: customer updates, enrollment
// claims, rendering, one batched enqueue. Individual update failures are
// logged and skipped; an enqueue failure fails the whole batch but never
// aborts its siblings.
func (o *Orchestrator) processBatch(ctx context.Context, campaign *model.Campaign, batch []*model.Customer, mode Mode, result *Result) {
	claimed := make([]bool, len(batch))

	var wg sync.WaitGroup
	for i, customer := range batch {
		wg.Add(1)
		go func(i int, customer *model.Customer) {
			defer wg.Done()

			automated := model.CustomerAutomated
			err := o.stores.Customers.Update(ctx, customer.PhoneNumber, store.CustomerUpdate{
				Status:               &automated,
				MostRecentCampaignID: &campaign.CampaignID,
			})
			if err != nil {
				logger.Warn("customer update failed", "phone_number", phone.Mask(customer.PhoneNumber), "error", err.Error())
			}

			err = o.stores.Enrollments.ClaimPending(ctx, campaign.CampaignID, customer.PhoneNumber)
			switch {
			case err == nil:
				claimed[i] = true
			case errors.Is(err, model.ErrConditionFailed):
				logger.Info("enrollment already claimed, skipping", "phone_number", phone.Mask(customer.PhoneNumber))
			default:
				logger.Warn("enrollment claim failed", "phone_number", phone.Mask(customer.PhoneNumber), "error", err.Error())
			}
		}(i, customer)
	}
	wg.Wait()

	messages := make([]queue.CampaignMessage, 0, len(batch))
	for i, customer := range batch {
		if !claimed[i] {
			result.Skipped++
			continue
		}

		text := campaign.MessageTemplate
		if mode == ModePersonalized {
			text = personalize.Render(campaign.MessageTemplate, customer.FirstName, customer.LastName)
		}
		messages = append(messages, queue.CampaignMessage{
			PhoneNumber: customer.PhoneNumber,
			Message:     text,
			CampaignID:  campaign.CampaignID,
			CustomerID:  customer.PhoneNumber,
			MessageType: queue.KindCampaign,
		})
	}
	if len(messages) == 0 {
		return
	}

	if err := o.publisher.SendCampaignBatch(ctx, messages); err != nil {
		logger.Error("batch enqueue failed", "campaign_id", campaign.CampaignID, "batch_size", len(messages), "error", err.Error())
		result.Failed += len(messages)
		result.BatchesFailed++
		return
	}

	result.Queued += len(messages)
	result.BatchesOK++
}
