// Package api exposes the pipeline's enqueue and read operations over HTTP.
// It is a thin layer: validation and JSON plumbing here, semantics in
// dispatch/store/queue.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-chi/chi/v5"

	"github.com/smartoutreach/hub/internal/config"
	"github.com/smartoutreach/hub/internal/dispatch"
	"github.com/smartoutreach/hub/internal/model"
	"github.com/smartoutreach/hub/internal/phone"
	"github.com/smartoutreach/hub/internal/pkg/logger"
	"github.com/smartoutreach/hub/internal/queue"
	"github.com/smartoutreach/hub/internal/store"
)

// Handlers holds the API's collaborators.
type Handlers struct {
	stores       *store.Stores
	orchestrator *dispatch.Orchestrator
	publisher    queue.Publisher

	// health probe
	dynamoClient *dynamodb.Client
	tables       config.TablesConfig
}

// NewHandlers wires the API handlers.
func NewHandlers(stores *store.Stores, orchestrator *dispatch.Orchestrator, publisher queue.Publisher, dynamoClient *dynamodb.Client, tables config.TablesConfig) *Handlers {
	return &Handlers{
		stores:       stores,
		orchestrator: orchestrator,
		publisher:    publisher,
		dynamoClient: dynamoClient,
		tables:       tables,
	}
}

type createCampaignRequest struct {
	Name            string `json:"name"`
	MessageTemplate string `json:"message_template"`
	CampaignDetails string `json:"campaign_details,omitempty"`
}

// CreateCampaign registers a new draft campaign.
func (h *Handlers) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if strings.TrimSpace(req.MessageTemplate) == "" {
		writeError(w, http.StatusBadRequest, "message_template is required")
		return
	}

	campaign := &model.Campaign{
		Name:            req.Name,
		MessageTemplate: req.MessageTemplate,
		CampaignDetails: req.CampaignDetails,
		Status:          model.CampaignDraft,
	}
	if err := h.stores.Campaigns.Put(r.Context(), campaign); err != nil {
		logger.Error("creating campaign failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to create campaign")
		return
	}

	writeJSON(w, http.StatusCreated, campaign)
}

// GetCampaign returns a campaign with its aggregate counters.
func (h *Handlers) GetCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	campaign, err := h.stores.Campaigns.Get(r.Context(), campaignID)
	if err != nil {
		if errors.Is(err, model.ErrCampaignNotFound) {
			writeError(w, http.StatusNotFound, "campaign not found")
			return
		}
		logger.Error("loading campaign failed", "campaign_id", campaignID, "error", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to load campaign")
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

type enrollContactsRequest struct {
	Contacts []struct {
		FirstName   string `json:"first_name"`
		LastName    string `json:"last_name"`
		PhoneNumber string `json:"phone_number"`
	} `json:"contacts"`
}

type enrollContactsResponse struct {
	Enrolled int      `json:"enrolled"`
	Invalid  int      `json:"invalid"`
	Errors   []string `json:"errors,omitempty"`
}

// EnrollContacts creates customer records and pending enrollments for a
// campaign. Invalid phone numbers are reported, not fatal.
func (h *Handlers) EnrollContacts(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	campaign, err := h.stores.Campaigns.Get(r.Context(), campaignID)
	if err != nil {
		if errors.Is(err, model.ErrCampaignNotFound) {
			writeError(w, http.StatusNotFound, "campaign not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load campaign")
		return
	}

	var req enrollContactsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Contacts) == 0 {
		writeError(w, http.StatusBadRequest, "contacts are required")
		return
	}

	resp := enrollContactsResponse{}
	for _, contact := range req.Contacts {
		normalized, err := phone.Normalize(contact.PhoneNumber)
		if err != nil {
			resp.Invalid++
			resp.Errors = append(resp.Errors, "invalid phone number: "+phone.Mask(contact.PhoneNumber))
			continue
		}

		customer := &model.Customer{
			PhoneNumber: normalized,
			FirstName:   contact.FirstName,
			LastName:    contact.LastName,
			Status:      model.CustomerAutomated,
		}
		if err := h.stores.Customers.Put(r.Context(), customer); err != nil {
			resp.Errors = append(resp.Errors, "failed to save customer "+phone.Mask(normalized))
			continue
		}

		enrollment := &model.Enrollment{
			CampaignID:  campaignID,
			PhoneNumber: normalized,
			Status:      model.EnrollmentPending,
		}
		if err := h.stores.Enrollments.Put(r.Context(), enrollment); err != nil {
			resp.Errors = append(resp.Errors, "failed to enroll "+phone.Mask(normalized))
			continue
		}
		resp.Enrolled++
	}

	if resp.Enrolled > 0 {
		ready := model.CampaignReady
		// Totals accumulate across enrollment calls.
		total := campaign.TotalContacts + resp.Enrolled
		if err := h.stores.Campaigns.Update(r.Context(), campaignID, store.CampaignUpdate{
			Status:        &ready,
			TotalContacts: &total,
		}); err != nil {
			logger.Error("updating campaign contact count failed", "campaign_id", campaignID, "error", err.Error())
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// DispatchCampaign runs the dispatch orchestrator for a campaign.
func (h *Handlers) DispatchCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")

	result, err := h.orchestrator.Dispatch(r.Context(), campaignID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCampaignNotFound):
			writeError(w, http.StatusNotFound, "campaign not found")
		case errors.Is(err, model.ErrNoEnrolledContacts):
			writeError(w, http.StatusConflict, "no contacts enrolled in campaign")
		default:
			logger.Error("dispatch failed", "campaign_id", campaignID, "error", err.Error())
			writeError(w, http.StatusInternalServerError, "dispatch failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type manualMessageRequest struct {
	PhoneNumber string `json:"phone_number"`
	Message     string `json:"message"`
}

// SendManualMessage records and enqueues a one-off operator send. The
// customer must already exist; manual sends flip them to agent_responding.
func (h *Handlers) SendManualMessage(w http.ResponseWriter, r *http.Request) {
	var req manualMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	normalized, err := phone.Normalize(req.PhoneNumber)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid phone number format")
		return
	}
	text := strings.TrimSpace(req.Message)
	if text == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	if _, err := h.stores.Customers.Get(r.Context(), normalized); err != nil {
		if errors.Is(err, model.ErrCustomerNotFound) {
			writeError(w, http.StatusNotFound, "customer not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load customer")
		return
	}

	msg := &model.ChatMessage{
		PhoneNumber:  normalized,
		Message:      text,
		Direction:    model.DirectionOutbound,
		ResponseType: model.ResponseManual,
		Status:       model.DeliveryQueued,
	}
	if err := h.stores.Chat.Append(r.Context(), msg); err != nil {
		logger.Error("recording manual message failed", "phone_number", phone.Mask(normalized), "error", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to record message")
		return
	}

	if err := h.publisher.SendManual(r.Context(), queue.ManualMessage{
		PhoneNumber: normalized,
		Message:     text,
		MessageID:   msg.ID,
	}); err != nil {
		logger.Error("enqueueing manual message failed", "phone_number", phone.Mask(normalized), "error", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to enqueue message")
		return
	}

	agentResponding := model.CustomerAgentResponding
	if err := h.stores.Customers.Update(r.Context(), normalized, store.CustomerUpdate{Status: &agentResponding}); err != nil {
		logger.Error("updating customer status failed", "phone_number", phone.Mask(normalized), "error", err.Error())
	}

	writeJSON(w, http.StatusAccepted, msg)
}

// GetChatHistory returns the append-only chat log for one customer.
func (h *Handlers) GetChatHistory(w http.ResponseWriter, r *http.Request) {
	normalized, err := phone.Normalize(chi.URLParam(r, "phoneNumber"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid phone number format")
		return
	}

	messages, err := h.stores.Chat.ListByPhone(r.Context(), normalized)
	if err != nil {
		logger.Error("loading chat history failed", "phone_number", phone.Mask(normalized), "error", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to load chat history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// HealthCheck probes the backing tables.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if h.dynamoClient != nil {
		if err := store.CheckConnection(ctx, h.dynamoClient, h.tables); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
