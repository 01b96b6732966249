package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/application/usecase"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/connection"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/draft"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/platform"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/domain/review"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/internal/dto"
	"github.com/Abenezer01/REVIEW-RISE-MONO-REPO-sub002/pkg/constants"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const (
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeValidation         = "VALIDATION_ERROR"
	CodeTokenRefreshFailed = "TOKEN_REFRESH_FAILED"
	CodeAdapter            = "ADAPTER_ERROR"
	CodeDraftFailed        = "DRAFT_GENERATION_FAILED"
	CodeSyncInProgress     = "SYNC_IN_PROGRESS"
	CodeInternal           = "INTERNAL_ERROR"
)

type ReplyService interface {
	SubmitManualReply(ctx context.Context, reviewID, content string, opts usecase.ManualReplyOptions) (*review.Review, error)
	RejectReply(ctx context.Context, reviewID string) (*review.Review, error)
	ApprovePending(ctx context.Context, reviewID, content string, userID *string) (*review.Review, error)
}

type SyncService interface {
	SyncLocation(ctx context.Context, locationID string) ([]usecase.SyncOutcome, error)
	SyncAll(ctx context.Context) (*usecase.SyncAllResult, error)
}

type SweepRunner interface {
	RunSweep(ctx context.Context) usecase.SweepResult
}

type ReviewHandler struct {
	replies    ReplyService
	syncs      SyncService
	sweeps     SweepRunner
	jobTimeout time.Duration
	// runJob starts detached background work; tests replace it to run inline.
	runJob func(func())
	logger *slog.Logger
}

func NewReviewHandler(replies ReplyService, syncs SyncService, sweeps SweepRunner, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		replies:    replies,
		syncs:      syncs,
		sweeps:     sweeps,
		jobTimeout: 30 * time.Minute,
		runJob:     func(f func()) { go f() },
		logger:     logger,
	}
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

func (h *ReviewHandler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/locations/{locationId}/sync", h.SyncLocation).Methods(http.MethodPost)

	api.HandleFunc("/reviews/{reviewId}/reply", h.SubmitReply).Methods(http.MethodPost)
	api.HandleFunc("/reviews/{reviewId}/reject", h.RejectReply).Methods(http.MethodPost)
	api.HandleFunc("/reviews/{reviewId}/approve", h.ApproveReply).Methods(http.MethodPost)

	jobs := api.PathPrefix("/jobs").Subrouter()
	jobs.HandleFunc("/auto-reply", h.TriggerAutoReply).Methods(http.MethodPost)
	jobs.HandleFunc("/sync", h.TriggerSyncAll).Methods(http.MethodPost)

	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
}

// SyncLocation syncs every active connection of a location
// @Summary Sync location reviews
// @Router /api/v1/locations/{locationId}/sync [post]
func (h *ReviewHandler) SyncLocation(w http.ResponseWriter, r *http.Request) {
	locationID := mux.Vars(r)["locationId"]

	outcomes, err := h.syncs.SyncLocation(r.Context(), locationID)
	if err != nil {
		h.logger.Error("Location sync failed", constants.LocationID, locationID, "error", err)
		h.writeError(w, err)
		return
	}
	h.writeSuccessResponse(w, http.StatusOK, outcomes)
}

// SubmitReply posts a manual reply to the platform
// @Summary Submit manual reply
// @Param body body dto.ManualReplyRequest true "Reply"
// @Router /api/v1/reviews/{reviewId}/reply [post]
func (h *ReviewHandler) SubmitReply(w http.ResponseWriter, r *http.Request) {
	reviewID := mux.Vars(r)["reviewId"]

	var request dto.ManualReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, CodeValidation, "invalid request body")
		return
	}

	opts := usecase.ManualReplyOptions{UserID: request.UserID}
	switch review.AuthorType(request.AuthorType) {
	case "", review.AuthorUser, review.AuthorAuto:
		opts.AuthorType = review.AuthorType(request.AuthorType)
	default:
		h.writeErrorResponse(w, http.StatusBadRequest, CodeValidation, fmt.Sprintf("unknown authorType %q", request.AuthorType))
		return
	}
	switch review.SourceType(request.SourceType) {
	case "", review.SourceManual, review.SourceAI:
		opts.SourceType = review.SourceType(request.SourceType)
	default:
		h.writeErrorResponse(w, http.StatusBadRequest, CodeValidation, fmt.Sprintf("unknown sourceType %q", request.SourceType))
		return
	}

	updated, err := h.replies.SubmitManualReply(r.Context(), reviewID, request.Comment, opts)
	if err != nil {
		h.logger.Error("Manual reply failed", constants.ReviewID, reviewID, "error", err)
		h.writeError(w, err)
		return
	}
	h.writeSuccessResponse(w, http.StatusOK, dto.FromReview(updated))
}

// RejectReply marks the review's reply as rejected
// @Router /api/v1/reviews/{reviewId}/reject [post]
func (h *ReviewHandler) RejectReply(w http.ResponseWriter, r *http.Request) {
	reviewID := mux.Vars(r)["reviewId"]

	updated, err := h.replies.RejectReply(r.Context(), reviewID)
	if err != nil {
		h.logger.Error("Reject reply failed", constants.ReviewID, reviewID, "error", err)
		h.writeError(w, err)
		return
	}
	h.writeSuccessResponse(w, http.StatusOK, dto.FromReview(updated))
}

// ApproveReply approves a reply held for manual approval. The next sweep
// posts it.
// @Param body body dto.ApproveReplyRequest false "Edited reply"
// @Router /api/v1/reviews/{reviewId}/approve [post]
func (h *ReviewHandler) ApproveReply(w http.ResponseWriter, r *http.Request) {
	reviewID := mux.Vars(r)["reviewId"]

	var request dto.ApproveReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil && !errors.Is(err, io.EOF) {
		h.writeErrorResponse(w, http.StatusBadRequest, CodeValidation, "invalid request body")
		return
	}

	updated, err := h.replies.ApprovePending(r.Context(), reviewID, request.Comment, request.UserID)
	if err != nil {
		h.logger.Error("Approve reply failed", constants.ReviewID, reviewID, "error", err)
		h.writeError(w, err)
		return
	}
	h.writeSuccessResponse(w, http.StatusOK, dto.FromReview(updated))
}

// TriggerAutoReply starts one auto-reply sweep and returns immediately
// @Success 202 {object} APIResponse
// @Router /api/v1/jobs/auto-reply [post]
func (h *ReviewHandler) TriggerAutoReply(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	h.logger.Info("Auto-reply sweep requested", "request_id", requestID, "remote_addr", r.RemoteAddr)

	h.runJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.jobTimeout)
		defer cancel()
		result := h.sweeps.RunSweep(ctx)
		h.logger.Info("Auto-reply sweep finished",
			"request_id", requestID,
			"evaluated", result.Evaluated,
			"posted", result.Posted,
			"errors", result.Errors)
	})

	h.writeSuccessResponse(w, http.StatusAccepted, dto.JobAccepted{Accepted: true, RequestID: requestID})
}

// TriggerSyncAll starts a sync of every connected location
// @Success 202 {object} APIResponse
// @Router /api/v1/jobs/sync [post]
func (h *ReviewHandler) TriggerSyncAll(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	h.logger.Info("Full sync requested", "request_id", requestID, "remote_addr", r.RemoteAddr)

	h.runJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.jobTimeout)
		defer cancel()
		if _, err := h.syncs.SyncAll(ctx); err != nil {
			h.logger.Error("Full sync failed", "request_id", requestID, "error", err)
		}
	})

	h.writeSuccessResponse(w, http.StatusAccepted, dto.JobAccepted{Accepted: true, RequestID: requestID})
}

func (h *ReviewHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	health := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "review-reply-service",
	}
	h.writeSuccessResponse(w, http.StatusOK, health)
}

// StatusFor maps a domain error onto its HTTP status and stable code.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, review.ErrNotFound), errors.Is(err, connection.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, review.ErrInvalidTransition):
		return http.StatusConflict, CodeInvalidTransition
	case errors.Is(err, usecase.ErrSyncInProgress):
		return http.StatusConflict, CodeSyncInProgress
	case errors.Is(err, review.ErrValidation):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, connection.ErrTokenRefreshFailed):
		return http.StatusBadGateway, CodeTokenRefreshFailed
	case errors.Is(err, connection.ErrDisconnected), errors.Is(err, platform.ErrAdapter), errors.Is(err, platform.ErrUnsupportedPlatform):
		return http.StatusBadGateway, CodeAdapter
	case errors.Is(err, draft.ErrDraftGenerationFailed):
		return http.StatusBadGateway, CodeDraftFailed
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func (h *ReviewHandler) writeError(w http.ResponseWriter, err error) {
	status, code := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	h.writeErrorResponse(w, status, code, message)
}

func (h *ReviewHandler) writeSuccessResponse(w http.ResponseWriter, statusCode int, data any) {
	response := APIResponse{
		Success: true,
		Data:    data,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

func (h *ReviewHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, code, message string) {
	response := APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode error response", "error", err)
	}
}
