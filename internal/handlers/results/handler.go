package results

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"gitlab.com/resultrelay.net/internal/core/ports/primary"
	"gitlab.com/resultrelay.net/internal/core/services/result"
	"gitlab.com/resultrelay.net/internal/handlers/response"
	"gitlab.com/resultrelay.net/internal/static/errs"
	"gitlab.com/resultrelay.net/internal/webhook"
)

// CallbackVerifier authenticates a completion callback before any state
// changes; implemented by webhook.Verifier.
type CallbackVerifier interface {
	Verify(r *http.Request, body []byte) (*webhook.VerifiedCallback, error)
}

// ResultHandler handles the completion webhook and the polling status
// endpoint.
type ResultHandler struct {
	resultService result.IResultService
	verifier      CallbackVerifier
	logger        primary.Logger
}

// NewResultHandler creates a new result handler
func NewResultHandler(resultService result.IResultService, verifier CallbackVerifier, logger primary.Logger) *ResultHandler {
	return &ResultHandler{
		resultService: resultService,
		verifier:      verifier,
		logger:        logger,
	}
}

// RegisterRoutes registers the API routes for ResultHandler
func (h *ResultHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/result/webhook/job/complete", h.HandleCompletionWebhook).Methods("POST")
	router.HandleFunc("/result/status", h.GetResultStatus).Methods("GET")
}

// HandleCompletionWebhook ingests the worker's completion callback. The
// response is 202 whenever persistence and URL generation succeed; whether
// a live client received the push only changes the message text.
func (h *ResultHandler) HandleCompletionWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		response.WriteError(w, response.ErrorMessage{Message: "failed to read body", StatusCode: http.StatusBadRequest})
		return
	}

	cb, err := h.verifier.Verify(r, body)
	if err != nil {
		h.logger.Warn("Rejected unauthenticated webhook", "error", err)
		response.WriteError(w, response.ErrorMessage{Message: "unauthorized", StatusCode: http.StatusUnauthorized})
		return
	}

	outcome, err := h.resultService.HandleCompletion(r.Context(), cb)
	if err != nil {
		switch {
		case errors.Is(err, errs.MissingJobID), errors.Is(err, errs.MissingResultKey):
			response.WriteError(w, response.ErrorMessage{Message: "job_id and s3_result_path required", StatusCode: http.StatusBadRequest})
		default:
			h.logger.Error("Completion handling failed", "error", err)
			response.WriteError(w, response.ErrorMessage{Message: "failed to process completion", StatusCode: http.StatusInternalServerError})
		}
		return
	}

	message := "Result URL(s) generated."
	if outcome.Pushed {
		message = "Result pushed successfully."
	}

	response.WriteJSON(w, http.StatusAccepted, WebhookResponse{
		Message:    message,
		ResultURLs: outcome.ResultURLs,
	})
}

// GetResultStatus is the polling fallback: it answers from persisted state
// only, so it stays correct when no connection was ever registered.
func (h *ResultHandler) GetResultStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("job_id")
	if jobID == "" {
		response.WriteError(w, response.ErrorMessage{Message: "job_id is required", StatusCode: http.StatusBadRequest})
		return
	}

	res, err := h.resultService.Status(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, errs.JobNotFound) {
			response.WriteError(w, response.ErrorMessage{Message: "job not found", StatusCode: http.StatusNotFound})
			return
		}
		h.logger.Error("Failed to get result status", "jobId", jobID, "error", err)
		response.WriteError(w, response.ErrorMessage{Message: "internal error", StatusCode: http.StatusInternalServerError})
		return
	}

	response.WriteSuccess(w, res)
}
