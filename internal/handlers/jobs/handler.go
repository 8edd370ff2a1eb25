package jobs

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"gitlab.com/resultrelay.net/internal/core/ports/primary"
	"gitlab.com/resultrelay.net/internal/core/ports/secondary"
	"gitlab.com/resultrelay.net/internal/domain"
	"gitlab.com/resultrelay.net/internal/handlers"
	"gitlab.com/resultrelay.net/internal/handlers/response"
)

// JobHandler handles upload-intent API requests
type JobHandler struct {
	jobs   secondary.JobPort
	logger primary.Logger
}

// NewJobHandler creates a new job handler
func NewJobHandler(jobs secondary.JobPort, logger primary.Logger) *JobHandler {
	return &JobHandler{
		jobs:   jobs,
		logger: logger,
	}
}

// RegisterRoutes registers the API routes for JobHandler behind the JWT
// middleware; only authenticated clients may declare upload intents.
func (h *JobHandler) RegisterRoutes(router *mux.Router, mw *handlers.MiddlewareProvider) {
	router.Handle("/api/jobs", mw.JWTMiddleware(http.HandlerFunc(h.CreateIntent))).Methods("POST")
}

// CreateIntent records a PENDING upload job owned by the caller. The job id
// may be supplied by the upload flow; a fresh uuid is minted otherwise.
func (h *JobHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	var req CreateIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request", "error", err)
		response.WriteError(w, response.ErrorMessage{Message: "invalid request", StatusCode: http.StatusBadRequest})
		return
	}

	if req.S3Key == "" || req.Filename == "" {
		response.WriteError(w, response.ErrorMessage{Message: "s3_key and filename are required", StatusCode: http.StatusBadRequest})
		return
	}

	userID, ok := handlers.UserIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, response.ErrorMessage{Message: "unauthorized", StatusCode: http.StatusUnauthorized})
		return
	}

	jobID := req.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}

	job := &domain.Job{
		ID:            jobID,
		OwnerID:       &userID,
		UploadSource:  req.UploadSource,
		S3Key:         req.S3Key,
		Filename:      req.Filename,
		FileType:      req.FileType,
		FileSizeBytes: req.FileSizeBytes,
		Status:        domain.JobStatusPending,
	}

	if err := h.jobs.CreateIntent(r.Context(), job); err != nil {
		h.logger.Error("Failed to create upload intent", "jobId", jobID, "error", err)
		response.WriteError(w, response.ErrorMessage{Message: "failed to create job", StatusCode: http.StatusInternalServerError})
		return
	}

	response.WriteJSON(w, http.StatusCreated, CreateIntentResponse{JobID: jobID})
}
