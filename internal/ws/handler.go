// package ws carries the websocket side of the result relay: the
// registration handshake and the registry feeding push deliveries.
package ws

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"gitlab.com/resultrelay.net/internal/core/ports/primary"
	"gitlab.com/resultrelay.net/internal/core/ports/secondary"
	"gitlab.com/resultrelay.net/internal/ws/registry"
)

const defaultHandshakeReadTimeout = 30 * time.Second

// RegisterRequest is the first message a client must send after the
// transport upgrade.
type RegisterRequest struct {
	Action string `json:"action"`
	JobID  string `json:"job_id"`
}

// Handler upgrades inbound connections and runs the registration handshake
type Handler struct {
	registry    *registry.Registry
	tokens      secondary.TokenVerifier
	jobs        secondary.JobPort
	logger      primary.Logger
	upgrader    websocket.Upgrader
	readTimeout time.Duration
}

// HandlerOption configures a Handler
type HandlerOption func(*Handler)

// WithHandshakeReadTimeout bounds the wait for the registration message so
// unauthenticated connections cannot hold resources forever
func WithHandshakeReadTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		h.readTimeout = d
	}
}

// NewHandler creates a new websocket handler
func NewHandler(
	reg *registry.Registry,
	tokens secondary.TokenVerifier,
	jobs secondary.JobPort,
	logger primary.Logger,
	options ...HandlerOption,
) *Handler {
	h := &Handler{
		registry:    reg,
		tokens:      tokens,
		jobs:        jobs,
		logger:      logger,
		readTimeout: defaultHandshakeReadTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// browsers reach this endpoint from the app origin as well as
			// same-origin relative URLs; origin policy is enforced upstream
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	for _, option := range options {
		option(h)
	}

	return h
}

// RegisterRoutes registers the websocket route
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/result/ws/analysis", h.Preconnect)
}

// Preconnect accepts a websocket upgrade, then expects one registration
// message: {"action":"register","job_id":"<id>"}. The bearer credential is
// taken from the negotiated subprotocol, then the token query parameter,
// then the id_token/access_token cookies. Registration is admitted only
// when the credential resolves to the job's persisted owner.
func (h *Handler) Preconnect(w http.ResponseWriter, r *http.Request) {
	token := extractToken(r)

	// Echo the first offered subprotocol so negotiation completes when the
	// client carried its credential there.
	respHeader := http.Header{}
	if protocols := websocket.Subprotocols(r); len(protocols) > 0 {
		respHeader.Set("Sec-WebSocket-Protocol", protocols[0])
	}

	conn, err := h.upgrader.Upgrade(w, r, respHeader)
	if err != nil {
		h.logger.Error("Failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()

	// The registration message must arrive within the handshake window
	_ = conn.SetReadDeadline(time.Now().Add(h.readTimeout))

	var req RegisterRequest
	if err := conn.ReadJSON(&req); err != nil {
		h.reject(conn, "invalid_json", websocket.CloseUnsupportedData)
		return
	}
	if req.Action != "register" || req.JobID == "" {
		h.reject(conn, "expected register with job_id", websocket.CloseUnsupportedData)
		return
	}

	userID, authenticated := h.tokens.Resolve(ctx, token)

	ownerID, err := h.jobs.GetOwner(ctx, req.JobID)
	if err != nil {
		h.logger.Error("Owner lookup failed", "jobId", req.JobID, "error", err)
		h.reject(conn, "internal_error", websocket.CloseInternalServerErr)
		return
	}
	if ownerID == nil {
		// distinguishable from forbidden so clients can tell a wrong job
		// id from a wrong credential
		h.reject(conn, "job_not_found", websocket.ClosePolicyViolation)
		return
	}
	if !authenticated || userID != *ownerID {
		h.reject(conn, "forbidden", websocket.ClosePolicyViolation)
		return
	}

	h.registry.Connect(req.JobID, conn, userID)
	defer h.registry.Disconnect(req.JobID, conn)

	if err := conn.WriteJSON(map[string]string{"status": "registered", "job_id": req.JobID}); err != nil {
		h.logger.Warn("Failed to send registration ack", "jobId", req.JobID, "error", err)
		return
	}

	// Passive drain: no protocol is defined beyond registration, so just
	// consume messages until the client goes away.
	_ = conn.SetReadDeadline(time.Time{})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("Connection closed", "jobId", req.JobID, "error", err)
			}
			return
		}
	}
}

// reject sends an error payload and a close frame, in that order, so the
// client sees why it was turned away.
func (h *Handler) reject(conn *websocket.Conn, message string, closeCode int) {
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_ = conn.WriteJSON(map[string]string{"error": message})
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(closeCode, message))
}

// extractToken pulls the bearer credential from the request. Priority:
// negotiated subprotocol, token query parameter, then the HttpOnly cookies
// set by the login flow. Absence is not fatal here; an empty token fails
// the authorization check later.
func extractToken(r *http.Request) string {
	if protocols := websocket.Subprotocols(r); len(protocols) > 0 {
		if token := strings.TrimSpace(protocols[0]); token != "" {
			return token
		}
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	for _, name := range []string{"id_token", "access_token"} {
		if cookie, err := r.Cookie(name); err == nil && cookie.Value != "" {
			return cookie.Value
		}
	}

	return ""
}
