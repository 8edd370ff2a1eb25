package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	appconfig "gitlab.com/resultrelay.net/internal/config"
	"gitlab.com/resultrelay.net/internal/core/services/auth"
	"gitlab.com/resultrelay.net/internal/domain"
	"gitlab.com/resultrelay.net/internal/handlers/response"
)

type ServiceDependencies struct {
	GGAuthService    auth.IAuthService
	LocalAuthService auth.IAuthService
}

// GoogleUser struct to decode Google API response
type GoogleUser struct {
	ID    string `json:"sub"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Handler struct {
	providerHandler map[domain.Provider]auth.IAuthService
	oauthConfig     *oauth2.Config
}

func NewHandler(ggCfg *appconfig.GGAuthConfig) *Handler {
	return &Handler{
		providerHandler: make(map[domain.Provider]auth.IAuthService),
		oauthConfig: &oauth2.Config{
			ClientID:     ggCfg.ClientID,
			ClientSecret: ggCfg.ClientSecret,
			RedirectURL:  ggCfg.RedirectURL,
			Scopes:       []string{"profile", "email"},
			Endpoint:     google.Endpoint,
		},
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router, svcDep *ServiceDependencies) {
	h.providerHandler[domain.ProviderGoogle] = svcDep.GGAuthService
	h.providerHandler[domain.ProviderLocal] = svcDep.LocalAuthService
	router.HandleFunc("/auth/login", h.LocalLoginHandler).Methods("POST")
	router.HandleFunc("/auth/google", h.GoogleLoginHandler).Methods("GET")
	router.HandleFunc("/auth/callback", h.GoogleCallbackHandler).Methods("GET")
}

type localLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LocalLoginHandler verifies a username/password pair and issues the token
func (h *Handler) LocalLoginHandler(w http.ResponseWriter, r *http.Request) {
	var req localLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteError(w, response.ErrorMessage{Message: "invalid request", StatusCode: http.StatusBadRequest})
		return
	}

	tokenStr, err := h.providerHandler[domain.ProviderLocal].Login(r.Context(), &domain.Users{
		UserName:     req.Username,
		PasswordHash: &req.Password,
		AuthProvider: string(domain.ProviderLocal),
	})
	if err != nil {
		response.WriteError(w, response.ErrorMessage{
			Message:    "invalid credentials",
			StatusCode: http.StatusUnauthorized,
		})
		return
	}

	h.writeToken(w, tokenStr)
}

// GoogleLoginHandler redirects user to Google OAuth2 login
func (h *Handler) GoogleLoginHandler(w http.ResponseWriter, r *http.Request) {
	url := h.oauthConfig.AuthCodeURL("randomstate")
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// GoogleCallbackHandler handles Google OAuth2 callback
func (h *Handler) GoogleCallbackHandler(w http.ResponseWriter, r *http.Request) {
	ctx := context.Background()
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "No code in URL", http.StatusBadRequest)
		return
	}
	token, err := h.oauthConfig.Exchange(ctx, code)
	if err != nil {
		http.Error(w, "Failed to get token", http.StatusInternalServerError)
		return
	}
	client := h.oauthConfig.Client(ctx, token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v3/userinfo")
	if err != nil {
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	var googleUser GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&googleUser); err != nil {
		http.Error(w, "Failed to decode user info", http.StatusInternalServerError)
		return
	}

	tokenStr, err := h.providerHandler[domain.ProviderGoogle].Login(ctx, &domain.Users{
		GoogleID:     &googleUser.ID,
		Email:        &googleUser.Email,
		AuthProvider: string(domain.ProviderGoogle),
	})
	if err != nil {
		response.WriteError(w, response.ErrorMessage{
			Message:    err.Error(),
			StatusCode: http.StatusUnauthorized,
		})
		return
	}

	h.writeToken(w, tokenStr)
}

// writeToken sets the HttpOnly cookie the websocket handshake reads and
// echoes the token in the body for non-browser clients.
func (h *Handler) writeToken(w http.ResponseWriter, tokenStr string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "id_token",
		Value:    tokenStr,
		Path:     "/",
		Expires:  time.Now().Add(time.Hour),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	response.WriteSuccess(w, domain.LoginResponse{Token: tokenStr})
}
