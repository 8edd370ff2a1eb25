package domain

type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderLocal  Provider = "local"
)

type AuthPayload struct {
	Sub      string `json:"sub"`
	Username string `json:"username"`
}

type LoginResponse struct {
	Token string `json:"token"`
}
