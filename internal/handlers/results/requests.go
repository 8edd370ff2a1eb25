package results

// WebhookResponse acknowledges a completion callback
type WebhookResponse struct {
	Message    string   `json:"message"`
	ResultURLs []string `json:"result_urls"`
}
