package domain

// DeliveredResult is the payload handed to the client, either pushed over
// a live registration or returned by the polling status endpoint. It is
// recomputed from persisted state on every delivery; URLs are never cached.
type DeliveredResult struct {
	JobID      string    `json:"job_id"`
	Status     JobStatus `json:"status"`
	ResultURL  *string   `json:"result_url"`
	ResultURLs []string  `json:"result_urls"`
}

// NewDeliveredResult builds a payload from an ordered URL list. The first
// URL doubles as the singular result_url for older consumers.
func NewDeliveredResult(jobID string, status JobStatus, urls []string) *DeliveredResult {
	res := &DeliveredResult{
		JobID:  jobID,
		Status: status,
	}
	if len(urls) > 0 {
		res.ResultURL = &urls[0]
		res.ResultURLs = urls
	}
	return res
}
