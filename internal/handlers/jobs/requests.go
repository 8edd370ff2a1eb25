package jobs

// CreateIntentRequest declares an upload the external worker will process
type CreateIntentRequest struct {
	JobID         string `json:"job_id"`
	UploadSource  string `json:"upload_source"`
	S3Key         string `json:"s3_key"`
	Filename      string `json:"filename"`
	FileType      string `json:"file_type"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

// CreateIntentResponse returns the id the client registers against
type CreateIntentResponse struct {
	JobID string `json:"job_id"`
}
