package domain

import (
	"time"
)

// JobStatus represents the processing status of an upload job
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// Job represents an upload job processed by the external analysis worker.
// The job id is caller-supplied and opaque; the relay never generates one
// on the completion path.
type Job struct {
	ID            string     `db:"id"`
	OwnerID       *string    `db:"user_id"`
	NonMemberID   *string    `db:"non_member_identifier"`
	UploadSource  string     `db:"upload_source"`
	S3Key         string     `db:"s3_key"`
	Filename      string     `db:"original_filename"`
	FileType      string     `db:"file_type"`
	FileSizeBytes int64      `db:"file_size_bytes"`
	Status        JobStatus  `db:"processing_status"`
	S3ResultPath  *string    `db:"s3_result_path"`
	S3ResultPaths []string   `db:"-"`
	CreatedAt     *time.Time `db:"created_at"`
}

// ResultKeys returns the stored result locations, preferring the richer
// list column and falling back to the single primary path.
func (j *Job) ResultKeys() []string {
	if len(j.S3ResultPaths) > 0 {
		return j.S3ResultPaths
	}
	if j.S3ResultPath != nil && *j.S3ResultPath != "" {
		return []string{*j.S3ResultPath}
	}
	return nil
}

type JobTable struct {
	ID            string
	OwnerID       string
	NonMemberID   string
	UploadSource  string
	S3Key         string
	Filename      string
	FileType      string
	FileSizeBytes string
	Status        string
	S3ResultPath  string
	S3ResultPaths string
	CreatedAt     string
}

func GetJobTable() JobTable {
	return JobTable{
		ID:            "id",
		OwnerID:       "user_id",
		NonMemberID:   "non_member_identifier",
		UploadSource:  "upload_source",
		S3Key:         "s3_key",
		Filename:      "original_filename",
		FileType:      "file_type",
		FileSizeBytes: "file_size_bytes",
		Status:        "processing_status",
		S3ResultPath:  "s3_result_path",
		S3ResultPaths: "s3_result_paths",
		CreatedAt:     "created_at",
	}
}

func (JobTable) TableName() string {
	return "upload_jobs"
}
