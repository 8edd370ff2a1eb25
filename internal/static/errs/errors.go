package errs

import "errors"

var InvalidCredentials = errors.New("invalid credentials")

var (
	InternalError      = errors.New("internal error")
	GeneratingToken    = errors.New("error generating token")
	FailedToCreateUser = errors.New("failed to create user")
)

var (
	JobNotFound      = errors.New("job not found")
	MissingJobID     = errors.New("job_id is required")
	MissingResultKey = errors.New("s3_result_path is required")
	ResultNotPersist = errors.New("failed to persist job result")
	PresignFailed    = errors.New("failed to generate presigned result URL(s)")
)
