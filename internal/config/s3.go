package config

import (
	"strconv"
	"time"
)

type S3Config struct {
	Bucket        string
	Region        string
	PresignExpiry time.Duration
}

func NewS3Config() *S3Config {
	expirySec, err := strconv.Atoi(getEnv("S3_PRESIGN_EXPIRY_SEC", ""))
	if err != nil {
		expirySec = 900
	}
	return &S3Config{
		Bucket:        getEnv("S3_RESULT_BUCKET", ""),
		Region:        getEnv("AWS_REGION", "ap-northeast-2"),
		PresignExpiry: time.Duration(expirySec) * time.Second,
	}
}
