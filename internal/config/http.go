package config

import (
	"strconv"
	"time"
)

type HTTPConfig struct {
	Port                 int
	HandshakeReadTimeout time.Duration
	PushWriteTimeout     time.Duration
}

func NewHTTPConfig() *HTTPConfig {
	port, err := strconv.Atoi(getEnv("HTTP_PORT", ""))
	if err != nil {
		port = 8082
	}
	readSec, err := strconv.Atoi(getEnv("WS_HANDSHAKE_READ_TIMEOUT_SEC", ""))
	if err != nil {
		readSec = 30
	}
	writeSec, err := strconv.Atoi(getEnv("WS_PUSH_WRITE_TIMEOUT_SEC", ""))
	if err != nil {
		writeSec = 5
	}
	return &HTTPConfig{
		Port:                 port,
		HandshakeReadTimeout: time.Duration(readSec) * time.Second,
		PushWriteTimeout:     time.Duration(writeSec) * time.Second,
	}
}
