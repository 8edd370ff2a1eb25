package config

import (
	"os"
	"strconv"
	"time"
)

type WebhookConfig struct {
	Secret  string
	MaxSkew time.Duration
}

func NewWebhookConfig() *WebhookConfig {
	skewSec, err := strconv.Atoi(os.Getenv("WEBHOOK_MAX_SKEW_SEC"))
	if err != nil {
		skewSec = 300
	}
	return &WebhookConfig{
		Secret:  os.Getenv("WEBHOOK_SECRET"),
		MaxSkew: time.Duration(skewSec) * time.Second,
	}
}
