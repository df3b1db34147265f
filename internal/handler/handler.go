package handler

import (
	"time"

	"go.uber.org/zap"

	"appointment-api/internal/store"
)

type Handler struct {
	store     *store.Store
	secret    string
	accessTTL time.Duration
	log       *zap.Logger
}

func New(st *store.Store, secret string, accessTTL time.Duration, log *zap.Logger) *Handler {
	return &Handler{store: st, secret: secret, accessTTL: accessTTL, log: log}
}
