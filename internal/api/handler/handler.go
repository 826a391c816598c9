package handler

import (
	"vanishly/backend/internal/lifecycle"
	"vanishly/backend/internal/storage"
)

// Handler exposes the lifecycle facade over HTTP and WebSocket.
type Handler struct {
	Facade  *lifecycle.Facade
	Storage *storage.Service
}

func NewHandler(facade *lifecycle.Facade, s *storage.Service) *Handler {
	return &Handler{Facade: facade, Storage: s}
}
