// Package handlers exposes the push/notification API surface of the edge
// service. Page traffic never lands here; the edge controller handles it.
package handlers

import (
	"encoding/json"
	"net/http"

	"cpl-edge-go/internal/push"
	"cpl-edge-go/internal/store"
)

type Handler struct {
	Store       store.Store
	Broadcaster *push.Broadcaster
	PublicKey   string // VAPID public key served to clients
}

func NewHandler(s store.Store, b *push.Broadcaster, publicKey string) *Handler {
	return &Handler{
		Store:       s,
		Broadcaster: b,
		PublicKey:   publicKey,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
