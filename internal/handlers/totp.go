package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"cpl-edge-go/internal/models"
)

// Generate2FAHandler generates a new TOTP secret and QR code for the
// logged-in editor. The secret is only persisted once Enable2FAHandler
// verifies a code against it.
func (h *Handler) Generate2FAHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	_, username, _ := GetCurrentUser(r)

	key, err := models.GenerateTOTPSecret(username)
	if err != nil {
		http.Error(w, "Failed to generate secret", http.StatusInternalServerError)
		return
	}

	qrCode, err := models.TOTPQRCode(key)
	if err != nil {
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"secret":  key.Secret(),
		"qr_code": "data:image/png;base64," + qrCode,
		"issuer":  models.TOTPIssuer,
		"account": username,
	})
}

// Enable2FAHandler verifies the TOTP code and enables 2FA
func (h *Handler) Enable2FAHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Secret string `json:"secret"`
		Code   string `json:"code"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if !models.VerifyTOTPCode(req.Secret, req.Code) {
		http.Error(w, "Invalid verification code", http.StatusUnauthorized)
		return
	}

	userID, _, _ := GetCurrentUser(r)
	if err := h.Store.UpdateUser2FA(r.Context(), userID, req.Secret, true); err != nil {
		log.Printf("Failed to enable 2FA: %v", err)
		http.Error(w, "Failed to enable 2FA", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "2FA enabled successfully"})
}

// Disable2FAHandler disables 2FA for the logged-in editor.
func (h *Handler) Disable2FAHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID, _, _ := GetCurrentUser(r)
	if err := h.Store.Disable2FA(r.Context(), userID); err != nil {
		log.Printf("Failed to disable 2FA: %v", err)
		http.Error(w, "Failed to disable 2FA", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "2FA disabled successfully"})
}
