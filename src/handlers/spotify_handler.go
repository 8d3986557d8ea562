package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/pigstyle/records/backend/src/logger"
	"github.com/pigstyle/records/backend/src/services"
	"github.com/pigstyle/records/backend/src/utils"
)

// SpotifyHandler runs the one-time operator authorization for the store
// playlist integration.
type SpotifyHandler struct {
	spotify *services.SpotifyService

	// state issued on login, checked on callback
	pendingState string
}

func NewSpotifyHandler(spotify *services.SpotifyService) *SpotifyHandler {
	return &SpotifyHandler{spotify: spotify}
}

func (h *SpotifyHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.spotify.Configured() {
		utils.SendJSONError(w, "Spotify integration not configured", http.StatusServiceUnavailable)
		return
	}
	h.pendingState = uuid.NewString()
	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"auth_url": h.spotify.AuthURL(h.pendingState),
	})
}

func (h *SpotifyHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if errMsg := q.Get("error"); errMsg != "" {
		utils.SendJSONError(w, "Spotify authorization denied: "+errMsg, http.StatusBadRequest)
		return
	}
	if h.pendingState == "" || q.Get("state") != h.pendingState {
		utils.SendJSONError(w, "State mismatch", http.StatusBadRequest)
		return
	}
	h.pendingState = ""

	if err := h.spotify.HandleCallback(r.Context(), q.Get("code")); err != nil {
		logger.L.Error("Spotify code exchange failed", "error", err)
		utils.SendJSONError(w, "Spotify authorization failed", http.StatusBadGateway)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "Spotify connected"})
}
