package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sketchduel/sketchduel-backend/internal/matchmaker"
)

func LobbyStatus(mm *matchmaker.Matchmaker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan matchmaker.Status, 1)
		select {
		case mm.Inbox() <- matchmaker.Counts{Reply: reply}:
		case <-time.After(time.Second):
			http.Error(w, "matchmaker unavailable", http.StatusServiceUnavailable)
			return
		}

		select {
		case s := <-reply:
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(s)
		case <-time.After(time.Second):
			http.Error(w, "matchmaker unavailable", http.StatusServiceUnavailable)
		}
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
