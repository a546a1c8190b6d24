package httpapi

import (
	"net/http"
	"time"
)

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Service:   "zeroid",
		Version:   Version,
		Timestamp: time.Now().UnixMilli(),
	})
}
