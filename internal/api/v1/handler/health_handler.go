package handler

import (
	"net/http"

	"github.com/rs/zerolog"
)

func HealthCheck(logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "ok"})
	}
}
