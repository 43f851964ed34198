package routes

import (
	"net/http"

	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter wires the service handlers onto a mux behind request logging
func NewRouter(h *Handler, log *logrus.Logger) http.Handler {
	router := http.NewServeMux()
	router.HandleFunc("/contributions/sync", h.SyncContributions)
	router.HandleFunc("/contributions", h.GetContributions)
	router.HandleFunc("/users/level", h.GetUserLevel)
	router.HandleFunc("/repositories/score", h.ScoreRepository)
	router.HandleFunc("/status", h.GetStatus)
	// Serve Swagger documentation
	router.HandleFunc("/swagger/", httpSwagger.WrapHandler)
	return RequestLogger(log)(router)
}
