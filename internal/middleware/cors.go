package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// AllowAllCORS permits every origin, method and header.
func AllowAllCORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         600,
	})
}
