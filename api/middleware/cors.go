package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS returns middleware that applies the storefront origin policy. The
// configured app URL is the production storefront; the localhost entries
// cover local Vite dev servers.
func CORS(appURL string) func(http.Handler) http.Handler {
	origins := []string{
		"http://localhost:5173",
		"http://localhost:3000",
	}
	if appURL != "" {
		origins = append(origins, appURL)
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
