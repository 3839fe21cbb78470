package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// AllowedOrigins are the web front-ends allowed to call the API.
var AllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8080",
	"http://127.0.0.1:8080",
}

// CORSMiddleware allows credentialed requests from AllowedOrigins and exposes
// Content-Disposition so dataset downloads keep their file name.
func CORSMiddleware(next http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}).Handler(next)
}
