package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/phenrril/protoquote/internal/domain"
	"github.com/phenrril/protoquote/internal/meshio"
	"github.com/phenrril/protoquote/internal/meshmetrics"
	"github.com/phenrril/protoquote/internal/usecase"
)

type Options struct {
	SessionKey  string
	AdminUser   string
	AdminPass   string
	AdminSecret string
	Secure      bool
	// TrustProxy keys rate limits on X-Forwarded-For. Only set it behind a
	// proxy that overwrites the header.
	TrustProxy  bool
}

type Server struct {
	mux       *http.ServeMux
	quotes    *usecase.QuoteUC
	customers domain.CustomerRepo
	oauthCfg  *oauth2.Config
	opts      Options
}

func New(q *usecase.QuoteUC, customers domain.CustomerRepo, oauthCfg *oauth2.Config, opts Options) http.Handler {
	s := &Server{quotes: q, customers: customers, oauthCfg: oauthCfg, opts: opts, mux: http.NewServeMux()}
	if s.opts.SessionKey == "" {
		s.opts.SessionKey = "dev-insecure"
	}
	if s.opts.AdminSecret == "" {
		s.opts.AdminSecret = "dev-admin-secret"
	}
	s.routes()
	return Chain(s.mux,
		PublicRateLimit(map[string]int{
			"/api/quote/estimate": 30,
			"/api/quote/request":  10,
			"/admin/auth":         10,
		}, opts.TrustProxy),
		RateLimit(120, opts.TrustProxy),
		SecurityHeaders,
		Recovery,
		Logging,
		RequestID,
	)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	s.mux.HandleFunc("/api/quote/options", s.apiQuoteOptions)
	s.mux.HandleFunc("/api/quote/estimate", s.apiQuoteEstimate)
	s.mux.HandleFunc("/api/quote/request", s.apiQuoteRequest)
	s.mux.HandleFunc("/api/quote/", s.apiQuoteByID)

	s.mux.HandleFunc("/auth/google/login", s.handleGoogleLogin)
	s.mux.HandleFunc("/auth/google/callback", s.handleGoogleCallback)
	s.mux.HandleFunc("/auth/me", s.handleMe)
	s.mux.HandleFunc("/logout", s.handleLogout)

	s.mux.HandleFunc("/admin/auth", s.handleAdminAuth)
	s.mux.HandleFunc("/admin/logout", s.handleAdminLogout)
	s.mux.HandleFunc("/admin/quotes/export.xlsx", s.handleAdminExport)
	s.mux.HandleFunc("/api/admin/quotes", s.apiAdminQuotes)
	s.mux.HandleFunc("/api/admin/quotes/", s.apiAdminQuoteByID)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
		code = http.StatusInternalServerError
		buf.Reset()
		buf.WriteString(`{"error":"encode"}` + "\n")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// statusFor maps domain and use case errors to HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrUndecodable),
		errors.Is(err, meshmetrics.ErrOutOfRange):
		return http.StatusUnprocessableEntity
	case errors.Is(err, usecase.ErrMissingFile),
		errors.Is(err, usecase.ErrInvalidEmail),
		errors.Is(err, usecase.ErrMissingPhone),
		errors.Is(err, meshio.ErrUnsupportedFormat),
		errors.Is(err, domain.ErrUnknownQuality),
		errors.Is(err, domain.ErrUnknownMaterial),
		errors.Is(err, domain.ErrUnknownColor),
		errors.Is(err, domain.ErrInvalidInfill),
		errors.Is(err, domain.ErrInvalidScale),
		errors.Is(err, domain.ErrInvalidOrientation):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func isSecure(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func nan() float64 { return math.NaN() }
