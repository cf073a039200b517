package httpserver

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/phenrril/protoquote/internal/domain"
)

const userCookie = "sess"

type sessionUser struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (s *Server) sign(b []byte) []byte {
	h := hmac.New(sha256.New, []byte(s.opts.SessionKey))
	h.Write(b)
	return h.Sum(nil)
}

func (s *Server) writeUserSession(w http.ResponseWriter, r *http.Request, u *sessionUser) {
	secure := s.opts.Secure || isSecure(r)
	if u == nil {
		http.SetCookie(w, &http.Cookie{Name: userCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: secure, SameSite: http.SameSiteLaxMode})
		return
	}
	b, _ := json.Marshal(u)
	val := base64.RawURLEncoding.EncodeToString(s.sign(b)) + "." + base64.RawURLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{Name: userCookie, Value: val, Path: "/", MaxAge: 60 * 60 * 24 * 7, HttpOnly: true, Secure: secure, SameSite: http.SameSiteLaxMode})
}

func (s *Server) readUserSession(r *http.Request) *sessionUser {
	c, err := r.Cookie(userCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	sigPart, payPart, ok := strings.Cut(c.Value, ".")
	if !ok {
		return nil
	}
	sig, _ := base64.RawURLEncoding.DecodeString(sigPart)
	payload, _ := base64.RawURLEncoding.DecodeString(payPart)
	if !hmac.Equal(sig, s.sign(payload)) {
		return nil
	}
	var u sessionUser
	if err := json.Unmarshal(payload, &u); err != nil || u.Email == "" {
		return nil
	}
	return &u
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u := s.readUserSession(r)
	if u == nil {
		writeError(w, 401, "unauthorized")
		return
	}
	writeJSON(w, 200, u)
}

func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if s.oauthCfg == nil {
		writeError(w, 501, "oauth not configured")
		return
	}
	state := uuid.New().String()
	http.SetCookie(w, &http.Cookie{Name: "oauth_state", Value: state, Path: "/", MaxAge: 300, HttpOnly: true, Secure: isSecure(r), SameSite: http.SameSiteLaxMode})
	http.Redirect(w, r, s.oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOnline), http.StatusFound)
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if s.oauthCfg == nil {
		writeError(w, 501, "oauth not configured")
		return
	}
	q := r.URL.Query()
	c, _ := r.Cookie("oauth_state")
	if c == nil || c.Value == "" || c.Value != q.Get("state") {
		writeError(w, 400, "state")
		return
	}
	tok, err := s.oauthCfg.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		log.Error().Err(err).Msg("exchange oauth")
		writeError(w, 400, "oauth")
		return
	}
	resp, err := s.oauthCfg.Client(r.Context(), tok).Get("https://www.googleapis.com/oauth2/v3/userinfo")
	if err != nil {
		log.Error().Err(err).Msg("userinfo")
		writeError(w, 400, "userinfo")
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Error().Int("status", resp.StatusCode).Msg("userinfo")
		writeError(w, 400, "userinfo")
		return
	}
	var info sessionUser
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err := json.Unmarshal(body, &info); err != nil || info.Email == "" {
		writeError(w, 400, "email")
		return
	}
	if s.customers != nil {
		if _, err := s.customers.FindByEmail(r.Context(), info.Email); errors.Is(err, domain.ErrNotFound) {
			if err := s.customers.Save(r.Context(), &domain.Customer{ID: uuid.New(), Email: info.Email, Name: info.Name}); err != nil {
				log.Error().Err(err).Str("email", info.Email).Msg("save customer")
			}
		}
	}
	s.writeUserSession(w, r, &info)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.writeUserSession(w, r, nil)
	http.Redirect(w, r, "/", http.StatusFound)
}
