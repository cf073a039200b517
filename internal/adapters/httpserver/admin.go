package httpserver

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/phenrril/protoquote/internal/domain"
)

const adminCookie = "admin_token"

type adminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (s *Server) issueAdminToken(user string, dur time.Duration) (string, time.Time, error) {
	exp := time.Now().Add(dur)
	claims := adminClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user,
			Issuer:    "protoquote",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.opts.AdminSecret))
	return tok, exp, err
}

func (s *Server) verifyAdminToken(tok string) (string, error) {
	var claims adminClaims
	parsed, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(s.opts.AdminSecret), nil
	})
	if err != nil {
		return "", err
	}
	if !parsed.Valid || claims.Role != "admin" || claims.Subject == "" {
		return "", fmt.Errorf("claims")
	}
	return claims.Subject, nil
}

func (s *Server) isAdminSession(r *http.Request) bool {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		if _, err := s.verifyAdminToken(strings.TrimSpace(auth[7:])); err == nil {
			return true
		}
	}
	if c, err := r.Cookie(adminCookie); err == nil && c.Value != "" {
		if _, err := s.verifyAdminToken(c.Value); err == nil {
			return true
		}
	}
	return false
}

func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if s.isAdminSession(r) {
		return true
	}
	writeError(w, 401, "unauthorized")
	return false
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// handleAdminAuth trades the configured admin credentials for a token,
// returned both as JSON and as an HttpOnly cookie.
func (s *Server) handleAdminAuth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, 405, "method")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeError(w, 400, "form")
		return
	}
	user := strings.TrimSpace(r.FormValue("user"))
	pass := strings.TrimSpace(r.FormValue("pass"))
	if !secureCompare(user, s.opts.AdminUser) || !secureCompare(pass, s.opts.AdminPass) {
		log.Warn().Str("user", user).Msg("admin login failed")
		writeError(w, 401, "credentials")
		return
	}
	tok, exp, err := s.issueAdminToken(user, 6*time.Hour)
	if err != nil {
		writeError(w, 500, "token")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: adminCookie, Value: tok, Path: "/", Expires: exp, HttpOnly: true, Secure: s.opts.Secure || isSecure(r), SameSite: http.SameSiteStrictMode})
	writeJSON(w, 200, map[string]any{"token": tok, "exp": exp.Unix()})
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: adminCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: s.opts.Secure || isSecure(r), SameSite: http.SameSiteStrictMode})
	w.WriteHeader(http.StatusNoContent)
}

func quoteFilterFrom(r *http.Request) (domain.QuoteFilter, error) {
	qv := r.URL.Query()
	f := domain.QuoteFilter{Email: qv.Get("email")}
	if st := qv.Get("status"); st != "" {
		parsed, ok := domain.ParseQuoteStatus(st)
		if !ok {
			return f, fmt.Errorf("status")
		}
		f.Status = parsed
	}
	f.Page, _ = strconv.Atoi(qv.Get("page"))
	f.PageSize, _ = strconv.Atoi(qv.Get("page_size"))
	if f.PageSize > 200 {
		f.PageSize = 200
	}
	return f, nil
}

func (s *Server) apiAdminQuotes(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, 405, "method")
		return
	}
	f, err := quoteFilterFrom(r)
	if err != nil {
		writeError(w, 400, err.Error())
		return
	}
	list, total, err := s.quotes.List(r.Context(), f)
	if err != nil {
		log.Error().Err(err).Msg("list quotes")
		writeError(w, 500, "list")
		return
	}
	writeJSON(w, 200, map[string]any{"items": list, "total": total})
}

// apiAdminQuoteByID serves
//
//	GET  /api/admin/quotes/{id}
//	GET  /api/admin/quotes/{id}/file
//	POST /api/admin/quotes/{id}/status
func (s *Server) apiAdminQuoteByID(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/admin/quotes/"), "/")
	idStr, action, _ := strings.Cut(rest, "/")
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(w, 404, "quote")
		return
	}
	switch {
	case action == "" && r.Method == http.MethodGet:
		q, err := s.quotes.Get(r.Context(), id)
		if err != nil {
			writeError(w, statusFor(err), "quote")
			return
		}
		writeJSON(w, 200, q)
	case action == "file" && r.Method == http.MethodGet:
		name, data, err := s.quotes.ModelFile(r.Context(), id)
		if err != nil {
			writeError(w, statusFor(err), "file")
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		_, _ = w.Write(data)
	case action == "status" && r.Method == http.MethodPost:
		st, ok := domain.ParseQuoteStatus(strings.TrimSpace(r.FormValue("status")))
		if !ok {
			writeError(w, 400, "status")
			return
		}
		q, err := s.quotes.UpdateStatus(r.Context(), id, st)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, 200, q)
	default:
		writeError(w, 405, "method")
	}
}

var exportHeader = []string{"ID", "Created", "Status", "Email", "Phone", "File", "Material", "Color", "Quality", "Infill %", "Scale", "Volume cm3", "Dims cm", "Print cm", "Price", "Time", "Notes"}

func (s *Server) handleAdminExport(w http.ResponseWriter, r *http.Request) {
	if !s.requireAdmin(w, r) {
		return
	}
	f, err := quoteFilterFrom(r)
	if err != nil {
		writeError(w, 400, err.Error())
		return
	}
	var all []domain.QuoteRequest
	f.PageSize = 200
	for f.Page = 1; ; f.Page++ {
		list, total, err := s.quotes.List(r.Context(), f)
		if err != nil {
			log.Error().Err(err).Msg("export quotes")
			writeError(w, 500, "export")
			return
		}
		all = append(all, list...)
		if len(list) == 0 || int64(len(all)) >= total {
			break
		}
	}
	x, err := buildQuotesWorkbook(all)
	if err != nil {
		log.Error().Err(err).Msg("build xlsx")
		writeError(w, 500, "export")
		return
	}
	defer x.Close()
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"quotes-%s.xlsx\"", time.Now().Format("20060102")))
	if err := x.Write(w); err != nil {
		log.Error().Err(err).Msg("write xlsx")
	}
}

func buildQuotesWorkbook(list []domain.QuoteRequest) (*excelize.File, error) {
	x := excelize.NewFile()
	const sheet = "Quotes"
	if err := x.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	for i, h := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := x.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}
	for i, q := range list {
		row := []any{
			q.ID.String(), q.CreatedAt.Format("2006-01-02 15:04"), string(q.Status), q.Email, q.Phone,
			q.FileName, q.Material, q.Color, q.QualityLabel, q.InfillPct, q.Scale, q.VolumeCm3,
			fmt.Sprintf("%.2f x %.2f x %.2f", q.DimXCm, q.DimYCm, q.DimZCm),
			fmt.Sprintf("%.2f x %.2f x %.2f", q.PrintXCm, q.PrintYCm, q.PrintZCm),
			q.Price, q.TimeLabel, q.Notes,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := x.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}
	return x, nil
}
