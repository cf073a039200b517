package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/protoquote/internal/domain"
	"github.com/phenrril/protoquote/internal/meshio"
	"github.com/phenrril/protoquote/internal/usecase"
)

func (s *Server) apiQuoteOptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, 405, "method")
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	writeJSON(w, 200, s.quotes.Options())
}

func (s *Server) apiQuoteEstimate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, 405, "method")
		return
	}
	in, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, 400, err.Error())
		return
	}
	res, err := s.quotes.Estimate(r.Context(), in)
	if err != nil {
		code := statusFor(err)
		if res != nil {
			writeJSON(w, code, map[string]any{"error": err.Error(), "result": res})
			return
		}
		writeError(w, code, err.Error())
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, 200, res)
}

func (s *Server) apiQuoteRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, 405, "method")
		return
	}
	in, err := s.readUpload(w, r)
	if err != nil {
		writeError(w, 400, err.Error())
		return
	}
	sub := usecase.Submission{
		EstimateInput: in,
		Email:         r.FormValue("email"),
		Phone:         r.FormValue("phone"),
		Notes:         r.FormValue("notes"),
	}
	if strings.TrimSpace(sub.Email) == "" {
		if u := s.readUserSession(r); u != nil {
			sub.Email = u.Email
		}
	}
	clientPrice := -1
	if raw := r.FormValue("specifications"); raw != "" {
		var client domain.Specifications
		if err := json.Unmarshal([]byte(raw), &client); err == nil {
			clientPrice = client.EstimatedPrice
		}
	}
	q, err := s.quotes.Submit(r.Context(), sub)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if clientPrice >= 0 && clientPrice != q.Price {
		log.Info().Str("quote_id", q.ID.String()).Int("client_price", clientPrice).Int("price", q.Price).Msg("client estimate differs")
	}
	writeJSON(w, 201, map[string]any{"success": true, "id": q.ID, "quote": q})
}

func (s *Server) apiQuoteByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, 405, "method")
		return
	}
	id, err := uuid.Parse(strings.TrimPrefix(r.URL.Path, "/api/quote/"))
	if err != nil {
		writeError(w, 404, "quote")
		return
	}
	q, err := s.quotes.Get(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), "quote")
		return
	}
	if !s.isAdminSession(r) {
		u := s.readUserSession(r)
		if u == nil || !strings.EqualFold(u.Email, q.Email) {
			writeError(w, 404, "quote")
			return
		}
	}
	writeJSON(w, 200, q)
}

// readUpload parses the multipart quote form: the model under "file" and
// the print configuration as plain fields.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (usecase.EstimateInput, error) {
	var in usecase.EstimateInput
	r.Body = http.MaxBytesReader(w, r.Body, meshio.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		return in, fmt.Errorf("form: %w", err)
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		return in, usecase.ErrMissingFile
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return in, fmt.Errorf("file: %w", err)
	}
	in.FileName = hdr.Filename
	in.Data = data

	cfg, err := s.configFromForm(r)
	if err != nil {
		return in, err
	}
	in.Config = cfg

	if axis := strings.ToLower(strings.TrimSpace(r.FormValue("target_axis"))); axis != "" {
		a, ok := domain.ParseAxis(axis)
		if !ok {
			return in, errors.New("target_axis")
		}
		// unparseable values reach the engine as NaN and are rejected there
		v, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue("target_value")), 64)
		if err != nil {
			v = nan()
		}
		in.Target = &usecase.TargetDimension{Axis: a, Value: v}
	}
	return in, nil
}

func (s *Server) configFromForm(r *http.Request) (domain.PrintConfiguration, error) {
	cfg := s.quotes.Options().DefaultConfig()
	if v := strings.TrimSpace(r.FormValue("quality")); v != "" {
		cfg.QualityID = v
	}
	if v := strings.TrimSpace(r.FormValue("material")); v != "" {
		cfg.Material = v
		cfg.Color = ""
	}
	if v := strings.TrimSpace(r.FormValue("color")); v != "" {
		cfg.Color = v
	}
	if v := strings.TrimSuffix(strings.TrimSpace(r.FormValue("infill")), "%"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, errors.New("infill")
		}
		cfg.InfillPct = n
	}
	for _, f := range []struct {
		key string
		dst *float64
	}{
		{"scale", &cfg.Scale},
		{"rotation_x", &cfg.Orientation.RotationX},
		{"rotation_y", &cfg.Orientation.RotationY},
	} {
		if v := strings.TrimSpace(r.FormValue(f.key)); v != "" {
			x, err := strconv.ParseFloat(v, 64)
			if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
				return cfg, errors.New(f.key)
			}
			*f.dst = x
		}
	}
	return cfg, nil
}
