package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	goIntake "github.com/MrEthical07/goIntake"
	intakemw "github.com/MrEthical07/goIntake/middleware"
	"github.com/MrEthical07/goIntake/textgen"
	"github.com/go-chi/chi/v5"
)

type validateRequest struct {
	CaseID   string `json:"caseId"`
	Passcode string `json:"passcode"`
}

type validateResponse struct {
	Valid        bool   `json:"valid"`
	CaseID       string `json:"caseId"`
	SessionToken string `json:"sessionToken,omitempty"`
}

type finalizeResponse struct {
	ReportRef string `json:"reportRef"`
}

type deleteRequest struct {
	ID string `json:"id"`
}

type healthResponse struct {
	Status         string  `json:"status"`
	StoreLatencyMS float64 `json:"storeLatencyMs"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	h := s.opts.Engine.Health(r.Context())
	resp := healthResponse{
		Status:         "ok",
		StoreLatencyMS: float64(h.StoreLatency.Microseconds()) / 1000,
	}
	if !h.StoreAvailable {
		resp.Status = "unavailable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) issueCredential(w http.ResponseWriter, r *http.Request) {
	cred, err := s.opts.Engine.IssueCredential(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cred)
}

func (s *Server) validateCredential(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}

	res, err := s.opts.Engine.ValidateCredential(r.Context(), req.CaseID, req.Passcode)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{
		Valid:        true,
		CaseID:       res.CaseID,
		SessionToken: res.SessionToken,
	})
}

func (s *Server) finalizeReport(w http.ResponseWriter, r *http.Request) {
	var req goIntake.FinalizeRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	if token, ok := intakemw.BearerToken(r.Header.Get("Authorization")); ok {
		req.SessionToken = token
	}

	rep, err := s.opts.Engine.FinalizeReport(r.Context(), req)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, finalizeResponse{ReportRef: rep.ID})
}

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	order := goIntake.NewestFirst
	switch strings.ToLower(r.URL.Query().Get("order")) {
	case "", "desc":
	case "asc":
		order = goIntake.OldestFirst
	default:
		s.handleError(w, r, fmt.Errorf("%w: order must be asc or desc", goIntake.ErrValidation))
		return
	}

	reports, err := s.opts.Engine.ListReports(r.Context(), order)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.opts.Engine.GetReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// deleteReport takes the id from the path or, on DELETE /api/reports, from
// the JSON body.
func (s *Server) deleteReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		var req deleteRequest
		if err := s.decodeBody(w, r, &req); err != nil {
			s.handleError(w, r, err)
			return
		}
		id = req.ID
	}

	if err := s.opts.Engine.DeleteReport(r.Context(), id); err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": strings.TrimSpace(id)})
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req textgen.Request
	if err := s.decodeBody(w, r, &req); err != nil {
		s.handleError(w, r, err)
		return
	}
	if req.System == "" {
		req.System = s.opts.ChatSystem
	}

	ctx := r.Context()
	if s.opts.ChatTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ChatTimeout)
		defer cancel()
	}

	resp, err := s.opts.Completer.Complete(ctx, req)
	if err != nil {
		if !errors.Is(err, textgen.ErrInvalidRequest) {
			err = fmt.Errorf("%w: %v", goIntake.ErrUpstreamUnavailable, err)
		}
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// decodeBody reads a single JSON value. Malformed input is ErrValidation.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w: body exceeds %d bytes", goIntake.ErrValidation, maxErr.Limit)
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: empty body", goIntake.ErrValidation)
		default:
			return fmt.Errorf("%w: malformed JSON", goIntake.ErrValidation)
		}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: body must contain a single JSON value", goIntake.ErrValidation)
	}
	return nil
}
