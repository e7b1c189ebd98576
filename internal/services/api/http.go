package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/priceping/priceping/internal/domain/event"
	"github.com/priceping/priceping/internal/domain/monitor"
	"github.com/priceping/priceping/internal/monitoring/checkerr"
	"github.com/priceping/priceping/internal/monitoring/textnorm"
	"github.com/priceping/priceping/internal/picker"
	"github.com/priceping/priceping/internal/picker/sanitize"
	"github.com/priceping/priceping/internal/picker/selector"
	"github.com/priceping/priceping/internal/plan"
	"github.com/priceping/priceping/internal/repository/postgres"
)

// Pages is the slice of the fetch client the HTTP layer needs.
type Pages interface {
	HTML(ctx context.Context, url string) (string, error)
	AndExtract(ctx context.Context, url, selector string) (string, error)
}

const previewCSP = "default-src 'self'; script-src 'unsafe-inline'; " +
	"style-src 'unsafe-inline' *; img-src * data:; font-src *; media-src *; " +
	"frame-ancestors 'self'; form-action 'none'"

type Server struct {
	Log       *zap.Logger
	Monitors  *MonitorUsecase
	Cron      *CronUsecase
	Pages     Pages
	CronToken string
}

// Routes mounts every endpoint on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/monitors", s.withIdentity(s.handleCreate))
	mux.HandleFunc("GET /v1/monitors", s.withIdentity(s.handleList))
	mux.HandleFunc("GET /v1/monitors/{id}", s.withIdentity(s.handleGet))
	mux.HandleFunc("PUT /v1/monitors/{id}", s.withIdentity(s.handleUpdate))
	mux.HandleFunc("DELETE /v1/monitors/{id}", s.withIdentity(s.handleDelete))
	mux.HandleFunc("GET /v1/monitors/{id}/events", s.withIdentity(s.handleListEvents))

	mux.HandleFunc("POST /v1/monitors/test", s.handleTestSelector)
	mux.HandleFunc("GET /v1/picker/render", s.handlePickerRender)
	mux.HandleFunc("POST /v1/picker/selector", s.handleBuildSelector)
	mux.HandleFunc("POST /v1/cron/check", s.handleCron)

	return mux
}

// withIdentity trusts the owner headers set by the upstream auth proxy;
// requests that never passed through it carry neither and are rejected.
func (s *Server) withIdentity(next func(http.ResponseWriter, *http.Request, Identity)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := strconv.ParseInt(r.Header.Get("X-User-Id"), 10, 64)
		if err != nil || ownerID <= 0 {
			s.writeError(w, http.StatusUnauthorized, "auth required")
			return
		}
		p := plan.Plan(r.Header.Get("X-User-Plan"))
		if p != plan.Pro {
			p = plan.Free
		}
		next(w, r, Identity{OwnerID: ownerID, Plan: p})
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request, id Identity) {
	var in MonitorInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	m, err := s.Monitors.Create(r.Context(), id, &in)
	if err != nil {
		s.mapError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request, id Identity) {
	list, err := s.Monitors.List(r.Context(), id)
	if err != nil {
		s.mapError(w, err)
		return
	}
	if list == nil {
		list = []*monitor.Monitor{}
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, id Identity) {
	monitorID, ok := s.pathID(w, r)
	if !ok {
		return
	}
	m, err := s.Monitors.Get(r.Context(), id, monitorID)
	if err != nil {
		s.mapError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request, id Identity) {
	monitorID, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var in MonitorInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	m, err := s.Monitors.Update(r.Context(), id, monitorID, &in)
	if err != nil {
		s.mapError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, id Identity) {
	monitorID, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.Monitors.Delete(r.Context(), id, monitorID); err != nil {
		s.mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request, id Identity) {
	monitorID, ok := s.pathID(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := s.Monitors.ListEvents(r.Context(), id, monitorID, limit)
	if err != nil {
		s.mapError(w, err)
		return
	}
	if list == nil {
		list = []*event.Event{}
	}
	s.writeJSON(w, http.StatusOK, list)
}

// handleBuildSelector turns the element snapshot the picker frame posted into
// a stable CSS selector for the monitor-creation flow.
func (s *Server) handleBuildSelector(w http.ResponseWriter, r *http.Request) {
	var info selector.ElementInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"selector": selector.Build(info)})
}

type testSelectorRequest struct {
	URL       string `json:"url"`
	Selector  string `json:"selector"`
	ValueType string `json:"value_type"`
}

type testSelectorResponse struct {
	Success bool   `json:"success"`
	Value   string `json:"value,omitempty"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

// handleTestSelector runs the fetch/extract/normalize pipeline once against
// a candidate selector without persisting anything.
func (s *Server) handleTestSelector(w http.ResponseWriter, r *http.Request) {
	var req testSelectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if strings.TrimSpace(req.Selector) == "" {
		s.writeError(w, http.StatusBadRequest, "selector must not be empty")
		return
	}

	raw, err := s.Pages.AndExtract(r.Context(), req.URL, req.Selector)
	if err != nil {
		s.writeJSON(w, http.StatusOK, testSelectorResponse{
			Success: false,
			Error:   err.Error(),
			Kind:    string(checkerr.KindOf(err)),
		})
		return
	}

	vt := monitor.ValueType(req.ValueType)
	if !vt.Valid() {
		vt = monitor.ValueTypeText
	}
	s.writeJSON(w, http.StatusOK, testSelectorResponse{
		Success: true,
		Value:   textnorm.Normalize(raw, vt),
	})
}

// handlePickerRender serves a third-party page, sanitized and with the
// element-picker script injected, for the selection iframe. The response
// must never be cached: it embeds someone else's live content.
func (s *Server) handlePickerRender(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")

	raw, err := s.Pages.HTML(r.Context(), target)
	if err != nil {
		s.mapError(w, err)
		return
	}

	res, err := sanitize.Sanitize(raw, sanitize.Options{BaseURL: target})
	if err != nil {
		s.mapError(w, err)
		return
	}
	for _, d := range res.Diagnostics {
		s.Log.Debug("sanitize diagnostic", zap.String("url", target), zap.String("detail", d))
	}

	doc := picker.Inject(res.HTML)

	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("X-Frame-Options", "SAMEORIGIN")
	h.Set("Content-Security-Policy", previewCSP)
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

// handleCron is the external scheduler's entry point: run every due check
// now, synchronously, and report the tally.
func (s *Server) handleCron(w http.ResponseWriter, r *http.Request) {
	if !s.cronAuthorized(r) {
		s.writeError(w, http.StatusUnauthorized, "invalid cron token")
		return
	}
	sum, err := s.Cron.RunDue(r.Context())
	if err != nil {
		s.mapError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sum)
}

func (s *Server) cronAuthorized(r *http.Request) bool {
	if s.CronToken == "" {
		return false
	}
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.CronToken)) == 1
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid monitor id")
		return 0, false
	}
	return id, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Log.Warn("write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) mapError(w http.ResponseWriter, err error) {
	var inv ErrInvalidInput
	switch {
	case errors.As(err, &inv):
		s.writeError(w, http.StatusBadRequest, inv.Msg)
	case errors.Is(err, ErrForbidden):
		s.writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, ErrPlanLimit):
		s.writeError(w, http.StatusUnprocessableEntity, "plan limit reached")
	case errors.Is(err, postgres.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "not found")
	default:
		var ce *checkerr.Error
		if errors.As(err, &ce) {
			s.writeError(w, checkStatus(ce.Kind), ce.Error())
			return
		}
		s.Log.Error("internal error", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func checkStatus(k checkerr.Kind) int {
	switch k {
	case checkerr.KindInvalidURL, checkerr.KindUnsupportedScheme:
		return http.StatusBadRequest
	case checkerr.KindBlockedBySite:
		return http.StatusBadGateway
	case checkerr.KindFetchTimeout:
		return http.StatusGatewayTimeout
	case checkerr.KindSizeExceeded:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusBadGateway
	}
}
