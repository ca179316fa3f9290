package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/roofix-au/siteserver/internal/analytics"
	"github.com/roofix-au/siteserver/internal/mailer"
	"github.com/roofix-au/siteserver/internal/store"
)

const (
	actionContactForm = "contact_form"
	actionConversion  = "conversion"
)

func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	records := s.cache.GetCollection(r.Context(), r.PathValue("name"))
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

// handlePage hands back the stored document or an explicit null; the
// renderer substitutes its compiled-in copy when there is no override.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.cache.GetSingleton(r.Context(), r.PathValue("key"))
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"document": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"document": doc})
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow(actionContactForm, clientIP(r), s.cfg.Limits.ContactForm) {
		http.Error(w, "too many submissions, try again shortly", http.StatusTooManyRequests)
		return
	}

	var lead mailer.Lead
	if err := json.NewDecoder(r.Body).Decode(&lead); err != nil {
		http.Error(w, "malformed submission", http.StatusBadRequest)
		return
	}
	if lead.Name == "" || lead.Email == "" || lead.Message == "" {
		http.Error(w, "name, email and message are required", http.StatusBadRequest)
		return
	}

	if err := s.sender.SendLead(r.Context(), lead); err != nil {
		s.logger.Error("lead mail failed", "error", err)
		http.Error(w, "could not deliver your enquiry", http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleConversion(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow(actionConversion, clientIP(r), s.cfg.Limits.Conversion) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
		return
	}

	var event struct {
		Type string `json:"type"`
		Page string `json:"page"`
	}
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil || event.Type == "" {
		http.Error(w, "malformed event", http.StatusBadRequest)
		return
	}

	s.logger.Info("conversion", "type", event.Type, "page", event.Page, "ip", clientIP(r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(q) < 3 {
		writeJSON(w, http.StatusOK, map[string]any{"suggestions": []any{}})
		return
	}

	suggestions, err := s.suggest.Suggest(r.Context(), q)
	if err != nil {
		s.logger.Error("autocomplete failed", "error", err)
		http.Error(w, "address lookup unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

// Admin reads bypass the cache: an editor looking at a document needs
// the store's current truth, and store failures must be visible here,
// unlike on the public path.
func (s *Server) handleAdminGetPage(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Document(r.Context(), r.PathValue("key"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "no such document"})
	case err != nil:
		s.logger.Error("admin page read failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": "content store unavailable"})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"document": doc})
	}
}

func (s *Server) handleAdminPutPage(w http.ResponseWriter, r *http.Request) {
	s.putAndInvalidate(w, r, r.PathValue("key"))
}

func (s *Server) handleAdminPutDocument(w http.ResponseWriter, r *http.Request) {
	s.putAndInvalidate(w, r, r.PathValue("id"))
}

func (s *Server) putAndInvalidate(w http.ResponseWriter, r *http.Request, id string) {
	var doc store.Record
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "malformed document"})
		return
	}

	if err := s.store.PutDocument(r.Context(), id, doc); err != nil {
		s.logger.Error("admin write failed", "document", id, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": "content store unavailable"})
		return
	}

	// Invalidation must land before the editor sees success, or a
	// refresh straight after saving would show the pre-save copy.
	s.cache.InvalidateAll()
	w.WriteHeader(http.StatusNoContent)
}

// handleAdminReport runs a batched metric query for the dashboard. The
// property id comes from configuration, never from the request.
func (s *Server) handleAdminReport(w http.ResponseWriter, r *http.Request) {
	var q analytics.ReportQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "malformed report query"})
		return
	}
	if q.StartDate == "" || q.EndDate == "" || len(q.Metrics) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "start_date, end_date and metrics are required"})
		return
	}
	q.PropertyID = s.cfg.Analytics.PropertyID

	rows, err := s.reporter.RunReport(r.Context(), q)
	if err != nil {
		s.logger.Error("report query failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": "reporting api unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (s *Server) handleAdminRealtime(w http.ResponseWriter, r *http.Request) {
	visitors, live := s.realtime.Visitors(r.Context(), s.cfg.Analytics.PropertyID)
	writeJSON(w, http.StatusOK, map[string]any{"active_visitors": visitors, "live": live})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
