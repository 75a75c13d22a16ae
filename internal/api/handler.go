package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/fundweb/fundsync/internal/domain"
	"github.com/fundweb/fundsync/internal/export"
	"github.com/fundweb/fundsync/internal/store"
)

// Handler provides HTTP endpoints over the fund store.
type Handler struct {
	funds *store.Store
}

// NewHandler creates a new API handler.
func NewHandler(funds *store.Store) *Handler {
	return &Handler{funds: funds}
}

type listResponse struct {
	Funds   domain.FundSet `json:"funds"`
	Status  string         `json:"status"`
	Loading bool           `json:"loading"`
	Error   string         `json:"error,omitempty"`
}

// ListFunds handles GET /api/v1/funds. Supports ?tags=a,b (AND),
// ?q=text (case-insensitive substring) and ?manager=name filters.
func (h *Handler) ListFunds(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var funds domain.FundSet
	if manager := q.Get("manager"); manager != "" {
		funds = h.funds.ByManager(manager)
	} else {
		funds = h.funds.Filter(parseTags(q.Get("tags")), q.Get("q"))
	}

	writeJSON(w, http.StatusOK, listResponse{
		Funds:   funds,
		Status:  string(h.funds.Status()),
		Loading: h.funds.Loading(),
		Error:   h.funds.Err(),
	})
}

// GetFund handles GET /api/v1/funds/{id}.
func (h *Handler) GetFund(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	fund, ok := h.funds.ByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, "fund not found")
		return
	}
	writeJSON(w, http.StatusOK, fund)
}

// ExportFunds handles GET /api/v1/funds/export, streaming the current
// directory as an xlsx workbook.
func (h *Handler) ExportFunds(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="funds-%s.xlsx"`, time.Now().UTC().Format("2006-01-02")))

	if err := export.WriteXLSX(w, h.funds.Funds()); err != nil {
		slog.Error("failed to write xlsx export", "error", err)
	}
}

// Refresh handles POST /api/v1/refresh, the manual refetch escape hatch.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.funds.Refetch(r.Context())
	writeJSON(w, http.StatusOK, listResponse{
		Funds:  h.funds.Funds(),
		Status: string(h.funds.Status()),
		Error:  h.funds.Err(),
	})
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"freshness": string(h.funds.Status()),
	})
}

func parseTags(raw string) []domain.Tag {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	return lo.FilterMap(parts, func(p string, _ int) (domain.Tag, bool) {
		p = strings.TrimSpace(p)
		return domain.Tag(p), p != ""
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
