package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"lendledger/internal/audit"
	ledgerapp "lendledger/internal/ledger/application"
	ledger "lendledger/internal/ledger/domain"
	"lendledger/internal/ledger/interfaces"
	"lendledger/internal/observability/metrics"
)

// Handler serves ledger record endpoints:
//
//	GET  /api/v1/ledger/{kind}/records
//	POST /api/v1/ledger/{kind}/records
//	GET  /api/v1/ledger/{kind}/records/{id}
//	PUT  /api/v1/ledger/{kind}/records/{id}
//	GET  /api/v1/ledger/{kind}/records/{id}/history
//	GET  /api/v1/ledger/{kind}/export.xlsx
//	GET  /api/v1/ledger/{kind}/export.pdf
type Handler struct {
	service     *ledgerapp.RecordService
	auditLogger audit.Logger
}

// NewHandler constructs a Handler.
func NewHandler(service *ledgerapp.RecordService, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("ledger handler: nil service")
	}
	return &Handler{service: service, auditLogger: auditLogger}, nil
}

// ServeHTTP routes ledger requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/ledger/")
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	kind := ledger.Kind(parts[0])
	if !kind.IsValid() {
		http.Error(w, "unknown kind", http.StatusNotFound)
		return
	}

	switch {
	case len(parts) == 2 && parts[1] == "records" && r.Method == http.MethodGet:
		h.handleList(w, r, kind)
	case len(parts) == 2 && parts[1] == "records" && r.Method == http.MethodPost:
		h.handleCreate(w, r, kind)
	case len(parts) == 3 && parts[1] == "records" && r.Method == http.MethodGet:
		h.handleGet(w, r, kind, parts[2])
	case len(parts) == 3 && parts[1] == "records" && r.Method == http.MethodPut:
		h.handleUpdate(w, r, kind, parts[2])
	case len(parts) == 4 && parts[1] == "records" && parts[3] == "history" && r.Method == http.MethodGet:
		h.handleHistory(w, r, parts[2])
	case len(parts) == 2 && parts[1] == "export.xlsx" && r.Method == http.MethodGet:
		h.handleExport(w, r, kind, "xlsx")
	case len(parts) == 2 && parts[1] == "export.pdf" && r.Method == http.MethodGet:
		h.handleExport(w, r, kind, "pdf")
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request, kind ledger.Kind) {
	records, err := h.service.List(r.Context(), kind)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, records)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request, kind ledger.Kind) {
	var req struct {
		ManagementNumber string            `json:"management_number"`
		Fields           map[string]string `json:"fields"`
		HolderCode       string            `json:"holder_code"`
		LocationCode     string            `json:"location_code"`
		LendDate         string            `json:"lend_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	record := &ledger.Record{
		Kind:             kind,
		ManagementNumber: req.ManagementNumber,
		Fields:           req.Fields,
		Assignment: ledger.Assignment{
			HolderCode:   req.HolderCode,
			LocationCode: req.LocationCode,
			LendDate:     req.LendDate,
		},
	}
	if err := h.service.Create(r.Context(), record); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ledger.ErrDuplicateKey) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, record)
	h.logAudit(r, kind, "ledger.record.create", record.ID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, kind ledger.Kind, id string) {
	record, err := h.service.Get(r.Context(), kind, id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if record == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, record)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request, kind ledger.Kind, id string) {
	var patch ledger.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	record, err := h.service.UpdateWithHistory(r.Context(), kind, id, patch)
	if err != nil {
		if errors.Is(err, ledger.ErrRecordNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, record)
	h.logAudit(r, kind, "ledger.record.update", id)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request, deviceID string) {
	entries, err := h.service.History(r.Context(), deviceID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, entries)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request, kind ledger.Kind, format string) {
	start := time.Now()
	records, err := h.service.List(r.Context(), kind)
	if err != nil {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(start))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var payload []byte
	var contentType string
	switch format {
	case "xlsx":
		payload, err = interfaces.BuildLedgerXLSX(kind, records)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "pdf":
		payload, err = interfaces.BuildLedgerPDF(kind, records)
		contentType = "application/pdf"
	}
	if err != nil {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(start))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	metrics.ObserveExport(format, metrics.ResultSuccess, time.Since(start))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="ledger_`+string(kind)+`.`+format+`"`)
	_, _ = w.Write(payload)
}

func (h *Handler) logAudit(r *http.Request, kind ledger.Kind, action, resourceID string) {
	if h.auditLogger == nil {
		return
	}
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		Actor:      r.Header.Get("X-Actor"),
		Action:     action,
		Kind:       string(kind),
		ResourceID: resourceID,
		IP:         r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
