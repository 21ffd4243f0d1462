package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"lendledger/internal/audit"
	importerapp "lendledger/internal/importer/application"
	importer "lendledger/internal/importer/domain"
	"lendledger/internal/importer/interfaces/excel"
	ledger "lendledger/internal/ledger/domain"
)

const maxUploadBytes = 16 << 20

// Handler serves spreadsheet import uploads. The engine only ever sees the
// row source; all file handling stays here.
type Handler struct {
	service     *importerapp.ImportService
	policies    map[ledger.Kind]importer.Policy
	auditLogger audit.Logger
}

// NewHandler constructs a Handler.
func NewHandler(service *importerapp.ImportService, policies map[ledger.Kind]importer.Policy, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("import handler: nil service")
	}
	if len(policies) == 0 {
		return nil, errors.New("import handler: no policies")
	}
	return &Handler{service: service, policies: policies, auditLogger: auditLogger}, nil
}

// ServeHTTP handles POST /api/v1/ledger/{kind}/import.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/ledger/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "import" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	kind := ledger.Kind(parts[0])
	policy, ok := h.policies[kind]
	if !ok {
		http.Error(w, "unknown kind", http.StatusNotFound)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	source, err := excel.NewRowSource(file)
	if err != nil {
		http.Error(w, "file could not be read as a workbook", http.StatusBadRequest)
		return
	}

	report, err := h.service.RunImport(r.Context(), policy, source)
	if err != nil {
		var headerErr *importer.HeaderError
		var boundsErr *importer.BoundsError
		if errors.As(err, &headerErr) || errors.As(err, &boundsErr) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
	h.logAudit(r, kind, report)
}

func (h *Handler) logAudit(r *http.Request, kind ledger.Kind, report importer.Report) {
	if h.auditLogger == nil {
		return
	}
	meta, _ := json.Marshal(map[string]int{
		"success_count": report.SuccessCount,
		"error_count":   report.ErrorCount,
	})
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		Actor:     r.Header.Get("X-Actor"),
		Action:    "ledger.import",
		Kind:      string(kind),
		Metadata:  meta,
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
}
