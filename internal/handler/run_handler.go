package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"njcrashes/internal/csvexport"
	"njcrashes/internal/domain"
	"njcrashes/internal/port"
	"njcrashes/internal/service"
)

// RunHandler triggers ingest runs and serves the run ledger.
type RunHandler struct {
	ingestService service.IngestService
}

// NewRunHandler creates a new RunHandler.
func NewRunHandler(ingestService service.IngestService) *RunHandler {
	return &RunHandler{ingestService: ingestService}
}

// CreateRunRequest is the body of POST /api/v1/runs.
type CreateRunRequest struct {
	Kind domain.RecordKind `json:"kind" binding:"required"`
	Year int               `json:"year" binding:"required"`
}

// Create handles POST /api/v1/runs
// @Summary Ingest one (kind, year) file
// @Description Fetch the raw file from object storage, decode, reconcile and export it
// @Tags runs
// @Accept json
// @Produce json
// @Param body body CreateRunRequest true "Record kind and year"
// @Success 201 {object} APIResponse{data=domain.IngestRun} "Run finished (check status)"
// @Failure 400 {object} APIResponse "Invalid kind or year"
// @Router /runs [post]
func (h *RunHandler) Create(c *gin.Context) {
	var req CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	run, err := h.ingestService.IngestFile(c.Request.Context(), service.IngestRequest{Kind: req.Kind, Year: req.Year})
	if err != nil && (run == nil || domain.IsConfigurationError(err)) {
		HandleError(c, err)
		return
	}
	RespondCreated(c, run)
}

// List handles GET /api/v1/runs
// @Summary List ingest runs
// @Tags runs
// @Produce json
// @Param kind query string false "Filter by record kind"
// @Param year query int false "Filter by year"
// @Param status query string false "Filter by status (running, completed, failed)"
// @Param offset query int false "Offset for pagination" default(0)
// @Param limit query int false "Limit for pagination (max 100)" default(20)
// @Success 200 {object} APIResponse{data=[]domain.IngestRun,meta=PagMeta}
// @Failure 503 {object} APIResponse "No database configured"
// @Router /runs [get]
func (h *RunHandler) List(c *gin.Context) {
	var filter port.IngestRunFilter
	if k := c.Query("kind"); k != "" {
		kind, err := domain.ParseRecordKind(k)
		if err != nil {
			HandleError(c, err)
			return
		}
		filter.Kind = kind.String()
	}
	if y := c.Query("year"); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_YEAR", "year must be an integer")
			return
		}
		filter.Year = year
	}
	filter.Status = domain.IngestStatus(c.Query("status"))

	offset, limit := parsePagination(c)
	runs, total, err := h.ingestService.ListRuns(c.Request.Context(), filter, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, runs, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetByID handles GET /api/v1/runs/:id
// @Summary Get an ingest run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} APIResponse{data=domain.IngestRun}
// @Failure 404 {object} APIResponse "Run not found"
// @Router /runs/{id} [get]
func (h *RunHandler) GetByID(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}
	run, err := h.ingestService.GetRun(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, run)
}

// Conflicts handles GET /api/v1/runs/:id/conflicts
// @Summary List unresolved merge rows of a run
// @Tags runs
// @Produce json,text/csv
// @Param id path string true "Run ID"
// @Param format query string false "json (default) or csv"
// @Param offset query int false "Offset for pagination" default(0)
// @Param limit query int false "Limit for pagination (max 100)" default(20)
// @Success 200 {object} APIResponse{data=[]domain.MergeConflictRow,meta=PagMeta}
// @Failure 404 {object} APIResponse "Run not found"
// @Router /runs/{id}/conflicts [get]
func (h *RunHandler) Conflicts(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}
	offset, limit := parsePagination(c)
	rows, total, err := h.ingestService.ListConflicts(c.Request.Context(), id, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}

	if c.Query("format") == "csv" {
		writeCSV(c, csvexport.SanitizeFilename("conflicts_"+id.String())+".csv", func(w io.Writer) error {
			return csvexport.Conflicts(w, rows)
		})
		return
	}
	RespondPaginated(c, rows, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// Output handles GET /api/v1/runs/:id/output
// @Summary Get a download link for a run's exported table
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Param conflicts query bool false "Link the conflict side-table instead"
// @Success 200 {object} APIResponse{data=map[string]string}
// @Failure 404 {object} APIResponse "Run or output not found"
// @Router /runs/{id}/output [get]
func (h *RunHandler) Output(c *gin.Context) {
	id, ok := parseRunID(c)
	if !ok {
		return
	}
	run, err := h.ingestService.GetRun(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	key := run.OutputKey
	if conflicts, _ := strconv.ParseBool(c.Query("conflicts")); conflicts {
		key = run.ConflictsKey
	}
	url, err := h.ingestService.OutputURL(c.Request.Context(), key)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"key": key, "url": url})
}

func parseRunID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid run ID")
		return uuid.Nil, false
	}
	return id, true
}
