package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"njcrashes/internal/csvexport"
	"njcrashes/internal/dedupe"
	"njcrashes/internal/domain"
	"njcrashes/internal/service"
)

// DecodeHandler decodes uploaded crash files and exposes field layouts.
type DecodeHandler struct {
	decodeService service.DecodeService
	maxUpload     int64
}

// NewDecodeHandler creates a new DecodeHandler. maxUpload caps the request
// body in bytes; zero means no cap.
func NewDecodeHandler(decodeService service.DecodeService, maxUpload int64) *DecodeHandler {
	return &DecodeHandler{decodeService: decodeService, maxUpload: maxUpload}
}

// DecodeResponse is the JSON body of a decode request.
type DecodeResponse struct {
	Kind        domain.RecordKind         `json:"kind"`
	Year        int                       `json:"year"`
	Era         domain.Era                `json:"era"`
	Patches     []string                  `json:"patches"`
	Columns     []string                  `json:"columns"`
	Diagnostics *domain.ParseDiagnostics  `json:"diagnostics"`
	Report      string                    `json:"report"`
	Records     []domain.RawRecord        `json:"records"`
	Stats       *dedupe.Stats             `json:"stats,omitempty"`
	Conflicts   []domain.MergeConflictRow `json:"conflicts,omitempty"`
}

// Decode handles POST /api/v1/decode
// @Summary Decode a fixed-width crash file
// @Description Decode an uploaded NewJersey<year><Label>.txt (or .zip) and optionally reconcile duplicates
// @Tags decode
// @Accept multipart/form-data
// @Produce json,text/csv
// @Param file formData file true "Fixed-width text file or ZIP archive"
// @Param kind formData string true "Record kind (crash, driver, occupant, pedestrian, vehicle)"
// @Param year formData int true "Data year"
// @Param dedupe formData bool false "Reconcile duplicate primary keys"
// @Param max_records formData int false "Stop after this many records"
// @Param format query string false "json (default) or csv"
// @Success 200 {object} APIResponse{data=DecodeResponse}
// @Failure 400 {object} APIResponse "Missing file or invalid kind/year"
// @Failure 413 {object} APIResponse "File too large"
// @Router /decode [post]
func (h *DecodeHandler) Decode(c *gin.Context) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds maximum allowed size")
			return
		}
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	kind, err := domain.ParseRecordKind(c.PostForm("kind"))
	if err != nil {
		HandleError(c, err)
		return
	}
	year, err := strconv.Atoi(c.PostForm("year"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_YEAR", "year must be an integer")
		return
	}
	maxRecords, err := strconv.Atoi(c.DefaultPostForm("max_records", "0"))
	if err != nil || maxRecords < 0 {
		RespondError(c, http.StatusBadRequest, "INVALID_PARAM", "max_records must be a non-negative integer")
		return
	}
	dedupeFlag, err := strconv.ParseBool(c.DefaultPostForm("dedupe", "false"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_PARAM", "dedupe must be a boolean")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		HandleError(c, fmt.Errorf("reading upload: %w", err))
		return
	}

	res, err := h.decodeService.Decode(c.Request.Context(), service.DecodeInput{
		Kind:       kind,
		Year:       year,
		Data:       data,
		MaxRecords: maxRecords,
		Dedupe:     dedupeFlag,
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	if c.Query("format") == "csv" {
		writeCSV(c, csvexport.BuildFilename(kind, year, false), func(w io.Writer) error {
			return csvexport.Table(w, res.Table(), res.Columns)
		})
		return
	}

	resp := DecodeResponse{
		Kind:        res.Kind,
		Year:        res.Year,
		Era:         res.Era,
		Patches:     res.Patches,
		Columns:     res.Columns,
		Diagnostics: res.Diagnostics,
		Report:      res.Diagnostics.Report(),
		Records:     res.Table(),
	}
	if res.Merge != nil {
		resp.Stats = &res.Merge.Stats
		resp.Conflicts = res.Merge.Conflicts
	}
	RespondOK(c, resp)
}

// SchemaField is one column of an adapted layout.
type SchemaField struct {
	Name      string `json:"name"`
	Start     int    `json:"start"`
	Length    int    `json:"length"`
	Slack     int    `json:"slack,omitempty"`
	Synthetic bool   `json:"synthetic,omitempty"`
}

// SchemaResponse describes the adapted layout for a (kind, year).
type SchemaResponse struct {
	Kind    domain.RecordKind `json:"kind"`
	Year    int               `json:"year"`
	Era     domain.Era        `json:"era"`
	Width   int               `json:"width"`
	Patches []string          `json:"patches"`
	Fields  []SchemaField     `json:"fields"`
}

// Schema handles GET /api/v1/schemas/:kind/:year
// @Summary Show a field layout
// @Tags decode
// @Produce json
// @Param kind path string true "Record kind"
// @Param year path int true "Data year"
// @Success 200 {object} APIResponse{data=SchemaResponse}
// @Failure 404 {object} APIResponse "No layout"
// @Router /schemas/{kind}/{year} [get]
func (h *DecodeHandler) Schema(c *gin.Context) {
	kind, err := domain.ParseRecordKind(c.Param("kind"))
	if err != nil {
		HandleError(c, err)
		return
	}
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_YEAR", "year must be an integer")
		return
	}

	s, err := h.decodeService.Schema(kind, year)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, NewSchemaResponse(s, year))
}

// NewSchemaResponse renders s with byte offsets.
func NewSchemaResponse(s *domain.Schema, year int) SchemaResponse {
	resp := SchemaResponse{
		Kind:    s.Kind(),
		Year:    year,
		Era:     s.Era(),
		Width:   s.Width(),
		Patches: s.Patches(),
		Fields:  make([]SchemaField, 0, s.NumFields()),
	}
	start := 0
	for _, f := range s.Fields() {
		resp.Fields = append(resp.Fields, SchemaField{
			Name:      f.Name,
			Start:     start,
			Length:    f.Length,
			Slack:     f.Slack,
			Synthetic: f.Synthetic,
		})
		start += f.Length
	}
	return resp
}

// writeCSV streams a BOM-prefixed CSV attachment.
func writeCSV(c *gin.Context, filename string, write func(io.Writer) error) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Status(http.StatusOK)
	if _, err := c.Writer.Write(csvexport.BOM); err != nil {
		return
	}
	if err := write(c.Writer); err != nil {
		// Headers are already sent; abort the stream.
		_ = c.Error(err)
	}
}
