package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"njcrashes/internal/csvexport"
	"njcrashes/internal/dedupe"
	"njcrashes/internal/domain"
	"njcrashes/internal/handler"
	"njcrashes/internal/service"
	"njcrashes/mocks"
)

func decodeResult(merge *dedupe.Result) *service.DecodeResult {
	cols := domain.NewColumns([]string{"County Code", "Crash Location"})
	records := []domain.RawRecord{
		domain.NewRawRecord(cols, []string{"01", "Main St"}, 0, 1),
		domain.NewRawRecord(cols, []string{"02", "Elm, St"}, 1, 2),
	}
	return &service.DecodeResult{
		Kind:        domain.KindCrash,
		Year:        2019,
		Era:         domain.Era2017,
		Columns:     cols.Names(),
		Diagnostics: &domain.ParseDiagnostics{TotalRecords: 2, Encoding: "utf-8"},
		Records:     records,
		Merge:       merge,
	}
}

func postDecode(t *testing.T, h *handler.DecodeHandler, file []byte, fields map[string]string, query string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, file, fields)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/api/v1/decode"+query, body)
	c.Request.Header.Set("Content-Type", contentType)
	h.Decode(c)
	return w
}

func TestDecodeHandler_Decode_JSON(t *testing.T) {
	svc := new(mocks.MockDecodeService)
	h := handler.NewDecodeHandler(svc, 1<<20)

	svc.On("Decode", mock.Anything, service.DecodeInput{
		Kind:   domain.KindCrash,
		Year:   2019,
		Data:   []byte("raw"),
		Dedupe: true,
	}).Return(decodeResult(&dedupe.Result{Stats: dedupe.Stats{InputRecords: 2, UniqueKeys: 2}}), nil)

	w := postDecode(t, h, []byte("raw"), map[string]string{"kind": "Accidents", "year": "2019", "dedupe": "true"}, "")

	assert.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.True(t, env.Success)

	var resp struct {
		Kind    string              `json:"kind"`
		Report  string              `json:"report"`
		Records []map[string]string `json:"records"`
		Stats   *dedupe.Stats       `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "crash", resp.Kind)
	assert.Contains(t, resp.Report, "utf-8")
	assert.Len(t, resp.Records, 2)
	assert.Equal(t, "Main St", resp.Records[0]["Crash Location"])
	require.NotNil(t, resp.Stats)
	assert.Equal(t, 2, resp.Stats.UniqueKeys)
	svc.AssertExpectations(t)
}

func TestDecodeHandler_Decode_CSV(t *testing.T) {
	svc := new(mocks.MockDecodeService)
	h := handler.NewDecodeHandler(svc, 0)

	svc.On("Decode", mock.Anything, mock.AnythingOfType("service.DecodeInput")).Return(decodeResult(nil), nil)

	w := postDecode(t, h, []byte("raw"), map[string]string{"kind": "crash", "year": "2019"}, "?format=csv")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Accidents_2019.csv")

	body := w.Body.String()
	require.True(t, strings.HasPrefix(body, string(csvexport.BOM)))
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(body, string(csvexport.BOM))), "\n")
	assert.Equal(t, []string{"County Code,Crash Location", "01,Main St", `02,"Elm, St"`}, lines)
}

func TestDecodeHandler_Decode_BadRequests(t *testing.T) {
	svc := new(mocks.MockDecodeService)
	h := handler.NewDecodeHandler(svc, 0)

	tests := []struct {
		name   string
		file   []byte
		fields map[string]string
		code   string
	}{
		{"unknown kind", []byte("x"), map[string]string{"kind": "bicycle", "year": "2019"}, "UNKNOWN_RECORD_KIND"},
		{"bad year", []byte("x"), map[string]string{"kind": "crash", "year": "last"}, "INVALID_YEAR"},
		{"missing file", nil, map[string]string{"kind": "crash", "year": "2019"}, "MISSING_FILE"},
		{"bad max_records", []byte("x"), map[string]string{"kind": "crash", "year": "2019", "max_records": "ten"}, "INVALID_PARAM"},
		{"negative max_records", []byte("x"), map[string]string{"kind": "crash", "year": "2019", "max_records": "-1"}, "INVALID_PARAM"},
		{"bad dedupe", []byte("x"), map[string]string{"kind": "crash", "year": "2019", "dedupe": "sometimes"}, "INVALID_PARAM"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postDecode(t, h, tt.file, tt.fields, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			env := decodeEnvelope(t, w)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
	svc.AssertNotCalled(t, "Decode", mock.Anything, mock.Anything)
}

func TestDecodeHandler_Decode_TooLarge(t *testing.T) {
	svc := new(mocks.MockDecodeService)
	h := handler.NewDecodeHandler(svc, 64)

	w := postDecode(t, h, []byte(strings.Repeat("x", 1024)), map[string]string{"kind": "crash", "year": "2019"}, "")

	assert.Contains(t, []int{http.StatusRequestEntityTooLarge, http.StatusBadRequest}, w.Code)
	svc.AssertNotCalled(t, "Decode", mock.Anything, mock.Anything)
}

func TestDecodeHandler_Decode_ServiceError(t *testing.T) {
	svc := new(mocks.MockDecodeService)
	h := handler.NewDecodeHandler(svc, 0)

	svc.On("Decode", mock.Anything, mock.Anything).Return(nil, domain.ErrUnsupportedYear)

	w := postDecode(t, h, []byte("x"), map[string]string{"kind": "crash", "year": "1990"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UNSUPPORTED_YEAR", decodeEnvelope(t, w).Error.Code)
}

func TestDecodeHandler_Schema(t *testing.T) {
	svc := new(mocks.MockDecodeService)
	h := handler.NewDecodeHandler(svc, 0)

	s, err := domain.NewSchema(domain.KindVehicle, domain.EraPre2017, []domain.FieldSpec{
		{Name: "County Code", Length: 2},
		{Name: "Make Of Vehicle", Length: 30},
		{Name: "Padding", Length: 2, Synthetic: true},
	})
	require.NoError(t, err)
	svc.On("Schema", domain.KindVehicle, 2012).Return(s, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/api/v1/schemas/vehicle/2012", http.NoBody)
	c.Params = gin.Params{{Key: "kind", Value: "vehicle"}, {Key: "year", Value: "2012"}}
	h.Schema(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp handler.SchemaResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &resp))
	assert.Equal(t, 34, resp.Width)
	require.Len(t, resp.Fields, 3)
	assert.Equal(t, 2, resp.Fields[1].Start)
	assert.Equal(t, 32, resp.Fields[2].Start)
	assert.True(t, resp.Fields[2].Synthetic)
}
