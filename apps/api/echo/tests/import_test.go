package tests

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradebook/core/importer"
	testutil "github.com/trezcool/gradebook/tests"
)

var mathCSV = testutil.CSV(
	"Nro,Alumno,Valoración,Desempeño,Observaciones",
	`1,"ACOSTA, Alma",TEA,MB,Excelente`,
	`2,"ALITTA, Renzo",TEP,B,`,
)

func Test_home(t *testing.T) {
	app, _ := setup(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Gradebook API!", rec.Body.String())
}

func Test_importApi_importFile(t *testing.T) {
	mathFile := upload{field: "file", name: "3º AÑO(12).csv", data: mathCSV}

	tests := []httpTest{
		{
			name:     "Imported",
			fields:   map[string]string{"offering_id": "10", "period": "1"},
			files:    []upload{mathFile},
			wantCode: http.StatusOK,
			want: map[string]interface{}{
				"status":    "ok",
				"processed": 2.0,
				"created":   2.0,
				"summary":   "import completed: 2 records processed, 2 created",
			},
		},
		{
			name:     "Missing fields",
			files:    []upload{mathFile},
			wantCode: http.StatusBadRequest,
			want:     map[string]interface{}{"offering_id": "this field is required", "period": "this field is required"},
		},
		{
			name:     "Invalid kind and period",
			fields:   map[string]string{"offering_id": "10", "period": "2", "kind": "final"},
			files:    []upload{mathFile},
			wantCode: http.StatusBadRequest,
			want: map[string]interface{}{
				"kind":   "must be one of: preliminary, term",
				"period": "must be 1 (first term) or 3 (second term)",
			},
		},
		{
			name:     "No file",
			fields:   map[string]string{"offering_id": "10", "period": "1"},
			wantCode: http.StatusBadRequest,
			want:     map[string]interface{}{"file": "this field is required"},
		},
		{
			name:     "Unknown offering",
			fields:   map[string]string{"offering_id": "999", "period": "1"},
			files:    []upload{mathFile},
			wantCode: http.StatusBadRequest,
			want:     map[string]interface{}{"offering_id": "subject offering not found"},
		},
		{
			name:     "Rejected file",
			fields:   map[string]string{"offering_id": "10", "period": "1"},
			files:    []upload{{field: "file", name: "notas.xlsx", data: mathCSV}},
			wantCode: http.StatusUnprocessableEntity,
			want: map[string]interface{}{
				"status":  "failed",
				"summary": "import failed: notas.xlsx: unsupported file format, use CSV",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := setup(t)
			req, rec := newMultipartRequest(t, "/v1/imports", tt.fields, tt.files)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_importApi_importFile_Term(t *testing.T) {
	app, db := setup(t)
	data := testutil.CSV(
		"Nro,Apellido y Nombre,DNI,Calificación final,Observaciones",
		`1,"ACOSTA, Alma",45111222,8,Aprobó`,
	)
	req, rec := newMultipartRequest(t, "/v1/imports",
		map[string]string{"offering_id": "10", "period": "3", "kind": "term", "overwrite": "true"},
		[]upload{{field: "file", name: "cierre.csv", data: data}},
	)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	grades := db.Grades()
	require.Len(t, grades, 1)
	assert.Equal(t, 8.0, grades[0].Get("calificacion_final"))
	assert.Equal(t, "aprobada", grades[0].Get("estado_final"))
}

func Test_importApi_importBulk(t *testing.T) {
	tests := []httpTest{
		{
			name:   "Imported",
			fields: map[string]string{"course_id": "1", "year": "3", "period": "1"},
			files: []upload{
				{field: "files[]", name: "3º AÑO(12).csv", data: mathCSV},
				{field: "files[]", name: "3º AÑO(1).csv", data: mathCSV},
			},
			wantCode: http.StatusOK,
			want: map[string]interface{}{
				"year":            3.0,
				"files_succeeded": 1.0,
				"files_failed":    1.0,
				"processed":       2.0,
			},
		},
		{
			name:     "Plain files field",
			fields:   map[string]string{"course_id": "1", "year": "3", "period": "1"},
			files:    []upload{{field: "files", name: "3º AÑO(12).csv", data: mathCSV}},
			wantCode: http.StatusOK,
			want:     map[string]interface{}{"files_succeeded": 1.0},
		},
		{
			name:     "No files",
			fields:   map[string]string{"course_id": "1", "year": "3", "period": "1"},
			wantCode: http.StatusBadRequest,
			want:     map[string]interface{}{"files": "this field is required"},
		},
		{
			name:     "Missing course",
			fields:   map[string]string{"year": "3", "period": "1"},
			files:    []upload{{field: "files[]", name: "3º AÑO(12).csv", data: mathCSV}},
			wantCode: http.StatusBadRequest,
			want:     map[string]interface{}{"course_id": "this field is required"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := setup(t)
			req, rec := newMultipartRequest(t, "/v1/imports/bulk", tt.fields, tt.files)
			app.ServeHTTP(rec, req)
			got := checkCodeAndData(t, tt, rec)
			if tt.wantCode == http.StatusOK {
				summary, _ := got["summary"].(string)
				assert.True(t, strings.HasPrefix(summary, "BULK IMPORT COMPLETED - YEAR 3"), summary)
			}
		})
	}

	t.Run("Year out of range", func(t *testing.T) {
		app, _ := setup(t)
		req, rec := newMultipartRequest(t, "/v1/imports/bulk",
			map[string]string{"course_id": "1", "year": "9", "period": "1"},
			[]upload{{field: "files[]", name: "3º AÑO(12).csv", data: mathCSV}},
		)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, unmarshalObj(t, rec.Body.Bytes()), "year")
	})
}

func Test_importApi_catalog(t *testing.T) {
	app, _ := setup(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/catalog/3", nil)
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []struct {
		Ordinal int    `json:"ordinal"`
		Subject string `json:"subject"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.NotEmpty(t, entries)
	assert.Equal(t, 1, entries[0].Ordinal)
	assert.Equal(t, "BIOLOGÍA", entries[0].Subject)

	for path, code := range map[string]int{"/v1/catalog/9": http.StatusNotFound, "/v1/catalog/x": http.StatusBadRequest} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, req)
		assert.Equal(t, code, rec.Code, path)
	}

	var herr httpErr
	req = httptest.NewRequest(http.MethodGet, "/v1/catalog/9", nil)
	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &herr))
	assert.Contains(t, herr.Error, "no subject table")
}

func Test_importApi_importFile_TooLarge(t *testing.T) {
	opts := importer.DefaultOptions()
	opts.MaxFileSize = 1024
	app, db := setupWithOptions(t, opts)

	req, rec := newMultipartRequest(t, "/v1/imports",
		map[string]string{"offering_id": "10", "period": "1"},
		[]upload{{field: "file", name: "big.csv", data: bytes.Repeat([]byte("x"), 1500)}},
	)
	app.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	got := unmarshalObj(t, rec.Body.Bytes())
	assert.Equal(t, "failed", got["status"])
	assert.Contains(t, got["summary"], "big.csv")
	assert.Contains(t, got["summary"], "file is too large")
	assert.Empty(t, db.Grades())
}

func Test_importApi_importBulk_NotMultipart(t *testing.T) {
	app, _ := setup(t)
	form := url.Values{"course_id": {"1"}, "year": {"3"}, "period": {"1"}}
	req := httptest.NewRequest(http.MethodPost, "/v1/imports/bulk", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	var herr httpErr
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &herr))
	assert.Equal(t, "could not read the uploaded file", herr.Error)
}

func Test_importApi_DatabaseLost(t *testing.T) {
	app := newServer(brokenService{err: errors.Wrap(sql.ErrConnDone, "loading subject offering")})

	req, rec := newMultipartRequest(t, "/v1/imports",
		map[string]string{"offering_id": "10", "period": "1"},
		[]upload{{field: "file", name: "3º AÑO(12).csv", data: mathCSV}},
	)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	select {
	case <-app.ShutdownSignal():
	case <-time.After(time.Second):
		t.Fatal("server did not ask to shut down")
	}
}

func Test_importApi_ServiceError(t *testing.T) {
	app := newServer(brokenService{err: errors.New("boom")})

	req, rec := newMultipartRequest(t, "/v1/imports",
		map[string]string{"offering_id": "10", "period": "1"},
		[]upload{{field: "file", name: "3º AÑO(12).csv", data: mathCSV}},
	)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	select {
	case sig := <-app.ShutdownSignal():
		t.Fatalf("unexpected shutdown signal %v", sig)
	default:
	}
}
