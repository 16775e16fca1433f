package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/gradebook/apps/api/echo"
	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/curriculum"
	"github.com/trezcool/gradebook/core/importer"
	inmemdb "github.com/trezcool/gradebook/storage/database/inmem"
	testutil "github.com/trezcool/gradebook/tests"
)

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	fields   map[string]string
	files    []upload
	wantCode int
	want     map[string]interface{} // subset of the JSON response
}

type upload struct {
	field string
	name  string
	data  []byte
}

func setup(t *testing.T) (echoapi.Server, *inmemdb.DB) {
	return setupWithOptions(t, importer.DefaultOptions())
}

func setupWithOptions(t *testing.T, opts importer.Options) (echoapi.Server, *inmemdb.DB) {
	t.Helper()
	db := testutil.NewInmemDB(t)
	svc, err := importer.NewService(inmemdb.NewGateway(db), curriculum.DefaultCatalog(), core.NopLogger{}, opts)
	if err != nil {
		t.Fatalf("importer.NewService(): %v", err)
	}
	return newServer(svc), db
}

func newServer(svc echoapi.ImportService) echoapi.Server {
	conf := &core.Config{AppName: "Gradebook", TestMode: true}
	conf.Server.DisableReqLogs = true

	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)

	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     core.NopLogger{},
		ImportSvc:  svc,
		Validate:   validate,
		Translator: translator,
	})
}

// brokenService fails every import with `err`.
type brokenService struct {
	err error
}

func (s brokenService) ImportFile(context.Context, importer.Request) (importer.Outcome, error) {
	return importer.Outcome{}, s.err
}

func (s brokenService) ImportBatch(context.Context, importer.BatchRequest) (importer.BatchOutcome, error) {
	return importer.BatchOutcome{}, s.err
}

func (brokenService) Options() importer.Options {
	return importer.DefaultOptions()
}

func (brokenService) Catalog() *curriculum.Catalog {
	return curriculum.DefaultCatalog()
}

func newMultipartRequest(t *testing.T, path string, fields map[string]string, files []upload) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField(): %v", err)
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatalf("CreateFormFile(): %v", err)
		}
		if _, err = part.Write(f.data); err != nil {
			t.Fatalf("part.Write(): %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("multipart.Close(): %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req, httptest.NewRecorder()
}

func unmarshalObj(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	var obj map[string]interface{}
	if err := json.Unmarshal(data, &obj); err != nil {
		t.Fatalf("json.Unmarshal(%s): %v", data, err)
	}
	return obj
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	got := unmarshalObj(t, rec.Body.Bytes())
	for k, v := range tt.want {
		if got[k] != v {
			t.Errorf("failed! data[%q] = %v; want %v", k, got[k], v)
		}
	}
	return got
}
