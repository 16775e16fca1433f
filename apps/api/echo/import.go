package echoapi

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/curriculum"
	"github.com/trezcool/gradebook/core/importer"
)

// maxBulkFiles bounds a bulk upload; the largest year table has fewer subjects.
const maxBulkFiles = 40

// ImportService is implemented by *importer.Service.
type ImportService interface {
	ImportFile(ctx context.Context, req importer.Request) (importer.Outcome, error)
	ImportBatch(ctx context.Context, req importer.BatchRequest) (importer.BatchOutcome, error)
	Options() importer.Options
	Catalog() *curriculum.Catalog
}

var _ ImportService = (*importer.Service)(nil)

type importApi struct {
	svc      ImportService
	validate *validator.Validate
	logger   core.Logger
}

func registerImportAPI(g *echo.Group, svc ImportService, validate *validator.Validate, logger core.Logger) {
	api := importApi{
		svc:      svc,
		validate: validate,
		logger:   logger,
	}
	maxSize := svc.Options().MaxFileSize

	ig := g.Group("/imports")
	// oversized single files still reach the service, which reports them in the outcome
	ig.POST("", api.importFile, uploadLimit(2*maxSize, 1))
	ig.POST("/bulk", api.importBulk, uploadLimit(maxSize, maxBulkFiles))

	g.GET("/catalog/:year", api.catalog)
}

func readUpload(fh *multipart.FileHeader, maxSize int64) (importer.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return importer.Upload{}, errors.Wrap(err, "opening upload")
	}
	defer func() { _ = f.Close() }()

	// one byte past the limit is enough for the service to reject the file
	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return importer.Upload{}, errors.Wrap(err, "reading upload")
	}
	return importer.Upload{Name: fh.Filename, Data: data, Size: fh.Size}, nil
}

// Handlers

func (api *importApi) importFile(ctx echo.Context) error {
	var data ImportForm
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ImportForm")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return errNoFile
		}
		return badUpload(err)
	}
	up, err := readUpload(fh, api.svc.Options().MaxFileSize)
	if err != nil {
		return badUpload(err)
	}

	req, err := data.Request(up)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "kind", Error: err.Error()})
	}
	out, err := api.svc.ImportFile(ctx.Request().Context(), req)
	if err != nil {
		return serviceError(err, "importing file")
	}

	code := http.StatusOK
	if out.Failed() {
		code = http.StatusUnprocessableEntity
	}
	return ctx.JSON(code, ImportResponse{Outcome: out, Summary: importer.FormatOutcome(out, api.svc.Options().ErrorDisplayLimit)})
}

func (api *importApi) importBulk(ctx echo.Context) error {
	var data BulkImportForm
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkImportForm")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		return badUpload(err)
	}
	headers := form.File["files[]"]
	if len(headers) == 0 {
		headers = form.File["files"]
	}
	switch {
	case len(headers) == 0:
		return errNoFiles
	case len(headers) > maxBulkFiles:
		return core.NewValidationError(nil, core.FieldError{Field: "files", Error: "at most " + strconv.Itoa(maxBulkFiles) + " files"})
	}

	uploads := make([]importer.Upload, 0, len(headers))
	for _, fh := range headers {
		up, err := readUpload(fh, api.svc.Options().MaxFileSize)
		if err != nil {
			return badUpload(err)
		}
		uploads = append(uploads, up)
	}

	req, err := data.Request(uploads)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "kind", Error: err.Error()})
	}
	out, err := api.svc.ImportBatch(ctx.Request().Context(), req)
	if err != nil {
		return serviceError(err, "importing files")
	}
	return ctx.JSON(http.StatusOK, BulkImportResponse{BatchOutcome: out, Summary: importer.FormatBatch(out, api.svc.Options().ErrorDisplayLimit)})
}

func (api *importApi) catalog(ctx echo.Context) error {
	year, err := strconv.Atoi(ctx.Param("year"))
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "year", Error: "must be a number"})
	}
	entries, err := api.svc.Catalog().Entries(year)
	if err != nil {
		if errors.Cause(err) == curriculum.ErrUnknownYear {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return errors.Wrap(err, "listing catalog")
	}
	return ctx.JSON(http.StatusOK, entries)
}
