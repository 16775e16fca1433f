package echoapi

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/importer"
)

type (
	ImportForm struct {
		OfferingID int    `form:"offering_id" validate:"required,gt=0"`
		Kind       string `form:"kind" validate:"omitempty,importkind"`
		Period     int    `form:"period" validate:"required,period"`
		Overwrite  bool   `form:"overwrite"`
	}

	BulkImportForm struct {
		CourseID int    `form:"course_id" validate:"required,gt=0"`
		Year     int    `form:"year" validate:"required,min=3,max=7"`
		Kind     string `form:"kind" validate:"omitempty,importkind"`
		Period   int    `form:"period" validate:"required,period"`
	}

	ImportResponse struct {
		importer.Outcome
		Summary string `json:"summary"`
	}

	BulkImportResponse struct {
		importer.BatchOutcome
		Summary string `json:"summary"`
	}
)

func (f ImportForm) Validate(validate *validator.Validate) error {
	return validate.Struct(f)
}

func (f ImportForm) Request(up importer.Upload) (importer.Request, error) {
	kind, err := grade.ParseKind(f.Kind)
	if err != nil {
		return importer.Request{}, err
	}
	return importer.Request{
		Upload:     up,
		OfferingID: f.OfferingID,
		Kind:       kind,
		Period:     grade.Period(f.Period),
		Overwrite:  f.Overwrite,
	}, nil
}

func (f BulkImportForm) Validate(validate *validator.Validate) error {
	return validate.Struct(f)
}

func (f BulkImportForm) Request(uploads []importer.Upload) (importer.BatchRequest, error) {
	kind, err := grade.ParseKind(f.Kind)
	if err != nil {
		return importer.BatchRequest{}, err
	}
	return importer.BatchRequest{
		Uploads:  uploads,
		CourseID: f.CourseID,
		Year:     f.Year,
		Kind:     kind,
		Period:   grade.Period(f.Period),
	}, nil
}
