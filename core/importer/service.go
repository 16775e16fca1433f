package importer

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/curriculum"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/student"
)

const (
	DefaultMaxFileSize = 10 << 20
	DefaultMaxRows     = 5000
	DefaultFileTimeout = 2 * time.Minute
)

type (
	Options struct {
		MaxFileSize        int64
		MaxRows            int
		FileTimeout        time.Duration
		MatchThreshold     float64
		ErrorDisplayLimit  int
		DefaultPerformance string
	}

	// Upload is one uploaded artifact.
	Upload struct {
		Name string
		Data []byte
		Size int64 // declared size; len(Data) when 0
	}

	// Request imports one file into a known subject offering.
	Request struct {
		Upload     Upload
		OfferingID int
		Kind       grade.Kind
		Period     grade.Period
		// Overwrite is advisory: existing grades are always updated.
		Overwrite bool
	}

	// BatchRequest imports one file per subject of a course; each file name carries the subject number.
	BatchRequest struct {
		Uploads  []Upload
		CourseID int
		Year     int
		Kind     grade.Kind
		Period   grade.Period
	}

	Service struct {
		gw        Gateway
		catalog   *curriculum.Catalog
		log       core.Logger
		opts      Options
		locker    *Locker
		extractor Extractor
	}

	target struct {
		offeringID int
		cycle      grade.Cycle
		kind       grade.Kind
		period     grade.Period
		overwrite  bool
	}
)

// OptionsFromConfig maps the import configuration.
func OptionsFromConfig(conf core.ImportConfig) Options {
	return Options{
		MaxFileSize:        conf.MaxFileSize,
		MaxRows:            conf.MaxRows,
		FileTimeout:        conf.FileTimeout,
		MatchThreshold:     conf.MatchThreshold,
		ErrorDisplayLimit:  conf.ErrorDisplayLimit,
		DefaultPerformance: conf.DefaultPerformance,
	}
}

// DefaultOptions keeps the legacy behavior, including the "Bueno" performance default.
func DefaultOptions() Options {
	return Options{
		MaxFileSize:        DefaultMaxFileSize,
		MaxRows:            DefaultMaxRows,
		FileTimeout:        DefaultFileTimeout,
		MatchThreshold:     student.DefaultThreshold,
		ErrorDisplayLimit:  DefaultErrorDisplayLimit,
		DefaultPerformance: DefaultPerformance,
	}
}

func NewService(gw Gateway, catalog *curriculum.Catalog, log core.Logger, opts Options) (*Service, error) {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(gw, "gw"),
		vala.IsNotNil(catalog, "catalog"),
	).Check(); err != nil {
		return nil, errors.Wrap(err, "importer.NewService")
	}
	// loggers are often plain struct values, which vala cannot check
	if log == nil {
		return nil, errors.New("importer.NewService: Parameter was nil: log")
	}

	def := DefaultOptions()
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = def.MaxFileSize
	}
	if opts.MaxRows <= 0 {
		opts.MaxRows = def.MaxRows
	}
	if opts.FileTimeout <= 0 {
		opts.FileTimeout = def.FileTimeout
	}
	if opts.MatchThreshold <= 0 {
		opts.MatchThreshold = def.MatchThreshold
	}
	if opts.ErrorDisplayLimit <= 0 {
		opts.ErrorDisplayLimit = def.ErrorDisplayLimit
	}

	return &Service{
		gw:        gw,
		catalog:   catalog,
		log:       log,
		opts:      opts,
		locker:    &Locker{},
		extractor: Extractor{DefaultPerformance: opts.DefaultPerformance},
	}, nil
}

func (svc *Service) Options() Options {
	return svc.opts
}

func (svc *Service) Catalog() *curriculum.Catalog {
	return svc.catalog
}

func validateTarget(kind grade.Kind, period grade.Period) []core.FieldError {
	var fields []core.FieldError
	if kind != grade.KindPreliminary && kind != grade.KindTerm {
		fields = append(fields, core.FieldError{Field: "kind", Error: "must be one of: preliminary, term"})
	}
	if !period.Valid() {
		fields = append(fields, core.FieldError{Field: "period", Error: "must be 1 (first term) or 3 (second term)"})
	}
	return fields
}

// ImportFile imports one file into `req.OfferingID`.
// The error is reserved for invalid requests; file and row problems are reported in the Outcome.
func (svc *Service) ImportFile(ctx context.Context, req Request) (Outcome, error) {
	fields := validateTarget(req.Kind, req.Period)
	if req.OfferingID <= 0 {
		fields = append(fields, core.FieldError{Field: "offering_id", Error: "this field is required"})
	}
	if len(fields) > 0 {
		return Outcome{}, core.NewValidationError(errors.New("invalid import request"), fields...)
	}

	offering, err := svc.gw.GetOffering(ctx, req.OfferingID)
	if err != nil {
		if errors.Cause(err) == curriculum.ErrOfferingNotFound {
			return Outcome{}, core.NewValidationError(err, core.FieldError{Field: "offering_id", Error: err.Error()})
		}
		return Outcome{}, errors.Wrap(err, "loading subject offering")
	}

	out := newOutcome(uuid.NewString(), filepath.Base(req.Upload.Name))
	out.Subject = offering.SubjectName
	out.OfferingID = offering.ID

	cycle, err := svc.gw.GetActiveCycle(ctx)
	if err != nil {
		out.fail(&PersistenceError{Op: "loading active cycle", Err: err})
		return out, nil
	}

	tgt := target{offeringID: offering.ID, cycle: cycle, kind: req.Kind, period: req.Period, overwrite: req.Overwrite}
	svc.importFile(ctx, req.Upload, tgt, &out)
	return out, nil
}

// ImportBatch imports every upload in order. A failing file never stops the others.
// The error is reserved for invalid requests and for failures to load the course's reference data.
func (svc *Service) ImportBatch(ctx context.Context, req BatchRequest) (BatchOutcome, error) {
	fields := validateTarget(req.Kind, req.Period)
	if req.CourseID <= 0 {
		fields = append(fields, core.FieldError{Field: "course_id", Error: "this field is required"})
	}
	if req.Year < curriculum.MinYear || req.Year > curriculum.MaxYear {
		fields = append(fields, core.FieldError{Field: "year", Error: "must be between 3 and 7"})
	}
	if len(req.Uploads) == 0 {
		fields = append(fields, core.FieldError{Field: "files", Error: "no files received"})
	}
	if len(fields) > 0 {
		return BatchOutcome{}, core.NewValidationError(errors.New("invalid bulk import request"), fields...)
	}

	offerings, err := svc.gw.ListCourseOfferings(ctx, req.CourseID)
	if err != nil {
		return BatchOutcome{}, errors.Wrap(err, "loading course offerings")
	}
	resolver, err := curriculum.NewResolver(svc.catalog, req.Year, offerings)
	if err != nil {
		if errors.Cause(err) == curriculum.ErrUnknownYear {
			return BatchOutcome{}, core.NewValidationError(err, core.FieldError{Field: "year", Error: err.Error()})
		}
		return BatchOutcome{}, err
	}
	cycle, err := svc.gw.GetActiveCycle(ctx)
	if err != nil {
		return BatchOutcome{}, errors.Wrap(err, "loading active cycle")
	}

	batch := BatchOutcome{ID: uuid.NewString(), CourseID: req.CourseID, Year: req.Year}
	for _, up := range req.Uploads {
		out := newOutcome(uuid.NewString(), filepath.Base(up.Name))

		ordinal, err := ParseOrdinal(up.Name)
		if err != nil {
			out.fail(err)
			batch.add(out)
			continue
		}
		binding, err := resolver.Resolve(ordinal)
		if err != nil {
			out.Subject = binding.SubjectName
			out.fail(&MappingError{Name: out.FileName, Ordinal: ordinal, Subject: binding.SubjectName, Err: errors.Cause(err)})
			batch.add(out)
			continue
		}
		out.Binding = &binding
		out.Subject = binding.SubjectName
		out.OfferingID = binding.OfferingID

		tgt := target{offeringID: binding.OfferingID, cycle: cycle, kind: req.Kind, period: req.Period, overwrite: true}
		svc.importFile(ctx, up, tgt, &out)
		batch.add(out)
	}

	svc.log.Info("bulk import completed", map[string]interface{}{
		"batch":     batch.ID,
		"course":    batch.CourseID,
		"year":      batch.Year,
		"succeeded": batch.FilesSucceeded,
		"failed":    batch.FilesFailed,
		"processed": batch.Processed,
		"skipped":   batch.Skipped,
	})
	return batch, nil
}

// importFile runs the single-file pipeline and fills `out`.
func (svc *Service) importFile(ctx context.Context, up Upload, tgt target, out *Outcome) {
	start := time.Now()
	defer func() { out.Duration = time.Since(start) }()

	ctx, cancel := context.WithTimeout(ctx, svc.opts.FileTimeout)
	defer cancel()

	records, err := svc.readUpload(up)
	if err != nil {
		out.fail(err)
		return
	}

	cm, err := InferStructure(cellsOf(records))
	if err == nil {
		err = checkRequiredColumns(cm, tgt.kind)
	}
	if err != nil {
		out.fail(err)
		return
	}
	out.Structure = &cm

	rows := make([]ParsedRow, 0, len(records))
	for _, rec := range records[cm.DataStart:] {
		pr, err := svc.extractor.Extract(rec.Cells, cm, rec.Line)
		if err != nil {
			out.addError(err)
			continue
		}
		rows = append(rows, pr)
	}
	if len(rows) == 0 && out.ErrorCount == 0 {
		out.fail(&FileError{Name: out.FileName, Err: ErrNoRows})
		return
	}

	if !tgt.overwrite {
		svc.log.Debug("overwrite not requested, existing grades are updated anyway", map[string]interface{}{"import": out.ID})
	}

	unlock, err := svc.locker.Lock(ctx, tgt.offeringID, tgt.cycle.ID, tgt.period)
	if err != nil {
		out.fail(&FileError{Name: out.FileName, Err: ErrTimeout})
		return
	}
	defer unlock()

	if err := svc.persist(ctx, rows, tgt, out); err != nil {
		svc.log.Error("import rolled back", err, map[string]interface{}{"import": out.ID, "file": out.FileName})
		out.fail(err)
		return
	}
	svc.log.Info("import committed", map[string]interface{}{
		"import":    out.ID,
		"file":      out.FileName,
		"offering":  tgt.offeringID,
		"processed": out.Processed,
		"created":   out.Created,
		"updated":   out.Updated,
		"skipped":   out.Skipped,
		"errors":    out.ErrorCount,
	})
}

func (svc *Service) readUpload(up Upload) ([]Record, error) {
	name := filepath.Base(up.Name)
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		return nil, &FileError{Name: name, Err: ErrUnsupportedFormat}
	}
	size := up.Size
	if size <= 0 {
		size = int64(len(up.Data))
	}
	if size > svc.opts.MaxFileSize || int64(len(up.Data)) > svc.opts.MaxFileSize {
		return nil, &FileError{Name: name, Err: errors.Wrapf(ErrFileTooLarge, "maximum %d MB", svc.opts.MaxFileSize>>20)}
	}
	if len(up.Data) == 0 {
		return nil, &FileError{Name: name, Err: ErrEmptyFile}
	}

	records, err := ReadRecords(up.Data)
	if err != nil {
		return nil, &FileError{Name: name, Err: errors.Wrap(ErrUnreadable, errors.Cause(err).Error())}
	}
	if len(records) == 0 {
		return nil, &FileError{Name: name, Err: ErrEmptyFile}
	}
	if len(records) > svc.opts.MaxRows {
		return nil, &FileError{Name: name, Err: errors.Wrapf(ErrTooManyRows, "maximum %d", svc.opts.MaxRows)}
	}
	return records, nil
}

func checkRequiredColumns(cm ColumnMap, kind grade.Kind) error {
	switch {
	case kind == grade.KindPreliminary && cm.OutcomeRating < 0:
		return &StructureError{Err: ErrNoOutcomeColumn}
	case kind == grade.KindTerm && cm.FinalGrade < 0 && cm.OutcomeRating < 0:
		return &StructureError{Err: ErrNoFinalGradeColumn}
	}
	return nil
}

// persist writes `rows` inside one transaction. Row problems are recorded on `out`;
// the returned error means the transaction was rolled back.
func (svc *Service) persist(ctx context.Context, rows []ParsedRow, tgt target, out *Outcome) (err error) {
	tx, err := svc.gw.Begin(ctx)
	if err != nil {
		return &PersistenceError{Op: "begin", Err: err}
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				svc.log.Error("rollback failed", rbErr)
			}
		}
	}()

	pool, err := tx.ListCandidateStudents(ctx, tgt.offeringID)
	if err != nil {
		return &PersistenceError{Op: "loading students", Err: err}
	}
	matcher := student.NewMatcher(pool, svc.opts.MatchThreshold)

	for _, pr := range rows {
		if ctx.Err() != nil {
			return &FileError{Name: out.FileName, Err: errors.Wrapf(ErrTimeout, "at row %d", pr.RowNumber)}
		}
		if pr.Skip {
			out.Skipped++
			continue
		}

		m, err := matcher.Match(pr.StudentName, pr.IdentityNumber)
		if err != nil {
			merr := &MatchError{Row: pr.RowNumber, Name: pr.StudentName, Err: errors.Cause(err)}
			if m.Candidate.StudentID > 0 {
				best := m.Candidate
				merr.Best = &best
			}
			out.addError(merr)
			continue
		}
		if m.Strategy == student.StrategySimilarity {
			svc.log.Debug("approximate student match", map[string]interface{}{
				"row":     pr.RowNumber,
				"name":    pr.StudentName,
				"student": m.Candidate.DisplayName,
				"score":   m.Candidate.Score,
			})
		}

		key := grade.Key{StudentID: m.Student.ID, OfferingID: tgt.offeringID, CycleID: tgt.cycle.ID}
		up, err := grade.NewUpsert(key, tgt.kind, tgt.period, grade.Values{
			Outcome:     pr.Outcome,
			Performance: pr.Performance,
			Remarks:     pr.Remarks,
			FinalGrade:  pr.FinalGrade,
		})
		if err != nil {
			out.addError(&RowError{Row: pr.RowNumber, Name: pr.StudentName, Err: errors.Cause(err)})
			continue
		}

		existing, err := tx.FindExistingGrade(ctx, key)
		switch {
		case err == nil:
			if err = tx.UpdateGrade(ctx, existing.ID, up); err != nil {
				return &PersistenceError{Op: "updating grade", Err: err}
			}
			out.Updated++
		case errors.Cause(err) == grade.ErrNotFound:
			if _, err = tx.InsertGrade(ctx, up); err != nil {
				return &PersistenceError{Op: "inserting grade", Err: err}
			}
			out.Created++
		default:
			return &PersistenceError{Op: "finding grade", Err: err}
		}
		out.Processed++
	}

	if err = tx.Commit(); err != nil {
		return &PersistenceError{Op: "commit", Err: err}
	}
	return nil
}
