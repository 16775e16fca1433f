package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/curriculum"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/importer"
	"github.com/trezcool/gradebook/storage/database"
)

var (
	migrateFunc = database.RunMigrations // mockable

	errHelp = errors.New("help provided")
)

type importService interface {
	ImportFile(ctx context.Context, req importer.Request) (importer.Outcome, error)
	ImportBatch(ctx context.Context, req importer.BatchRequest) (importer.BatchOutcome, error)
	Options() importer.Options
	Catalog() *curriculum.Catalog
}

type commandLine struct {
	db      *sqlx.DB
	engine  string
	svc     importService
	out     io.Writer
	colored bool
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS...] - run a goose command (up, down, status, version, redo, reset...)")
	fmt.Fprintln(cli.out, "  import -offering ID -period 1|3 [-kind preliminary|term] [-overwrite] FILE - import a grade sheet into a subject")
	fmt.Fprintln(cli.out, "  bulk -course ID -year 3..7 -period 1|3 [-kind preliminary|term] FILE... - import one sheet per subject of a course")
	fmt.Fprintln(cli.out, "  catalog -year 3..7 - list the numbered subjects of a year")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	importCmd := cli.newFlagSet("import")
	importOffering := importCmd.Int("offering", 0, "The subject offering the file belongs to.")
	importPeriod := importCmd.Int("period", 0, "The bimester opening the term: 1 or 3.")
	importKind := importCmd.String("kind", string(grade.KindPreliminary), "preliminary (bimester assessment) or term (final grades).")
	importOverwrite := importCmd.Bool("overwrite", false, "Overwrite existing grades (they are always updated).")

	bulkCmd := cli.newFlagSet("bulk")
	bulkCourse := bulkCmd.Int("course", 0, "The course the files belong to.")
	bulkYear := bulkCmd.Int("year", 0, "The course's year, 3 to 7.")
	bulkPeriod := bulkCmd.Int("period", 0, "The bimester opening the term: 1 or 3.")
	bulkKind := bulkCmd.String("kind", string(grade.KindPreliminary), "preliminary (bimester assessment) or term (final grades).")

	catalogCmd := cli.newFlagSet("catalog")
	catalogYear := catalogCmd.Int("year", 0, "The year to list, 3 to 7.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, args[2:])

	case "import":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importOffering <= 0 || *importPeriod == 0 || importCmd.NArg() != 1 {
			importCmd.Usage()
			return errHelp
		}
		kind, err := grade.ParseKind(*importKind)
		if err != nil {
			return err
		}
		up, err := readUpload(importCmd.Arg(0))
		if err != nil {
			return err
		}
		return cli.importFile(ctx, importer.Request{
			Upload:     up,
			OfferingID: *importOffering,
			Kind:       kind,
			Period:     grade.Period(*importPeriod),
			Overwrite:  *importOverwrite,
		})

	case "bulk":
		if err := bulkCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *bulkCourse <= 0 || *bulkYear == 0 || *bulkPeriod == 0 || bulkCmd.NArg() == 0 {
			bulkCmd.Usage()
			return errHelp
		}
		kind, err := grade.ParseKind(*bulkKind)
		if err != nil {
			return err
		}
		uploads := make([]importer.Upload, 0, bulkCmd.NArg())
		for _, path := range bulkCmd.Args() {
			up, err := readUpload(path)
			if err != nil {
				return err
			}
			uploads = append(uploads, up)
		}
		return cli.importBatch(ctx, importer.BatchRequest{
			Uploads:  uploads,
			CourseID: *bulkCourse,
			Year:     *bulkYear,
			Kind:     kind,
			Period:   grade.Period(*bulkPeriod),
		})

	case "catalog":
		if err := catalogCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *catalogYear == 0 {
			catalogCmd.Usage()
			return errHelp
		}
		return cli.catalog(*catalogYear)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	return migrateFunc(ctx, cli.db, cli.engine, args[0], args[1:]...)
}

// readUpload reads a local file the way an upload would arrive: its declared size is the file size.
func readUpload(path string) (importer.Upload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return importer.Upload{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return importer.Upload{}, err
	}
	return importer.Upload{Name: path, Data: data, Size: info.Size()}, nil
}

func (cli *commandLine) importFile(ctx context.Context, req importer.Request) error {
	out, err := cli.svc.ImportFile(ctx, req)
	if err != nil {
		return describe(err)
	}
	cli.printOutcome(out)
	if out.Failed() {
		return out.Err
	}
	return nil
}

func (cli *commandLine) importBatch(ctx context.Context, req importer.BatchRequest) error {
	out, err := cli.svc.ImportBatch(ctx, req)
	if err != nil {
		return describe(err)
	}
	cli.printBatch(out)
	return nil
}

func (cli *commandLine) catalog(year int) error {
	entries, err := cli.svc.Catalog().Entries(year)
	if err != nil {
		return err
	}
	cli.printCatalog(year, entries)
	return nil
}

// describe appends the field errors of a validation error to its message.
func describe(err error) error {
	var verr *core.ValidationError
	if !errors.As(err, &verr) || len(verr.Fields) == 0 {
		return err
	}
	msg := verr.Error()
	for _, f := range verr.Fields {
		msg += fmt.Sprintf("\n  %s: %s", f.Field, f.Error)
	}
	return &describedError{msg: msg, err: err}
}

type describedError struct {
	msg string
	err error
}

func (e *describedError) Error() string { return e.msg }
func (e *describedError) Unwrap() error { return e.err }
