package main

import (
	"context"
	"errors"
	"log"
	"os"

	"golang.org/x/term"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/curriculum"
	"github.com/trezcool/gradebook/core/importer"
	logsvc "github.com/trezcool/gradebook/services/logger"
	"github.com/trezcool/gradebook/storage/database"
	sqlxrepos "github.com/trezcool/gradebook/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()
	ctx := context.Background()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer func() { _ = db.Close() }()
	errAndDie(database.Ping(ctx, db))

	svcLogger, err := logsvc.NewZapLogger(conf)
	errAndDie(err)
	defer func() { _ = svcLogger.Sync() }()

	catalog := curriculum.DefaultCatalog()
	if conf.Import.CurriculumFile != "" {
		catalog, err = curriculum.LoadCatalogFile(conf.Import.CurriculumFile)
		errAndDie(err)
	}
	svc, err := importer.NewService(sqlxrepos.NewGateway(db), catalog, svcLogger, importer.OptionsFromConfig(conf.Import))
	errAndDie(err)

	// start CLI
	cli := commandLine{
		db:      db,
		engine:  conf.Database.Engine,
		svc:     svc,
		out:     os.Stdout,
		colored: term.IsTerminal(int(os.Stdout.Fd())),
	}
	if err := cli.run(ctx, os.Args); err != nil {
		if !errors.Is(err, errHelp) {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
