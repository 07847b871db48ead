package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/masomo-learn/core"
	"github.com/trezcool/masomo-learn/core/analytics"
	logsvc "github.com/trezcool/masomo-learn/services/logger"
	"github.com/trezcool/masomo-learn/storage/database"
	sqlxrepos "github.com/trezcool/masomo-learn/storage/database/sqlx"
	"github.com/trezcool/masomo-learn/storage/mongodb"
)

var logger core.Logger

func main() {
	conf := core.NewConfig()
	logger = logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up DBs
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()

	mongoClient, err := mongodb.Open(context.Background(), conf)
	errAndDie(err)
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	// start CLI
	cli := commandLine{
		conf: conf,
		db:   db.DB,
		svc: analytics.NewService(
			mongodb.NewRecordRepository(mongodb.Collection(mongoClient, conf)),
			sqlxrepos.NewMaterialRepository(db),
			sqlxrepos.NewQuestionRepository(db),
			analytics.OptionsFromConfig(conf),
		),
		out: os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
