package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/masomo-learn/apps/api/echo"
	"github.com/trezcool/masomo-learn/core"
	"github.com/trezcool/masomo-learn/core/analytics"
	emailsvc "github.com/trezcool/masomo-learn/services/email"
	logsvc "github.com/trezcool/masomo-learn/services/logger"
	"github.com/trezcool/masomo-learn/storage/cache"
	"github.com/trezcool/masomo-learn/storage/database"
	sqlxrepos "github.com/trezcool/masomo-learn/storage/database/sqlx"
	"github.com/trezcool/masomo-learn/storage/mongodb"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type catalogParam struct {
	dig.In
	Conf   *core.Config
	DB     *sqlx.DB
	Redis  *redis.Client
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

// newDB opens the catalog database, creating & migrating it first.
func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB, conf); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newMongo(conf *core.Config, loggerParam DBLoggerParam) *mongo.Client {
	client, err := mongodb.Open(context.Background(), conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up mongodb: %v", err), err)
	}
	return client
}

func newMaterialCatalog(p catalogParam) analytics.MaterialCatalog {
	catalog := sqlxrepos.NewMaterialRepository(p.DB)
	if p.Redis == nil {
		return catalog
	}
	return cache.NewMaterialCache(catalog, p.Redis, p.Conf.Redis.TTL, p.Logger)
}

func newQuestionBank(p catalogParam) analytics.QuestionBank {
	bank := sqlxrepos.NewQuestionRepository(p.DB)
	if p.Redis == nil {
		return bank
	}
	return cache.NewQuestionCache(bank, p.Redis, p.Conf.Redis.TTL, p.Logger)
}

func newAnalyticsService(
	conf *core.Config,
	repo analytics.RecordRepository,
	catalog analytics.MaterialCatalog,
	questions analytics.QuestionBank,
) *analytics.Service {
	return analytics.NewService(repo, catalog, questions, analytics.OptionsFromConfig(conf))
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newMongo))
	must(c.Provide(cache.NewClient))
	must(c.Provide(mongodb.Collection))
	must(c.Provide(mongodb.NewRecordRepository))
	must(c.Provide(newMaterialCatalog))
	must(c.Provide(newQuestionBank))
	must(c.Provide(newEmailService))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(newAnalyticsService))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
