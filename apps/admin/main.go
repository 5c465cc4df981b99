package main

import (
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/funnelseye/backoffice/core"
	"github.com/funnelseye/backoffice/core/coach"
	"github.com/funnelseye/backoffice/core/ledger"
	"github.com/funnelseye/backoffice/core/settlement"
	emailsvc "github.com/funnelseye/backoffice/services/email"
	gatewaysvc "github.com/funnelseye/backoffice/services/gateway"
	logsvc "github.com/funnelseye/backoffice/services/logger"
	"github.com/funnelseye/backoffice/storage/database"
	sqlxrepos "github.com/funnelseye/backoffice/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	svcLogger := logsvc.NewRollbarLogger(logger, conf)
	svcLogger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())
	dbx := sqlx.NewDb(db, conf.Database.Engine)

	coachRepo := sqlxrepos.NewCoachRepository(dbx)
	paymentRepo := sqlxrepos.NewPaymentRepository(dbx)
	stlRepo := sqlxrepos.NewSettlementRepository(dbx)

	// set up services
	var gw settlement.Gateway
	if conf.Gateway.ApiKey != "" {
		gw = gatewaysvc.NewHTTPGateway(svcLogger)
	} else {
		gw = gatewaysvc.NewConsoleGateway(svcLogger)
	}

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	coach.InitValidators(validate, translator)

	reader := ledger.NewReader(paymentRepo, svcLogger)
	stlSvc := settlement.NewService(stlRepo, coachRepo, reader, gw, emailsvc.NewConsoleService(), svcLogger, validate, conf)

	// start CLI
	cli := commandLine{
		db:       db,
		stlSvc:   stlSvc,
		coachSvc: coach.NewService(coachRepo),
		validate: validate,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
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

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
