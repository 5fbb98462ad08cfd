package main

import (
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/mamamind47/sfa-efilling-sub001/core"
	"github.com/mamamind47/sfa-efilling-sub001/core/user"
	logsvc "github.com/mamamind47/sfa-efilling-sub001/services/logger"
	"github.com/mamamind47/sfa-efilling-sub001/storage/database"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	// set up DB
	store, err := database.NewStore(conf)
	errAndDie(err)
	defer store.Close()
	if db := store.DB(); db != nil {
		errAndDie(db.Ping())
	}

	// set up validation
	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(logsvc.NewRollbarLogger(logger, conf))

	// start CLI
	cli := commandLine{
		db:     store.DB(),
		usrSvc: user.NewService(store.Users, nil, validate, conf),
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
