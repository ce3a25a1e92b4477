package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/reelbingo/promo/core"
	"github.com/reelbingo/promo/core/participant"
	"github.com/reelbingo/promo/storage/database"
	"github.com/reelbingo/promo/storage/database/sqlx"
)

var logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

func main() {
	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)

	// start CLI
	cli := commandLine{
		db:       db.DB,
		partSvc:  participant.NewService(database.NewTransactor(db), sqlxrepos.NewParticipantRepository(db), sqlxrepos.NewProgressRepository(db)),
		validate: validator.New(),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
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
