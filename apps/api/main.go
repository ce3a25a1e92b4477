package main

import (
	"context"
	"expvar"
	"fmt"
	"io"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/reelbingo/promo/apps/api/echo"
	"github.com/reelbingo/promo/core"
	"github.com/reelbingo/promo/core/participant"
	"github.com/reelbingo/promo/core/progress"
	"github.com/reelbingo/promo/core/proof"
	"github.com/reelbingo/promo/core/support"
	"github.com/reelbingo/promo/services/blob"
	"github.com/reelbingo/promo/services/email"
	"github.com/reelbingo/promo/services/logger"
	"github.com/reelbingo/promo/storage/database"
	"github.com/reelbingo/promo/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up blob storage
	blobs, err := blobsvc.New(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up blob storage: %v", err), err)
	}
	if c, ok := blobs.(io.Closer); ok {
		defer func() { _ = c.Close() }()
	}
	var mediaDir string
	if local, ok := blobs.(*blobsvc.LocalStore); ok {
		mediaDir = local.Dir()
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	tx := database.NewTransactor(db)
	progRepo := sqlxrepos.NewProgressRepository(db)
	partSvc := participant.NewService(tx, sqlxrepos.NewParticipantRepository(db), progRepo)
	progSvc := progress.NewService(tx, progRepo, partSvc, logger)
	proofSvc := proof.NewService(
		tx, sqlxrepos.NewSubmissionRepository(db), blobs, progSvc, partSvc, partSvc, logger,
		proof.Options{MaxImageBytes: conf.Storage.MaxUploadBytes, PathPrefix: conf.Storage.ProofPathPrefix},
	)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	participant.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("storage").Set(conf.Storage.Driver)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:           conf,
			Logger:         logger,
			ParticipantSvc: partSvc,
			ProgressSvc:    progSvc,
			ProofSvc:       proofSvc,
			SupportSvc:     support.NewService(conf, mailSvc),
			MailSvc:        mailSvc,
			Validate:       validate,
			Translator:     translator,
			MediaDir:       mediaDir,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}
