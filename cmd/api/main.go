package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hvac-backoffice/internal/audit"
	"hvac-backoffice/internal/auth"
	"hvac-backoffice/internal/availability"
	"hvac-backoffice/internal/booking"
	"hvac-backoffice/internal/callsession"
	"hvac-backoffice/internal/calls"
	"hvac-backoffice/internal/config"
	"hvac-backoffice/internal/holdback"
	"hvac-backoffice/internal/httpapi"
	"hvac-backoffice/internal/ivr"
	"hvac-backoffice/internal/qa"
	"hvac-backoffice/internal/reporting"
	"hvac-backoffice/internal/routing"
	"hvac-backoffice/internal/telephony"
	"hvac-backoffice/internal/voice"
	"hvac-backoffice/pkg/logger"
	"hvac-backoffice/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)
	rootCtx = logger.With(rootCtx, log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	app, err := buildApp(cfg, db, rdb, log)
	if err != nil {
		log.Error("app init failed", "err", err)
		os.Exit(1)
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, app, authManager)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(rootCtx)
	g.Go(func() error {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return app.Sweeper.Run(gctx)
	})
	if app.SMS != nil {
		g.Go(func() error {
			return app.SMS.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown failed", "err", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

// application is the fully wired object graph. No globals.
type application struct {
	Handlers httpapi.Handlers
	Webhooks telephony.TwilioWebhookHandler
	Sweeper  *voice.Sweeper
	// SMS is nil when Twilio credentials are not configured.
	SMS *booking.SMSQueue
	// DevLogin mounts the credential-free login route. Never set in production.
	DevLogin bool
}

func buildApp(cfg config.Config, db *sql.DB, rdb *redis.Client, log *slog.Logger) (*application, error) {
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))

	tmpl := availability.DefaultTemplate(cfg.Scheduling.WindowCapacity)
	if cfg.Scheduling.TemplateFile != "" {
		t, err := availability.LoadTemplateFile(cfg.Scheduling.TemplateFile)
		if err != nil {
			return nil, err
		}
		tmpl = t
	}
	var ledger availability.Ledger
	switch cfg.Scheduling.LedgerBackend {
	case "redis":
		ledger = availability.NewRedisLedger(rdb)
	case "memory":
		ledger = availability.NewMemoryLedger()
	default:
		ledger = availability.NewPostgresLedger(db)
	}
	calendar := availability.NewService(ledger, tmpl, cfg.Location())

	var sessions callsession.Store
	if cfg.Scheduling.SessionBackend == "redis" {
		sessions = callsession.NewRedisStore(rdb, 0)
	} else {
		sessions = callsession.NewMemoryStore()
	}

	callSvc := calls.NewService(calls.NewPostgresRepo(db), auditSvc)

	var smsQueue *booking.SMSQueue
	bookingOpts := booking.Options{Calls: callSvc, Audit: auditSvc, CompanyName: cfg.App.CompanyName}
	if sms, err := telephony.NewTwilioProvider(cfg.Twilio, nil); err != nil {
		log.Warn("twilio sms disabled", "err", err)
	} else {
		smsQueue = booking.NewSMSQueue(sms, 0, 0)
		bookingOpts.Notifier = smsQueue
	}
	bookingRepo := booking.NewPostgresRepo(db)
	bookingSvc := booking.NewService(bookingRepo, bookingRepo, calendar, bookingOpts)

	qaSvc := qa.NewService(qa.NewPostgresRepo(db), qa.Policy{
		MicronLimit:        cfg.QA.MicronLimit,
		RequiredPhotoTypes: cfg.QA.RequiredPhotoTypes,
	})
	holdbackSvc := holdback.NewService(holdback.NewPostgresRepo(db), qaSvc, holdback.Options{
		Audit:             auditSvc,
		DefaultPercentage: float64(cfg.QA.HoldbackPercentage),
	})
	// Closure inputs changing re-run release evaluation for the job's payment.
	qaSvc.OnChange(holdbackSvc.ReevaluateJob)

	dests, err := routing.ParseWeightedDestinations(cfg.Dispatch.TransferNumbers)
	if err != nil {
		return nil, err
	}
	overrides := routing.NewAdminOverrideEngine(routing.NewRedisOverrideStore(rdb), routing.AuditAdapter{
		Audit:       auditSvc,
		ActorUserID: "system",
		ActorRole:   "system",
	})
	router := routing.NewRoutingEngine(overrides, routing.StaticDestinations(dests), nil)

	machine := &ivr.Machine{
		Calendar:    calendar,
		Booker:      bookingSvc,
		CompanyName: cfg.App.CompanyName,
		MaxRetries:  cfg.Scheduling.MaxRetries,
	}
	orch := voice.NewOrchestrator(callSvc, sessions, machine, router, cfg.Scheduling.SessionTTL)

	numbers, err := telephony.ParseNumberCompanies(cfg.Twilio.NumberCompanies)
	if err != nil {
		return nil, err
	}

	return &application{
		Handlers: httpapi.Handlers{
			Availability: calendar,
			Calls:        callSvc,
			Bookings:     bookingSvc,
			QA:           qaSvc,
			Holdback:     holdbackSvc,
			Overrides:    overrides,
			Reports:      reporting.NewService(reporting.NewPostgresRepo(db)),
			Audit:        auditSvc,
		},
		Webhooks: telephony.TwilioWebhookHandler{
			Voice:             orch,
			CompanyIDResolver: telephony.NumberResolver(numbers, cfg.Twilio.DefaultCompanyID),
			AuthToken:         cfg.Twilio.AuthToken,
			BaseURL:           cfg.Twilio.WebhookBaseURL,
		},
		Sweeper:  voice.NewSweeper(sessions, callSvc, cfg.Scheduling.SweepInterval, 0),
		SMS:      smsQueue,
		DevLogin: !cfg.IsProduction(),
	}, nil
}
