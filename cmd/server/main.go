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

	_ "github.com/lib/pq"

	"amicale/internal/audit"
	auditHandler "amicale/internal/audit/handler"
	"amicale/internal/audit/publisher"
	auditmem "amicale/internal/audit/store/memory"
	auditpg "amicale/internal/audit/store/postgres"
	"amicale/internal/auth/revocation"
	conditionHandler "amicale/internal/condition/handler"
	condservice "amicale/internal/condition/service"
	conditionstore "amicale/internal/condition/store/condition"
	"amicale/internal/condition/store/membercondition"
	contributionHandler "amicale/internal/contribution/handler"
	contribservice "amicale/internal/contribution/service"
	"amicale/internal/contribution/store/payment"
	"amicale/internal/contribution/store/policy"
	directoryHandler "amicale/internal/directory/handler"
	dirservice "amicale/internal/directory/service"
	"amicale/internal/directory/store/member"
	"amicale/internal/directory/store/section"
	"amicale/internal/election"
	"amicale/internal/eligibility"
	eligibilityHandler "amicale/internal/eligibility/handler"
	httptransport "amicale/internal/http"
	"amicale/internal/identity"
	"amicale/internal/jwttoken"
	"amicale/internal/platform/config"
	"amicale/internal/platform/logger"
	"amicale/internal/platform/metrics"
	redisplatform "amicale/internal/platform/redis"
	mwauth "amicale/pkg/platform/middleware/auth"
)

// stores groups the persistence backends so both deployment modes (postgres
// and in-memory) produce the same wiring surface.
type stores struct {
	members    dirservice.MemberStore
	sections   dirservice.SectionStore
	policies   contribservice.PolicyStore
	payments   contribservice.PaymentStore
	conditions condservice.ConditionStore
	states     condservice.MemberConditionStore
	elections  eligibility.ElectionStore
	auditlog   audit.Store
	tx         dirservice.StoreTx
}

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		db  *sql.DB
		err error
		st  stores
	)
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		if err := db.PingContext(ctx); err != nil {
			log.Error("database unreachable", "error", err)
			os.Exit(1)
		}
		st = stores{
			members:    member.NewPostgres(db),
			sections:   section.NewPostgres(db),
			policies:   policy.NewPostgres(db),
			payments:   payment.NewPostgres(db),
			conditions: conditionstore.NewPostgres(db),
			states:     membercondition.NewPostgres(db),
			elections:  election.NewPostgres(db),
			auditlog:   auditpg.New(db),
			tx:         newSQLStoreTx(db),
		}
		log.Info("using postgres storage")
	} else {
		st = stores{
			members:    member.NewInMemory(),
			sections:   section.NewInMemory(),
			policies:   policy.NewInMemory(),
			payments:   payment.NewInMemory(),
			conditions: conditionstore.NewInMemory(),
			states:     membercondition.NewInMemory(),
			elections:  election.NewInMemory(),
			auditlog:   auditmem.NewStore(),
			tx:         dirservice.NewInMemoryStoreTx(),
		}
		log.Warn("DATABASE_URL not set, using in-memory storage")
	}

	// Token revocation list: redis when configured, process local otherwise.
	var revocationChecker mwauth.TokenRevocationChecker
	redisClient, err := redisplatform.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		revocationChecker = revocation.NewRedisTRL(redisClient.Client)
		defer redisClient.Close()
		log.Info("using redis token revocation list")
	} else {
		revocationChecker = revocation.NewMemoryTRL()
	}

	// Audit recorder, with Kafka forwarding when brokers are configured.
	var recorderOpts []audit.RecorderOption
	var kafka *publisher.Kafka
	if len(cfg.Audit.Brokers) > 0 {
		kafka, err = publisher.NewKafka(cfg.Audit.Brokers, cfg.Audit.Topic)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		defer kafka.Close()

		inbox := make(chan audit.Entry, 256)
		worker := audit.NewWorker(kafka, inbox, log)
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit forwarding worker stopped", "error", err)
			}
		}()
		recorderOpts = append(recorderOpts, audit.WithForwarding(inbox))
		log.Info("audit forwarding enabled", "topic", cfg.Audit.Topic)
	}
	recorder := audit.NewRecorder(st.auditlog, log, recorderOpts...)

	resolver := identity.NewResolver(st.members)

	// The in-process provider backs installs without an external identity
	// provider; deployments with one swap it here.
	idp := identity.NewFakeProvider()

	directory := dirservice.New(st.members, st.sections, idp, resolver, recorder,
		dirservice.WithLogger(log),
		dirservice.WithMetrics(m),
		dirservice.WithStoreTx(st.tx),
		dirservice.WithBootstrap(dirservice.BootstrapConfig{
			AllowedEmails: cfg.BootstrapAdminEmails,
			Locked:        cfg.BootstrapLocked,
		}),
	)
	contributions := contribservice.New(st.policies, st.payments, st.members, resolver, recorder, st.tx,
		contribservice.WithLogger(log),
		contribservice.WithMetrics(m),
	)
	conditions := condservice.New(st.conditions, st.states, st.members, resolver, recorder, st.tx,
		condservice.WithLogger(log),
		condservice.WithMetrics(m),
	)
	evaluator := eligibility.New(st.members, st.elections, contributions, conditions, resolver,
		eligibility.WithLogger(log),
		eligibility.WithMetrics(m),
	)
	auditQuery := audit.NewQuery(st.auditlog, resolver)

	router := httptransport.New(httptransport.Deps{
		Logger:            log,
		TokenValidator:    jwttoken.NewValidator(cfg.JWTSigningKey, cfg.JWTIssuer),
		RevocationChecker: revocationChecker,
		Directory:         directoryHandler.New(directory, log),
		Contribution:      contributionHandler.New(contributions, log),
		Condition:         conditionHandler.New(conditions, log),
		Eligibility:       eligibilityHandler.New(evaluator, log),
		Audit:             auditHandler.New(auditQuery, log),
		Health: func() error {
			if db != nil {
				return db.Ping()
			}
			return nil
		},
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if db != nil {
		_ = db.Close()
	}
}
