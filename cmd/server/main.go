// main wires dependencies and owns the server lifecycle. Stores degrade
// gracefully: without Redis or Postgres everything runs in memory, without
// Kafka audit events stay in process.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"concierge/internal/gate"
	jwttoken "concierge/internal/jwt_token"
	"concierge/internal/lockout"
	"concierge/internal/payment"
	paymenthandler "concierge/internal/payment/handler"
	paymentstore "concierge/internal/payment/store"
	"concierge/internal/platform/config"
	"concierge/internal/platform/httpserver"
	"concierge/internal/platform/logger"
	"concierge/internal/platform/postgres"
	platformredis "concierge/internal/platform/redis"
	"concierge/internal/redirect"
	"concierge/internal/reservation"
	reservationhandler "concierge/internal/reservation/handler"
	reservationstore "concierge/internal/reservation/store"
	"concierge/internal/rooms"
	roomshandler "concierge/internal/rooms/handler"
	roomsstore "concierge/internal/rooms/store"
	"concierge/internal/session"
	sessionhandler "concierge/internal/session/handler"
	sessionstore "concierge/internal/session/store"
	httptransport "concierge/internal/transport/http"
	"concierge/internal/verify"
	verifyhandler "concierge/internal/verify/handler"
	verifyprovider "concierge/internal/verify/provider"
	audit "concierge/pkg/platform/audit"
	"concierge/pkg/platform/audit/publisher"
	auditkafka "concierge/pkg/platform/audit/sink/kafka"
	auditmemory "concierge/pkg/platform/audit/store/memory"
)

const redirectTTL = 15 * time.Minute

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	// Audit pipeline: Kafka when brokers are configured, in-process otherwise.
	var auditStore audit.Store = auditmemory.NewInMemoryStore()
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := auditkafka.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("kafka audit sink unavailable, falling back to memory", "error", err)
		} else {
			defer sink.Close()
			auditStore = sink
		}
	}
	auditPub := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(256),
		publisher.WithLogger(log),
	)
	defer auditPub.Close()

	// Durable stores when Postgres is configured.
	var (
		userStore        session.UserStore = sessionstore.NewInMemoryUserStore()
		roomStore        rooms.Store       = roomsstore.NewInMemoryStore()
		reservationStore reservation.Store = reservationstore.NewInMemoryStore()
		paymentStore     payment.Store     = paymentstore.NewInMemoryStore()
	)
	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		log.Error("postgres unavailable", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		userStore = sessionstore.NewPostgresUserStore(db)
		roomStore = roomsstore.NewPostgresStore(db)
		reservationStore = reservationstore.NewPostgresStore(db)
		paymentStore = paymentstore.NewPostgresStore(db)
		log.Info("postgres connected")
	}

	// Sessions and redirect memory live in Redis when configured so both
	// survive restarts and are shared across replicas.
	var (
		sessStore session.SessionStore = sessionstore.NewInMemorySessionStore()
		memory    redirect.Memory      = redirect.NewInMemoryMemory(redirectTTL)
	)
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		sessStore = sessionstore.NewRedisSessionStore(redisClient.Client)
		memory = redirect.NewRedisMemory(redisClient.Client, redirectTTL)
		log.Info("redis connected")
	}

	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, "concierge", "concierge-web")
	idp := session.NewHTTPCredentialVerifier(cfg.IdentityProviderURL, 10*time.Second)
	limiter := lockout.New(5, 10*time.Minute, 15*time.Minute)

	sessionSvc := session.NewService(userStore, sessStore, tokens, idp, limiter, auditPub, log, cfg.TokenTTL)
	roomSvc := rooms.NewService(roomStore, auditPub, log)
	reservationSvc := reservation.NewService(reservationStore, roomSvc, auditPub, log)
	paymentSvc := payment.NewService(paymentStore, reservationSvc, auditPub, log)

	registryClient := verifyprovider.NewClient(cfg.Registry.BaseURL, cfg.Registry.APIKey, cfg.Registry.Timeout)
	verifySvc := verify.NewService(userStore, sessionSvc, registryClient, memory, auditPub, log, cfg.DefaultLandingPath)

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	g := gate.New(sessionSvc, tokens, memory, gate.Paths{}, log, gate.NewMetrics(promRegistry)).
		WithAudit(auditPub)

	router := httptransport.NewRouter(g, httptransport.Handlers{
		Session:     sessionhandler.New(sessionSvc, memory, log, cfg.TokenTTL, cfg.DefaultLandingPath),
		Verify:      verifyhandler.New(verifySvc, log),
		Rooms:       roomshandler.New(roomSvc, log),
		Reservation: reservationhandler.New(reservationSvc, log),
		Payment:     paymenthandler.New(paymentSvc, log),
	}, promRegistry)

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
