package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"appointment-portal/internal/backend"
	"appointment-portal/internal/config"
	"appointment-portal/internal/cron"
	"appointment-portal/internal/handler"
	ph "appointment-portal/internal/health"
	"appointment-portal/internal/logger"
	"appointment-portal/internal/middleware"
	"appointment-portal/internal/portal"
	"appointment-portal/internal/session"
	"appointment-portal/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// run returns startup errors instead of exiting so deferred closers,
// the Rollbar flush among them, still run.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config")
	}
	std := log.New(os.Stderr, "", log.LstdFlags)
	lg := logger.New(std, cfg.RollbarToken, cfg.Env)
	if rl, ok := lg.(*logger.RollbarLogger); ok {
		defer rl.Close()
	}

	ctx := context.Background()
	st, closeStore, err := sessionStore(ctx, cfg)
	if err != nil {
		lg.Error("session store", err)
		return err
	}
	defer closeStore()
	sessions := session.NewManager(st, cfg.JWTSecret, cfg.SessionTTL)

	urls := backend.URLs{
		Users:      cfg.UserServiceURL,
		Groups:     cfg.GroupServiceURL,
		Individual: cfg.IndividualServiceURL,
		Scheduler:  cfg.SchedulerServiceURL,
	}
	svc := portal.NewFromClients(backend.New(urls, cfg.UpstreamTimeout), lg)

	// grpc health, kept current by the prober
	hs := health.NewServer()
	prober := ph.NewProber(hs, map[string]string{
		"users":      urls.Users,
		"groups":     urls.Groups,
		"individual": urls.Individual,
		"scheduler":  urls.Scheduler,
	}, 5*time.Second)
	prober.Probe(ctx)
	log.Printf("probing backends %v", prober.Names())

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		lg.Error("grpc listen", err)
		return errors.Wrap(err, "listen")
	}
	go func() {
		log.Printf("grpc health on :%s", cfg.GRPCPort)
		if err := srv.Serve(lis); err != nil {
			log.Printf("grpc: %v", err)
		}
	}()

	limiter := middleware.NewRateLimiter(cfg.LoginRate, cfg.LoginBurst)
	jobs, err := cron.StartJobs(cron.Jobs{Prober: prober, Sessions: sessions, Limiter: limiter, Log: lg})
	if err != nil {
		srv.Stop()
		return errors.Wrap(err, "cron")
	}

	h := handler.New(handler.Deps{
		Service:        svc,
		Sessions:       sessions,
		Limiter:        limiter,
		Prober:         prober,
		Log:            lg,
		AllowedOrigins: cfg.AllowedOrigins,
		TrustedProxies: cfg.TrustedProxies,
		SecureCookie:   cfg.Env == "production",
	})
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(h.Router())

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           corsHandler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		log.Printf("portal on %s", cfg.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http: %v", err)
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	log.Println("shutting down")

	<-jobs.Stop().Done()
	hs.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	srv.GracefulStop()
	return nil
}

// sessionStore opens the configured store. The returned func releases it.
func sessionStore(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	switch cfg.SessionStore {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "db")
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, errors.Wrap(err, "db ping")
		}
		log.Println("connected to postgres")
		st := store.New(pool)
		if err := st.Migrate(ctx, "db/migrations/001_init.sql"); err != nil {
			log.Printf("migration warning: %v", err)
		} else {
			log.Println("migration applied")
		}
		return st, pool.Close, nil

	case "redis":
		rdb, err := session.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "redis")
		}
		log.Println("connected to redis")
		return session.NewRedisStore(rdb), func() { _ = rdb.Close() }, nil
	}
	return session.NewMemoryStore(), func() {}, nil
}
