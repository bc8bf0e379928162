package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/veterinarycue/scheduling-engine/internal/api"
	"github.com/veterinarycue/scheduling-engine/internal/appointment"
	"github.com/veterinarycue/scheduling-engine/internal/cache"
	"github.com/veterinarycue/scheduling-engine/internal/config"
	"github.com/veterinarycue/scheduling-engine/internal/db"
	redisclient "github.com/veterinarycue/scheduling-engine/internal/redis"
	"github.com/veterinarycue/scheduling-engine/internal/schedule"
)

const version = "0.3.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s", cfg.Env, cfg.HTTPPort)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	scheduleRepo := schedule.NewPgRepository(pgPool)
	locker := redisclient.NewRedisVetLocker(rdb, cfg.GenerationLockTTL)
	scheduleSvc := schedule.NewService(scheduleRepo, locker)

	publisher := redisclient.NewRedisPublisher(rdb, cfg.EventChannel)
	calendarCache := cache.New[[]appointment.Appointment](time.Now, cfg.InvalidateByEntity)
	apptRepo := appointment.NewPgRepository(pgPool)
	apptSvc := appointment.NewService(apptRepo, scheduleSvc, publisher, calendarCache)

	router := api.NewRouter(api.RouterConfig{
		Schedule:     scheduleSvc,
		Appointments: apptSvc,
		PgPool:       pgPool,
		Redis:        rdb,
		Env:          cfg.Env,
		Version:      version,
		Timeout:      cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()

	log.Println("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
