package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/veterinarycue/scheduling-engine/internal/appointment"
	"github.com/veterinarycue/scheduling-engine/internal/cache"
	"github.com/veterinarycue/scheduling-engine/internal/config"
	"github.com/veterinarycue/scheduling-engine/internal/db"
	redisclient "github.com/veterinarycue/scheduling-engine/internal/redis"
	"github.com/veterinarycue/scheduling-engine/internal/schedule"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("reminder-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running reminder worker in env=%s cron=%q lead=%s", cfg.Env, cfg.ReminderCronSpec, cfg.ReminderLeadTime)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

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
	svc := appointment.NewService(apptRepo, scheduleSvc, publisher, calendarCache)

	c := cron.New()
	_, err = c.AddFunc(cfg.ReminderCronSpec, func() {
		runOnce(rootCtx, svc, cfg.ReminderLeadTime)
	})
	if err != nil {
		log.Fatalf("invalid reminder cron spec %q: %v", cfg.ReminderCronSpec, err)
	}
	c.Start()

	<-rootCtx.Done()

	log.Println("shutdown signal received, stopping reminder worker")
	<-c.Stop().Done()
}

func runOnce(ctx context.Context, svc *appointment.Service, lead time.Duration) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	now := time.Now()
	start := now
	sent, err := svc.PublishReminders(runCtx, now, now.Add(lead))
	if err != nil {
		log.Printf("reminder run error: %v", err)
		return
	}
	log.Printf("reminder run complete sent=%d in %s", sent, time.Since(start))
}
