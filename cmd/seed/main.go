package main

import (
	"context"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"

	"github.com/veterinarycue/scheduling-engine/internal/config"
	"github.com/veterinarycue/scheduling-engine/internal/db"
	redisclient "github.com/veterinarycue/scheduling-engine/internal/redis"
	"github.com/veterinarycue/scheduling-engine/internal/schedule"
)

// Seeds a handful of veterinarians with weekly templates and two weeks of
// generated slots, plus a few manual blocks, for local development.
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	defer rdb.Close()

	gofakeit.Seed(time.Now().UnixNano())

	repo := schedule.NewPgRepository(pool)
	locker := redisclient.NewRedisVetLocker(rdb, cfg.GenerationLockTTL)
	svc := schedule.NewService(repo, locker)

	if err := seedVets(context.Background(), svc, 5); err != nil {
		log.Fatalf("seed vets: %v", err)
	}

	log.Println("seed complete")
}

func seedVets(ctx context.Context, svc *schedule.Service, count int) error {
	breakStart := "12:00"
	breakEnd := "13:00"

	from := time.Now().Truncate(24 * time.Hour)
	to := from.AddDate(0, 0, 13)

	for i := 0; i < count; i++ {
		vetID := uuid.New()
		log.Printf("seeding vet %s (%s)", vetID, gofakeit.Name())

		// Monday through Friday, 08:00-17:00 with a lunch break
		for wd := time.Monday; wd <= time.Friday; wd++ {
			_, err := svc.UpsertWorkTemplate(ctx, schedule.WorkTemplate{
				VeterinarianID: vetID,
				Weekday:        wd,
				WorkStart:      "08:00",
				WorkEnd:        "17:00",
				BreakStart:     &breakStart,
				BreakEnd:       &breakEnd,
			})
			if err != nil {
				return err
			}
		}

		created, err := svc.GenerateSlots(ctx, vetID, from, to, 30)
		if err != nil {
			return err
		}
		log.Printf("generated %d slots for vet %s", created, vetID)

		// One manual block somewhere next week
		blockDay := from.AddDate(0, 0, 7+gofakeit.Number(0, 4))
		blockStart := time.Date(blockDay.Year(), blockDay.Month(), blockDay.Day(), 9, 0, 0, 0, blockDay.Location())
		_, err = svc.CreateOccupation(ctx, schedule.Occupation{
			VeterinarianID: vetID,
			StartAt:        blockStart,
			EndAt:          blockStart.Add(time.Hour),
			Kind:           schedule.KindManualBlock,
			Note:           gofakeit.Sentence(4),
		})
		if err != nil {
			return err
		}
	}

	return nil
}
