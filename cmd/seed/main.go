package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/hackgods/standby-scheduling/internal/db"
	"github.com/hackgods/standby-scheduling/internal/standby"
)

const batchSize = 500

var (
	languages = []string{"English", "English", "English", "German", "French", "Spanish"}
	weekdays  = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	windows   = []string{"", "08:00-12:00", "12:00-17:00", "09:00-11:00,14:00-18:00", "17:00-21:00"}
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	_ = godotenv.Load()
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	faker := gofakeit.New(uint64(time.Now().UnixNano()))

	if err := seedClinics(context.Background(), pool, faker, 20); err != nil {
		log.Fatalf("seed clinics: %v", err)
	}
	if err := seedPatients(context.Background(), pool, faker, 2000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

func seedClinics(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, count int) error {
	log.Printf("seeding %d clinics", count)

	return db.InTx(ctx, pool, func(tx pgx.Tx) error {
		for i := 0; i < count; i++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO clinics (id, name, email, city, created_at)
				VALUES ($1, $2, $3, $4, now())
				ON CONFLICT (email) DO NOTHING
			`, uuid.New(), faker.Company()+" Clinic", faker.Email(), faker.City())
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// seedPatients inserts patients in batches; roughly half opt into standby
// and a tenth of those get a do-not-disturb profile.
func seedPatients(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, count int) error {
	log.Printf("seeding %d patients", count)

	for offset := 0; offset < count; offset += batchSize {
		end := min(offset+batchSize, count)

		err := db.InTx(ctx, pool, func(tx pgx.Tx) error {
			for i := offset; i < end; i++ {
				if err := seedPatient(ctx, tx, faker); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}
	return nil
}

func seedPatient(ctx context.Context, tx pgx.Tx, faker *gofakeit.Faker) error {
	id := uuid.New()
	language := languages[faker.Number(0, len(languages)-1)]

	_, err := tx.Exec(ctx, `
		INSERT INTO patients (id, name, email, language, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (email) DO NOTHING
	`, id, faker.Name(), faker.Email(), language)
	if err != nil {
		return err
	}

	if !faker.Bool() {
		return nil
	}

	langs := []string{language}
	if language != "English" && faker.Bool() {
		langs = append(langs, "English")
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO standby_preferences (id, patient_id, enabled, preferred_languages, preferred_days,
		                                 preferred_times, max_notifications_per_day, created_at, updated_at)
		VALUES ($1, $2, true, $3, $4, $5, $6, now(), now())
		ON CONFLICT (patient_id) DO NOTHING
	`, uuid.New(), id, langs, pickDays(faker), windows[faker.Number(0, len(windows)-1)],
		faker.Number(1, standby.DefaultMaxNotificationsPerDay))
	if err != nil {
		return err
	}

	if faker.Number(1, 10) != 1 {
		return nil
	}

	ranges, _ := json.Marshal([]map[string]string{{"start_time": "22:00", "end_time": "23:59"}})
	_, err = tx.Exec(ctx, `
		INSERT INTO dnd_preferences (id, patient_id, enabled, dnd_days, dnd_time_ranges,
		                             temporarily_paused, created_at, updated_at)
		VALUES ($1, $2, true, $3, $4, false, now(), now())
		ON CONFLICT (patient_id) DO NOTHING
	`, uuid.New(), id, []string{weekdays[faker.Number(5, 6)]}, string(ranges))
	return err
}

func pickDays(faker *gofakeit.Faker) []string {
	if faker.Bool() {
		return []string{}
	}
	days := make([]string, 0, len(weekdays))
	for _, d := range weekdays {
		if faker.Number(0, 2) > 0 {
			days = append(days, d)
		}
	}
	return days
}
