package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/standby-scheduling/internal/config"
	"github.com/hackgods/standby-scheduling/internal/db"
	"github.com/hackgods/standby-scheduling/internal/scheduling"
	"github.com/hackgods/standby-scheduling/internal/standby"
)

// The simulator opens a slot through the API, collects the confirmation
// tokens the matcher issued and redeems them all at once. Exactly one
// redemption may succeed.

type SimConfig struct {
	APIBaseURL  string
	Rounds      int
	Repeats     int
	Language    string
	Start       scheduling.Clock
	End         scheduling.Clock
	PostgresDSN string
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Gone      int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&om.Total, 1)
	switch status {
	case http.StatusOK, http.StatusCreated:
		atomic.AddInt64(&om.Success, 1)
	case http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	case http.StatusGone:
		atomic.AddInt64(&om.Gone, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95, max time.Duration) {
	om.mu.Lock()
	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	om.mu.Unlock()

	if len(latencies) == 0 {
		return 0, 0, 0, 0
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	return sum / time.Duration(len(latencies)),
		latencies[percentileIndex(len(latencies), 50)],
		latencies[percentileIndex(len(latencies), 95)],
		latencies[len(latencies)-1]
}

func percentileIndex(n, p int) int {
	idx := n * p / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Simulator struct {
	config        SimConfig
	client        *http.Client
	confirmations *standby.PgRepository

	createSlot OperationMetrics
	redeem     OperationMetrics
	violations int64
	noTokens   int64
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	var clinicID uuid.UUID
	if err := pgPool.QueryRow(ctx, `SELECT id FROM clinics ORDER BY created_at LIMIT 1`).Scan(&clinicID); err != nil {
		log.Fatalf("load clinic (run cmd/seed first): %v", err)
	}

	sim := &Simulator{
		config:        cfg,
		client:        &http.Client{Timeout: 10 * time.Second},
		confirmations: standby.NewPgRepository(pgPool),
	}

	log.Printf("config: rounds=%d repeats=%d language=%s window=%s-%s clinic=%s",
		cfg.Rounds, cfg.Repeats, cfg.Language, cfg.Start, cfg.End, clinicID)

	for round := 0; round < cfg.Rounds; round++ {
		if err := sim.runRound(context.Background(), clinicID, round); err != nil {
			log.Printf("round %d failed: %v", round, err)
		}
	}

	sim.PrintReport()
	if atomic.LoadInt64(&sim.violations) > 0 {
		os.Exit(1)
	}
}

func loadConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	return SimConfig{
		APIBaseURL:  strings.TrimRight(getEnv("SIM_API_BASE_URL", "http://localhost:8080"), "/"),
		Rounds:      getInt("SIM_ROUNDS", 5),
		Repeats:     getInt("SIM_REPEATS", 3),
		Language:    getEnv("SIM_LANGUAGE", scheduling.DefaultLanguage),
		Start:       getClock("SIM_START", scheduling.NewClock(10, 0)),
		End:         getClock("SIM_END", scheduling.NewClock(10, 30)),
		PostgresDSN: baseCfg.PostgresDSN,
	}
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Rounds <= 0 {
		return fmt.Errorf("SIM_ROUNDS must be > 0")
	}
	if cfg.Repeats <= 0 {
		return fmt.Errorf("SIM_REPEATS must be > 0")
	}
	if cfg.End <= cfg.Start {
		return fmt.Errorf("SIM_END must be after SIM_START")
	}
	return nil
}

// runRound opens one slot and fires every token Repeats times concurrently.
func (s *Simulator) runRound(ctx context.Context, clinicID uuid.UUID, round int) error {
	slotID, err := s.openSlot(ctx, clinicID, round)
	if err != nil {
		return err
	}

	tokens, err := s.confirmations.ListConfirmationsBySlot(ctx, slotID)
	if err != nil {
		return fmt.Errorf("list confirmations: %w", err)
	}
	if len(tokens) == 0 {
		atomic.AddInt64(&s.noTokens, 1)
		log.Printf("round %d: slot %s matched no standby patients", round, slotID)
		return nil
	}

	var (
		wg      sync.WaitGroup
		winners int64
		start   = make(chan struct{})
	)
	for _, c := range tokens {
		for i := 0; i < s.config.Repeats; i++ {
			wg.Add(1)
			go func(token string) {
				defer wg.Done()
				<-start
				if s.confirm(ctx, token) == http.StatusOK {
					atomic.AddInt64(&winners, 1)
				}
			}(c.Token)
		}
	}
	close(start)
	wg.Wait()

	if winners != 1 {
		atomic.AddInt64(&s.violations, 1)
		log.Printf("round %d: slot %s had %d successful redemptions", round, slotID, winners)
		return nil
	}
	log.Printf("round %d: slot %s claimed, %d tokens raced", round, slotID, len(tokens))
	return nil
}

func (s *Simulator) openSlot(ctx context.Context, clinicID uuid.UUID, round int) (uuid.UUID, error) {
	date := time.Now().UTC().AddDate(0, 0, 1+round%14)
	body, _ := json.Marshal(map[string]any{
		"date":       date.Format("2006-01-02"),
		"start_time": s.config.Start,
		"end_time":   s.config.End,
		"language":   s.config.Language,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/clinics/%s/slots", s.config.APIBaseURL, clinicID), bytes.NewReader(body))
	if err != nil {
		return uuid.Nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		s.createSlot.Record(latency, 0)
		return uuid.Nil, fmt.Errorf("create slot: %w", err)
	}
	defer resp.Body.Close()
	s.createSlot.Record(latency, resp.StatusCode)

	if resp.StatusCode != http.StatusCreated {
		return uuid.Nil, fmt.Errorf("create slot: unexpected status %d", resp.StatusCode)
	}
	var slot struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&slot); err != nil {
		return uuid.Nil, fmt.Errorf("decode slot: %w", err)
	}
	return slot.ID, nil
}

func (s *Simulator) confirm(ctx context.Context, token string) int {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/confirm/%s", s.config.APIBaseURL, token), nil)
	if err != nil {
		return 0
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		s.redeem.Record(latency, 0)
		return 0
	}
	defer resp.Body.Close()

	s.redeem.Record(latency, resp.StatusCode)
	return resp.StatusCode
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("STANDBY RACE REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Rounds: %d\n", s.config.Rounds)
	fmt.Printf("Rounds without standby matches: %d\n", atomic.LoadInt64(&s.noTokens))
	fmt.Printf("Rounds with a broken single-winner guarantee: %d\n", atomic.LoadInt64(&s.violations))
	fmt.Println()

	printOperationReport("Create slot", &s.createSlot)
	printOperationReport("Redeem token", &s.redeem)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	pct := func(n int64) float64 { return float64(n) / float64(total) * 100 }
	avg, p50, p95, max := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", om.Success, pct(om.Success))
	if om.Conflict > 0 {
		fmt.Printf("  Taken: %d (%.1f%%)\n", om.Conflict, pct(om.Conflict))
	}
	if om.Gone > 0 {
		fmt.Printf("  Invalid: %d (%.1f%%)\n", om.Gone, pct(om.Gone))
	}
	if om.Error > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", om.Error, pct(om.Error))
	}
	fmt.Printf("  Latency: avg=%s p50=%s p95=%s max=%s\n",
		avg.Round(time.Millisecond), p50.Round(time.Millisecond),
		p95.Round(time.Millisecond), max.Round(time.Millisecond))
	fmt.Println()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getClock(key string, def scheduling.Clock) scheduling.Clock {
	if v := os.Getenv(key); v != "" {
		if c, err := scheduling.ParseClock(v); err == nil {
			return c
		}
	}
	return def
}
