package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/pkg/errors"

	"historydb/pkg/config"
	"historydb/pkg/record"
)

func main() {
	configPath := flag.String("config", "", "path to history.yaml")
	seed := flag.Int("seed", 0, "write this many sample records before walking")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	h, err := record.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open history: %v", err)
	}
	defer h.Close()

	start := time.Now()
	if err := seedRecords(h, *seed, start); err != nil {
		log.Fatalf("Failed to seed: %v", err)
	}

	fmt.Printf("History at %s (%s backend)\n", cfg.Storage.Path, cfg.Storage.Backend)
	count := 0
	for r := h.Newest(); r != nil; r = h.Previous(r) {
		fmt.Printf("  #%-6d %-24s %s\n", r.Number, r.ID, r.Status)
		count++
	}
	fmt.Printf("Walked %d records in %v\n", count, time.Since(start))
	fmt.Printf("Stats: %v\n", h.Stats())
}

// seedRecords appends count records numbered after the newest one, so numbers
// are never reused across runs.
func seedRecords(h *record.History, count int, now time.Time) error {
	first := 1
	if last, err := h.LastKey(); err == nil {
		first = last + 1
	}
	for i := first; i < first+count; i++ {
		r := &record.Record{
			Number:    i,
			ID:        fmt.Sprintf("%s_%06d", now.Format("20060102"), i),
			Status:    "SUCCESS",
			StartedAt: now.Add(time.Duration(i) * time.Minute),
		}
		if err := h.Add(r); err != nil {
			return errors.Wrapf(err, "add record %d", i)
		}
	}
	return nil
}
