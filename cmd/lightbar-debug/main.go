package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/thatsimonsguy/lightbar-controller/internal/recorder"
)

func main() {
	var dbPath, command string
	var limit int
	var keep time.Duration
	flag.StringVar(&dbPath, "db", "data/lightbar.db", "Path to the flight recorder database")
	flag.StringVar(&command, "cmd", "", "Command to run: events, snapshots, prune")
	flag.IntVar(&limit, "limit", 20, "Maximum rows to print")
	flag.DurationVar(&keep, "keep", 7*24*time.Hour, "History to keep when pruning")
	help := flag.Bool("help", false, "Show help")
	flag.Parse()

	if *help || command == "" {
		fmt.Println("\nUsage of lightbar-debug:")
		fmt.Println("  -db string\tPath to the flight recorder database (default 'data/lightbar.db')")
		fmt.Println("  -cmd string\tCommand to run: events, snapshots, prune")
		fmt.Println("  -limit int\tMaximum rows to print (default 20)")
		fmt.Println("  -keep duration\tHistory to keep when pruning (default 168h)")
		fmt.Println("  -help\tShow this help message")
		os.Exit(0)
	}

	var err error
	switch command {
	case "events":
		err = printEvents(dbPath, limit)
	case "snapshots":
		err = printSnapshots(dbPath, limit)
	case "prune":
		err = prune(dbPath, keep)
	default:
		fmt.Println("Invalid command")
		os.Exit(1)
	}

	if err != nil {
		fmt.Printf("Command %s failed: %v\n", command, err)
		os.Exit(1)
	}
}

func printEvents(dbPath string, limit int) error {
	events, err := recorder.RecentEvents(dbPath, limit)
	if err != nil {
		return err
	}
	for _, e := range events {
		fmt.Printf("%s  %-12s %s -> %s\n", e.At.Format(time.RFC3339), e.Kind, e.From, e.To)
	}
	return nil
}

func printSnapshots(dbPath string, limit int) error {
	snaps, err := recorder.RecentSnapshots(dbPath, limit)
	if err != nil {
		return err
	}
	for _, s := range snaps {
		fmt.Printf("%s  lux=%.1f (filtered %.1f, stale %d)  light=%s presence=%s phase=%s level=%d/%d power=%s\n",
			s.Time.Format(time.RFC3339), s.RawLux, s.FilteredLux, s.LuxStale,
			s.Light, s.Presence, s.Phase, s.Level, s.Target, s.SensorPower)
	}
	return nil
}

func prune(dbPath string, keep time.Duration) error {
	n, err := recorder.Prune(dbPath, time.Now().Add(-keep))
	if err != nil {
		return err
	}
	fmt.Printf("Pruned %d rows\n", n)
	return nil
}
