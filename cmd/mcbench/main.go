// mcbench runs get/set benchmarks against memcached through a connection
// pool.
//
// Usage:
//
//	mcbench -servers=127.0.0.1:11211 -workers=8 -pool=bounded -slots=4
//	mcbench -config=mcbench.yaml -duration=30s
//	mcbench -servers=mock -pool=mapped -rate=5000
//
// Flags given on the command line override the config file.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/lericson/pylibmc/config"
	"github.com/lericson/pylibmc/context2"
	"github.com/lericson/pylibmc/resource_pool"
	"github.com/lericson/pylibmc/stats"
	"github.com/lericson/pylibmc/time2"
)

var (
	configPath = flag.String("config", "", "Path to a YAML config file")
	servers    = flag.String(
		"servers",
		"",
		"Comma separated server specs (host[:port], /path/to/socket or "+
			"\"mock\").  Overrides the config file")
	workers  = flag.Int("workers", 4, "Number of concurrent workers")
	duration = flag.Duration(
		"duration",
		10*time.Second,
		"How long to run each benchmark")
	poolKind = flag.String(
		"pool",
		"",
		"Pool kind: bounded or mapped.  Overrides the config file")
	slots = flag.Int(
		"slots",
		0,
		"Bounded pool capacity.  Overrides the config file")
	timeout = flag.Duration(
		"timeout",
		-1,
		"How long to wait for a pooled connection (0 waits forever).  "+
			"Overrides the config file")
	rate = flag.Float64(
		"rate",
		0,
		"Maximum rounds per second across all workers (0 is unlimited)")
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}

	if *servers != "" {
		cfg.Servers = strings.Split(*servers, ",")
	}
	if *poolKind != "" {
		cfg.Pool.Kind = *poolKind
	}
	if *slots > 0 {
		cfg.Pool.Slots = *slots
	}
	if *timeout >= 0 {
		cfg.Pool.ReserveTimeout = *timeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	flag.Parse()

	logger := log.New(os.Stderr, "mcbench: ", log.LstdFlags)

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatalf("Invalid configuration: %s", err)
	}
	if *workers <= 0 {
		logger.Fatalf("Invalid number of workers: %d", *workers)
	}
	if *rate < 0 {
		logger.Fatalf("Invalid rate: %f", *rate)
	}

	master, err := config.NewConnection(cfg)
	if err != nil {
		logger.Fatalf("Failed to create connection: %s", err)
	}

	statsFactory := stats.NewLocalFactory()
	pool, err := config.NewPool(
		cfg,
		master,
		resource_pool.Options{StatsFactory: statsFactory})
	if err != nil {
		logger.Fatalf("Failed to create pool: %s", err)
	}

	ctx, cancel := context2.WithCancelOnSignal(
		context.Background(),
		os.Interrupt,
		unix.SIGTERM)
	defer cancel()

	logger.Printf(
		"benching %s with a %s pool, %d workers",
		strings.Join(cfg.Servers, ","),
		cfg.Pool.Kind,
		*workers)

	runBenchmarks(
		ctx,
		pool,
		benchmarks,
		benchOptions{
			workers:        *workers,
			duration:       *duration,
			reserveTimeout: cfg.Pool.ReserveTimeout,
			rate:           *rate,
			clock:          time2.DefaultClock,
			logger:         logger,
		})

	values := statsFactory.Values()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		logger.Printf("%s = %v", k, values[k])
	}

	logProcessUsage(logger)
}
