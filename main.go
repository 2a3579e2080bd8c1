package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"immodex/config"
	"immodex/ingest"
	"immodex/logging"
	"immodex/prefstore"
	"immodex/queue"
	"immodex/scheduler"
	"immodex/search"
	"immodex/storage"
	"immodex/workers"
)

var (
	sweepNow  = flag.Bool("sweep", false, "Enqueue the maintenance jobs once and exit")
	provision = flag.Bool("provision", false, "Create the search indexes for all configured zones and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logFile, err := logging.Setup(cfg.LogPath)
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting immodex...")
	log.Printf("Loaded %d zone configs", len(cfg.Zones))
	for name, zone := range cfg.Zones {
		log.Printf("  - %s (%s)", zone.LongName, name)
	}

	ctx := context.Background()

	esClient, err := search.New(cfg.Elastic)
	if err != nil {
		log.Fatalf("Failed to create search client: %v", err)
	}
	if err := esClient.Health(ctx); err != nil {
		log.Fatalf("Search store unreachable: %v", err)
	}
	log.Printf("Connected to search store: %s", cfg.Elastic.Host)

	if *provision {
		for zone := range cfg.Zones {
			if err := esClient.Zone(zone).CreateIndex(ctx); err != nil {
				log.Fatalf("Failed to provision %s: %v", zone, err)
			}
		}
		log.Println("Provisioning complete!")
		return
	}

	pool, err := prefstore.NewPool(ctx, cfg.Firebase)
	if err != nil {
		log.Fatalf("Failed to open preference store pool: %v", err)
	}
	store := prefstore.NewStore(pool, prefstore.NewTenantCache(), cfg.Firebase.DatabaseURL)
	users := prefstore.NewUsers(store, cfg.RootNode)
	catalogs := prefstore.NewCatalogs(store, cfg.RootNode)
	log.Printf("Preference store pool ready (%d connections)", cfg.Firebase.PoolSize)

	if registered, err := catalogs.List(ctx); err != nil {
		log.Printf("Warning: could not list catalogs: %v", err)
	} else {
		log.Printf("Loaded %d registered catalogs", len(registered))
	}

	pgStore, err := storage.NewPostgresStore(ctx, cfg.Queue.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer pgStore.Close()
	if err := pgStore.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to init schema: %v", err)
	}
	log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.Queue.DatabaseURL))

	q := queue.New(pgStore)
	sched := scheduler.New(cfg, q, users)

	if *sweepNow {
		log.Println("Enqueueing maintenance jobs...")
		if err := sched.EnqueueMaintenance(ctx); err != nil {
			log.Fatalf("Failed to enqueue maintenance: %v", err)
		}
		log.Println("Maintenance queued, jobs will run on the next daemon start")
		return
	}

	// Daemon mode
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dispatcher := queue.NewDispatcher(pgStore, cfg.Queue.PollInterval)
	workers.RegisterHandlers(dispatcher, workers.JobDeps{
		Queue: q,
		Runs:  pgStore,
		Pipeline: ingest.NewPipeline(func(zone string) ingest.DocStore {
			return esClient.Zone(zone)
		}, cfg.Quality),
		Reconciler: workers.NewReconciler(users, func(zone string) workers.Prober {
			return esClient.Zone(zone)
		}),
		Sweeper: workers.NewSweeper(func(zone string) workers.ZoneIndex {
			return esClient.Zone(zone)
		}),
		Alerter: workers.NewAlerter(pgStore),
	})
	go dispatcher.Run(ctx)

	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	sched.Stop()
	cancel()
	log.Println("Goodbye!")
}

// maskConnectionString hides the password of a connection string before it
// reaches the logs.
func maskConnectionString(connStr string) string {
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	colonIdx := -1
	atIdx := -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}
