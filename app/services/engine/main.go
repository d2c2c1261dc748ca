package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Michellebuchiokonicha/quest-contract/app/services/engine/handlers"
	"github.com/Michellebuchiokonicha/quest-contract/business/engine"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/events"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/event"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/genesis"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/host"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/store"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/store/leveldb"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/store/memory"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/ledger/token"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/logger"
	"github.com/Michellebuchiokonicha/quest-contract/foundation/nameservice"
	"github.com/ardanlabs/conf/v3"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ENGINE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
		}
		Ledger struct {
			GenesisPath   string `conf:"default:zledger/genesis.json"`
			BootstrapPath string `conf:"default:zledger/engine.toml"`
			DBPath        string `conf:"default:zledger/engine.db"`
			Storage       string `conf:"default:disk"`
			EventsKeep    int    `conf:"default:256"`
		}
		NameService struct {
			Folder string `conf:"default:zledger/accounts/"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "ENGINE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	fmt.Println(`   ___  _   _ _____ ____ _____   _____ _   _  ____ ___ _   _ _____ `)
	fmt.Println(`  / _ \| | | | ____/ ___|_   _| | ____| \ | |/ ___|_ _| \ | | ____|`)
	fmt.Println(` | | | | | | |  _| \___ \ | |   |  _| |  \| | |  _ | ||  \| |  _|  `)
	fmt.Println(` | |_| | |_| | |___ ___) || |   | |___| |\  | |_| || || |\  | |___ `)
	fmt.Println(`  \__\_\\___/|_____|____/ |_|   |_____|_| \_|\____|___|_| \_|_____|`)
	fmt.Print("\n")

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Name Service Support

	// The nameservice package provides name resolution for account addresses.
	// The names come from the file names in the zledger/accounts folder.
	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		return fmt.Errorf("unable to load account name service: %w", err)
	}

	// Logging the accounts for documentation in the logs.
	for accountID, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "account", accountID)
	}

	// =========================================================================
	// Ledger Support

	// The genesis file seeds the token bank with the opening balances.
	gen, err := genesis.Load(cfg.Ledger.GenesisPath)
	if err != nil {
		return fmt.Errorf("unable to load genesis file: %w", err)
	}
	bank := token.New(gen.Balances)

	// Select the storage implementation the contracts run against.
	var str store.Store
	switch cfg.Ledger.Storage {
	case "disk":
		db, err := leveldb.New(cfg.Ledger.DBPath)
		if err != nil {
			return fmt.Errorf("unable to open contract database: %w", err)
		}
		defer db.Close()
		str = db

	case "memory":
		str = memory.New()

	default:
		return fmt.Errorf("unknown storage option %q", cfg.Ledger.Storage)
	}

	// Committed contract events are logged and fanned out to any websocket
	// client connected through the events package.
	evts := events.New()
	defer evts.Shutdown()

	evtLog := event.NewLog(cfg.Ledger.EventsKeep, func(evt event.Event) {
		log.Infow("contract event", "contract", evt.Contract, "name", evt.Name, "entity", evt.Entity, "actor", evt.Actor, "amount", evt.Amount, "sequence", evt.Sequence)
		evts.Send(evt)
	})

	h := host.New(host.Config{
		Store:  str,
		Bank:   bank,
		Events: evtLog,
	})

	// =========================================================================
	// Engine Support

	eng := engine.New(engine.Config{
		Log:  log,
		Host: h,
	})

	// Apply the contract bootstrap configuration. This is idempotent over
	// a persistent store.
	boot, err := engine.LoadBootstrap(cfg.Ledger.BootstrapPath)
	if err != nil {
		return fmt.Errorf("unable to load bootstrap file: %w", err)
	}
	if err := eng.Bootstrap(boot); err != nil {
		return fmt.Errorf("unable to bootstrap contracts: %w", err)
	}

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, h)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		Engine:   eng,
		NS:       ns,
		Genesis:  gen,
		Evts:     evts,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}
