package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/pvu/tasksync/internal/api"
	"github.com/pvu/tasksync/internal/assist"
	"github.com/pvu/tasksync/internal/config"
	"github.com/pvu/tasksync/internal/credential"
	"github.com/pvu/tasksync/internal/feed"
	"github.com/pvu/tasksync/internal/localstore"
	"github.com/pvu/tasksync/internal/reconcile"
	"github.com/pvu/tasksync/internal/remote"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to config file")
	setKey := flag.Bool("set-api-key", false, "read an assistant API key from stdin, store it in the OS keyring, and exit")
	clearKey := flag.Bool("clear-api-key", false, "remove the stored assistant API key and exit")
	flag.Parse()

	if *setKey {
		if err := storeAPIKey(); err != nil {
			log.Fatalf("storing API key: %v", err)
		}
		log.Println("API key stored")
		return
	}
	if *clearKey {
		if err := credential.Delete(credential.KeyAnthropicAPI); err != nil {
			log.Fatalf("clearing API key: %v", err)
		}
		log.Println("API key removed")
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// First run: materialize the defaults so users have a file to edit.
	if _, err := os.Stat(*configPath); errors.Is(err, os.ErrNotExist) {
		if err := config.Save(*configPath, cfg); err != nil {
			log.Printf("writing default config: %v", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Local.Path), 0o755); err != nil {
		log.Fatalf("creating data directory: %v", err)
	}
	local, err := localstore.New(cfg.Local.Path)
	if err != nil {
		log.Fatalf("opening local store: %v", err)
	}
	defer local.Close()

	opts := []reconcile.Option{}

	if cfg.Remote.DSN != "" {
		db, err := remote.Connect(cfg.Remote.DSN)
		if err != nil {
			log.Fatalf("connecting to remote store: %v", err)
		}
		defer db.Close()

		scheduler := remote.NewPostgresReminderScheduler(db)
		opts = append(opts,
			reconcile.WithRemote(remote.NewTaskStore(db, scheduler)),
			reconcile.WithFeed(feed.NewPostgresSubscriber(cfg.Remote.DSN)),
		)
	} else {
		log.Println("no remote DSN configured; running in local-only mode")
	}

	apiKey, err := credential.Get(credential.KeyAnthropicAPI)
	if err != nil {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey != "" {
		opts = append(opts, reconcile.WithEngine(
			assist.NewClaudeEngine(apiKey, cfg.AI.Model, cfg.AI.MaxTokens)))
	} else {
		log.Println("no assistant API key found; chat is disabled")
	}

	rec := reconcile.New(local, opts...)
	defer rec.Close()

	secret := []byte(cfg.API.JWTSecret)
	if len(secret) == 0 {
		secret = []byte(os.Getenv("TASKSYNC_JWT_SECRET"))
	}

	server := api.New(rec, secret)
	log.Printf("listening on %s", cfg.API.Addr)
	log.Fatal(http.ListenAndServe(cfg.API.Addr, server.Handler(cfg.API.AllowedOrigins)))
}

// storeAPIKey reads a key from stdin so it never appears in the
// process argument list.
func storeAPIKey() error {
	fmt.Fprint(os.Stderr, "API key: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("reading key: %w", err)
	}

	key := strings.TrimSpace(line)
	if key == "" {
		return fmt.Errorf("empty key")
	}
	return credential.Set(credential.KeyAnthropicAPI, key)
}
