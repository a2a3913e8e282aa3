package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"trade-journal/config"
	"trade-journal/internal/export"
	"trade-journal/internal/store"
	"trade-journal/internal/store/postgres"
	"trade-journal/internal/store/rest"
)

// Offline export tool: pulls one session straight from the store and writes
// the same JSON or spreadsheet document the API's export endpoint serves.
func main() {
	godotenv.Load()
	godotenv.Load(".env")

	var (
		userID    = flag.String("user", "00000000-0000-0000-0000-000000000000", "owner of the session")
		sessionID = flag.String("session", "", "session ID to export (required)")
		format    = flag.String("format", "json", "json or xlsx")
		outPath   = flag.String("out", "", "output file (default session-<id>.<format>)")
	)
	flag.Parse()

	if *sessionID == "" {
		fmt.Println("❌ -session is required")
		flag.Usage()
		os.Exit(1)
	}
	if *format != "json" && *format != "xlsx" {
		fmt.Printf("❌ unknown format %q (want json or xlsx)\n", *format)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	st := openStore(cfg)
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sessions, err := st.ListSessions(ctx, *userID)
	if err != nil {
		fmt.Printf("❌ Failed to list sessions: %v\n", err)
		os.Exit(1)
	}

	var session *store.TradingSession
	for _, s := range sessions {
		if s.ID == *sessionID {
			session = s
			break
		}
	}
	if session == nil {
		fmt.Printf("❌ Session %s not found for user %s\n", *sessionID, *userID)
		os.Exit(1)
	}

	trades, err := st.ListTrades(ctx, *userID, *sessionID)
	if err != nil {
		fmt.Printf("❌ Failed to list trades: %v\n", err)
		os.Exit(1)
	}

	doc := export.Build(session, trades)

	path := *outPath
	if path == "" {
		path = fmt.Sprintf("session-%s.%s", *sessionID, *format)
	}

	file, err := os.Create(path)
	if err != nil {
		fmt.Printf("❌ Failed to create %s: %v\n", path, err)
		os.Exit(1)
	}
	defer file.Close()

	switch *format {
	case "json":
		err = doc.WriteJSON(file)
	case "xlsx":
		err = doc.WriteXLSX(file)
	}
	if err != nil {
		fmt.Printf("❌ Export failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Exported %q (%d trades) to %s\n", session.Name, len(trades), path)
}

func openStore(cfg *config.Config) store.Store {
	switch cfg.StoreConfig.Driver {
	case "rest":
		return rest.NewClient(rest.Config{
			BaseURL:    cfg.StoreConfig.REST.BaseURL,
			ServiceKey: cfg.StoreConfig.REST.ServiceKey,
			Timeout:    time.Duration(cfg.StoreConfig.REST.Timeout) * time.Second,
		})
	default:
		db, err := postgres.NewDB(postgres.Config{
			Host:     cfg.StoreConfig.Postgres.Host,
			Port:     cfg.StoreConfig.Postgres.Port,
			User:     cfg.StoreConfig.Postgres.User,
			Password: cfg.StoreConfig.Postgres.Password,
			Database: cfg.StoreConfig.Postgres.Database,
			SSLMode:  cfg.StoreConfig.Postgres.SSLMode,
		})
		if err != nil {
			fmt.Printf("❌ Failed to connect to database: %v\n", err)
			os.Exit(1)
		}
		return postgres.NewRepository(db)
	}
}
