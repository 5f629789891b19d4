// Command quiz is a terminal client for timed quiz attempts. Questions come from
// the HTTP API; attempt state is kept locally so an interrupted attempt can be
// resumed.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"timedquiz/internal/app"
	"timedquiz/internal/client"
	"timedquiz/internal/config"
	"timedquiz/internal/quiz"
	"timedquiz/internal/transport/cli"
)

func main() {
	apiURL := flag.String("api", "", "question API base URL (QUIZ_API_URL)")
	store := flag.String("store", "", "state store: sqlite, redis or memory (STATE_STORE, default sqlite)")
	sqlitePath := flag.String("db", "", "SQLite file for the sqlite store (SQLITE_PATH)")
	profile := flag.String("profile", "", "namespace for the stored attempt")
	flag.Parse()

	if *store == "" && os.Getenv("STATE_STORE") == "" {
		*store = config.StoreSQLite
	}

	cfg, err := config.Load(config.Config{
		APIURL:     *apiURL,
		StateStore: *store,
		SQLitePath: *sqlitePath,
	})
	if err != nil {
		log.Fatal("Invalid configuration:", err)
	}

	// Keep diagnostics out of the quiz screen
	logFile, err := os.OpenFile("quiz.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err == nil {
		log.SetOutput(logFile)
		defer logFile.Close()
	}

	ctx := context.Background()
	a := app.New(cfg)
	defer func() {
		if err := a.Close(ctx); err != nil {
			log.Println(err)
		}
	}()

	storage, err := a.Storage(ctx)
	if err != nil {
		log.SetOutput(os.Stderr)
		log.Fatal("Failed to open state storage:", err)
	}

	term := cli.NewTerminal(
		client.NewQuestionClient(cfg.APIURL),
		quiz.NewPersister(storage, *profile, nil),
		os.Stdout,
	)
	if err := term.Run(ctx, os.Stdin); err != nil {
		log.Println(err)
	}
}
