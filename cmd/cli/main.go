package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"strings"

	"github.com/dmitrijs2005/brestid/internal/cli"
	"github.com/dmitrijs2005/brestid/internal/server/config"
	"github.com/dmitrijs2005/brestid/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/brestid/internal/server/services"
)

// command returns the first non-flag argument.
func command(args []string) string {
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			return arg
		}
	}
	return ""
}

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	m, err := repomanager.NewPostgresRepositoryManager()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	if err := m.RunMigrations(ctx, db); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	as := services.NewAuthService(db, m, cfg)

	app := cli.NewApp(as)
	if err := app.Run(ctx, command(os.Args[1:])); err != nil {
		os.Exit(1)
	}

}
