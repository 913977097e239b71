package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/shopvia/shopvia-backend/pkg/config"
	"github.com/shopvia/shopvia-backend/pkg/migrate"
)

func main() {
	statusOnly := flag.Bool("status", false, "print migration status instead of applying")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sqlDB, err := sql.Open("pgx", cfg.DB.DSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.PingContext(ctx); err != nil {
		log.Fatalf("ping database: %v", err)
	}

	if *statusOnly {
		if err := migrate.Status(ctx, sqlDB); err != nil {
			log.Fatalf("migration status: %v", err)
		}
		return
	}

	if err := migrate.Up(ctx, sqlDB); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}
	log.Println("migrations applied")
}
