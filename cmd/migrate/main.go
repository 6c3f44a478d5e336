package main

import (
	"flag"
	"fmt"
	stdlog "log"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"gostore/config"
	"gostore/internal/pkg/database"
	"gostore/internal/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		stdlog.Printf("⚠️ Aviso: arquivo .env não encontrado; usando apenas o ambiente do sistema: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		stdlog.Fatalf("goose: configuração inválida: %v", err)
	}
	log := logger.NewLogger(cfg.LogLevel)

	var migrationsDir string
	flag.StringVar(&migrationsDir, "dir", "./sql", "diretório com os arquivos de migração")
	flag.Parse()

	db, err := database.NewPostgresDB(cfg.DatabaseURL, log)
	if err != nil {
		stdlog.Fatalf("goose: falha ao conectar ao DB: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			stdlog.Fatalf("goose: falha ao fechar o DB: %v", err)
		}
	}()

	if err := goose.SetDialect("postgres"); err != nil {
		stdlog.Fatalf("goose: %v", err)
	}

	arguments := flag.Args()
	if len(arguments) == 0 {
		arguments = []string{"up"}
	}
	command := arguments[0]
	args := arguments[1:]

	if err := goose.Run(command, db, migrationsDir, args...); err != nil {
		stdlog.Fatalf("goose %v: %v", command, err)
	}

	fmt.Printf("goose %s success\n", command)
}
