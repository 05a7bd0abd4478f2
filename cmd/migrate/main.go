// Command migrate manages the ledger schema.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/medierp/ledger/internal/infrastructure/config"
	"github.com/medierp/ledger/internal/infrastructure/logger"
	"github.com/medierp/ledger/internal/infrastructure/migration"
)

const usage = `Ledger schema migrations

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down [n]              Roll back n migrations (default 1)
  goto <version>        Migrate up or down to a version
  version               Show the applied version
  status                List migrations and whether each is applied
  force <version>       Mark a version applied after fixing a dirty state
  create <name> [desc]  Scaffold an up/down pair

Flags:
  -path string          Migrations directory (default ./migrations)
  -config string        Config file (default: search . ./config /etc/ledger)
  -log-level string     debug, info, warn, error (default info)

The database is taken from the [database] section or LEDGER_DATABASE_* env.`

func main() {
	var (
		dir        string
		configPath string
		logLevel   string
	)
	flag.StringVar(&dir, "path", "migrations", "migrations directory")
	flag.StringVar(&configPath, "config", "", "config file")
	flag.StringVar(&logLevel, "log-level", "info", "log level")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	log, err := logger.New(logger.Config{Level: logLevel, Format: "console", Output: "stderr"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(args, dir, configPath, log); err != nil {
		log.Error("Migration command failed", zap.String("command", args[0]), zap.Error(err))
		os.Exit(1)
	}
}

func run(args []string, dir, configPath string, log *zap.Logger) error {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve migrations path: %w", err)
	}

	// create only touches the filesystem
	if args[0] == "create" {
		if len(args) < 2 {
			return fmt.Errorf("usage: migrate create <name> [description]")
		}
		desc := ""
		if len(args) > 2 {
			desc = args[2]
		}
		f, err := migration.Create(dir, args[1], desc, time.Now())
		if err != nil {
			return err
		}
		log.Info("Migration created", zap.String("up", f.UpPath), zap.String("down", f.DownPath))
		return nil
	}

	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	m, err := migration.New(db, dir, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()

	switch args[0] {
	case "up":
		return m.Up()
	case "down":
		n := 1
		if len(args) > 1 {
			if n, err = strconv.Atoi(args[1]); err != nil || n < 1 {
				return fmt.Errorf("invalid step count %q", args[1])
			}
		}
		return m.Steps(-n)
	case "goto":
		if len(args) < 2 {
			return fmt.Errorf("usage: migrate goto <version>")
		}
		version, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid version %q", args[1])
		}
		return m.GoTo(uint(version))
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		log.Info("Applied version", zap.Uint("version", version), zap.Bool("dirty", dirty))
		return nil
	case "status":
		lines, err := m.Status()
		if err != nil {
			return err
		}
		for _, l := range lines {
			mark := "pending"
			if l.Applied {
				mark = "applied"
			}
			fmt.Printf("%-8s %d_%s\n", mark, l.File.Version, l.File.Name)
		}
		return nil
	case "force":
		if len(args) < 2 {
			return fmt.Errorf("usage: migrate force <version>")
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[1])
		}
		return m.Force(version)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}
