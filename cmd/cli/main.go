// Command rollbook is a local attendance tracker backed by files under the user config dir.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/and161185/rollbook/internal/config"
	"github.com/and161185/rollbook/internal/contact"
	pkgcrypto "github.com/and161185/rollbook/internal/crypto"
	"github.com/and161185/rollbook/internal/insight"
	"github.com/and161185/rollbook/internal/insight/gemini"
	"github.com/and161185/rollbook/internal/repository/kv"
	"github.com/and161185/rollbook/internal/service"
	"github.com/and161185/rollbook/internal/store"
)

// ---- config dir ----

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "rollbook")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "rollbook")
}

// ---- utils ----

func readAll(p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(p)
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func usage() {
	fmt.Fprintf(os.Stderr, `rollbook CLI
Usage:
  rollbook <cmd> [args]

Commands:
  version
  register   -u <username> -p <password>
  login      -u <username> -p <password>
  logout
  whoami
  add        -name <student> [-date YYYY-MM-DD] [-status Present|Absent|Late]
  list
  rm         -id <record id>
  analyze                                       (AI summary of all records)
  refine     -text <message | ->                (AI rewrite, "-" reads stdin)
  contact    -name <n> -email <e> -subject <s> -message <m | ->
`)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

func newLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.OutputPaths = []string{"stderr"}
	l, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

// newApp wires services over the file store in dir.
func newApp(cfg config.App, dir string, log *zap.Logger, out io.Writer) (*app, error) {
	fs, err := store.NewFile(dir, cfg.QuotaBytes)
	if err != nil {
		return nil, err
	}
	var sub contact.Submitter = contact.Simulated{Delay: cfg.ContactDelay}
	if cfg.ContactEndpoint != "" {
		sub = contact.NewHTTP(cfg.ContactEndpoint)
	}
	return &app{
		auth:       service.NewAuthService(kv.NewUserRepo(fs, log), pkgcrypto.DefaultParams, log),
		attendance: service.NewAttendanceService(kv.NewAttendanceRepo(fs, log)),
		insights: insight.NewGenerator(
			gemini.New(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.CompletionTimeout),
			cfg.GeminiModel, log, nil),
		contact: contact.NewService(sub, log),
		out:     out,
	}, nil
}

// main loads configuration and dispatches a single subcommand.
func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}
	log := newLogger()
	defer func() { _ = log.Sync() }()

	a, err := newApp(cfg, cfgDir(), log, os.Stdout)
	if err != nil {
		fail(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	if err := a.run(ctx, flag.Args()); err != nil {
		if errors.Is(err, errUsage) {
			usage()
			os.Exit(2)
		}
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, userMessage(err))
	os.Exit(1)
}
