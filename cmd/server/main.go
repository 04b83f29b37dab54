package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jmolero/ComandaDB"
	"github.com/jmolero/ComandaDB/core"
	"github.com/jmolero/ComandaDB/ps"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	port := flag.Int("port", 0, "TCP port to listen on (overrides config)")
	baseDir := flag.String("baseDir", "", "Base directory for persistence (overrides config, memory if empty)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ComandaDB Server v%s\n", Version)
		return
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *baseDir != "" {
		cfg.Store.BaseDir = *baseDir
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	var store *ps.Store
	if cfg.Store.BaseDir == "" {
		logger.Info("using memory persistence")
		store, err = ps.NewMemoryStore()
	} else {
		logger.Info("using file persistence", zap.String("base_dir", cfg.Store.BaseDir))
		store, err = ps.NewFileStore(cfg.Store.BaseDir)
	}
	if err != nil {
		logger.Fatal("failed to initialize persistence", zap.Error(err))
	}

	identity := core.Identity{
		Name:  "ComandaDB Server",
		Email: "server@comanda.local",
	}

	instance := ComandaDB.Open(store)
	if err := instance.Initialize(identity); err != nil {
		logger.Fatal("failed to seed store", zap.Error(err))
	}

	var server *Server
	if cfg.Auth.Enabled {
		server = NewServerWithAuth(instance, &cfg.Auth)
	} else {
		server = NewServer(instance, identity)
	}
	server.SetLogger(logger)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	if cfg.Server.TLSCert != "" {
		err = server.StartTLS(addr, cfg.Server.TLSCert, cfg.Server.TLSKey)
	} else {
		err = server.Start(addr)
	}
	if err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	logger.Info("ComandaDB server ready",
		zap.String("version", Version),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("tls", server.TLSEnabled()),
		zap.Bool("auth", cfg.Auth.Enabled),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	server.Stop()
	logger.Info("server stopped")
}

// newLogger builds a zap logger: prod uses JSON output, everything else
// uses colored console output.
func newLogger(cfg LoggingConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Env == "prod" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if cfg.Level != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	return zapCfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}
