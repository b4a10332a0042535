package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"aria/internal/app"
	"aria/internal/audio"
	"aria/internal/config"
	"aria/internal/library"
	"aria/internal/metadata"
	"aria/internal/notify"
	"aria/internal/player"
	"aria/internal/playlist"
	"aria/internal/stats"
	"aria/internal/visualizer"
	"aria/internal/watcher"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// tickInterval matches a 30fps UI frame.
const tickInterval = 33 * time.Millisecond

func main() {
	// Optional .env for overriding the config path during development
	_ = godotenv.Load()

	configPath := os.Getenv("ARIA_CONFIG")
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		configPath = filepath.Join(home, ".config", "aria", "config.toml")
	}

	// Initialize basic logger for startup
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.WithError(err).Fatal("Error loading configuration")
	}
	configureLogger(logger, cfg.Logging)

	// Check if music directory exists
	if _, err := os.Stat(cfg.Library.Path); os.IsNotExist(err) {
		logger.WithField("library_path", cfg.Library.Path).Fatal("Music directory does not exist. Please create it and add your music files.")
	}

	vis := visualizer.NewPipeline(logger)
	driver := audio.NewBeepDriver(logger, vis.SampleInput())

	engine := player.NewEngine(driver, cfg.Audio.OutputDevice, logger)
	engine.SetVolume(cfg.Audio.Volume)

	extractor := metadata.NewExtractor(cfg.Library.SupportedFormats, logger)
	scanner := library.NewScanner(extractor, logger)

	debounce := time.Duration(cfg.Library.RescanDebounceSeconds) * time.Second
	w, err := watcher.New(scanner, logger, debounce)
	if err != nil {
		logger.WithError(err).Fatal("Error starting library watcher")
	}
	w.ChangeWatchedPath(cfg.Library.Path)

	var st *stats.Store
	if cfg.Stats.Enabled {
		st, err = stats.Open(cfg.Stats.Path, logger)
		if err != nil {
			logger.WithError(err).Warn("Play statistics unavailable")
		}
	}

	store := playlist.NewStore(logger)
	notices := notify.NewCenter(logger)
	a := app.New(cfg, configPath, engine, w, store, vis, notices, st, logger)

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	logger.WithField("library_path", cfg.Library.Path).Info("Aria started")
	for {
		select {
		case <-ticker.C:
			a.Tick()
		case <-c:
			logger.Info("Received shutdown signal")
			a.Close()
			return
		}
	}
}

func configureLogger(logger *logrus.Logger, cfg config.LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			logger.WithError(err).Warn("Could not open log file, logging to stderr")
			return
		}
		logger.SetOutput(f)
	}
}
