package main

import (
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/aeolun/pulse/pkg/server"
)

var (
	// Version is set at build time via ldflags
	Version = "dev"
)

func main() {
	configPath := flag.String("config", "~/.pulse/config.toml", "Path to config file")
	port := flag.Int("port", 0, "HTTP port to listen on (overrides config)")
	logLevel := flag.String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	version := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *version {
		fmt.Printf("Pulse Server %s\n", Version)
		os.Exit(0)
	}

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q: %v\n", *logLevel, err)
		os.Exit(1)
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	tomlConfig, err := server.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	config := tomlConfig.ToConfig()
	if *port != 0 {
		config.HTTPPort = *port
	}

	srv := server.NewServer(config, log)
	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}

	log.Info().
		Str("version", Version).
		Int("port", config.HTTPPort).
		Msgf("pulse server started (ws://localhost:%d/ws)", config.HTTPPort)

	if config.PprofPort != 0 {
		go func() {
			addr := fmt.Sprintf("localhost:%d", config.PprofPort)
			log.Info().Str("addr", addr).Msg("starting pprof server")
			if err := http.ListenAndServe(addr, nil); err != nil {
				log.Error().Err(err).Msg("pprof server error")
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down server")
	if err := srv.Stop(); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("server stopped")
}
