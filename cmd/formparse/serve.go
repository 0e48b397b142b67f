package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"formparse/bodyparsing"
	"formparse/config"
	"formparse/form"
	"formparse/logging"
	"formparse/server"
)

// ServeCLI runs the HTTP service.
type ServeCLI struct {
	Listen string `short:"l" env:"FORMPARSE_LISTEN" help:"Address to listen on. Overrides the config file."`
}

func (s *ServeCLI) Run(logger zerolog.Logger, cfg *config.Main) error {
	if s.Listen != "" {
		cfg.Server.Addr = s.Listen
	}
	logEffectiveConfig(logger, cfg)

	rl, closeResultsLogger, err := newResultsLogger(logger, cfg)
	if err != nil {
		return err
	}
	defer closeResultsLogger()

	opts := cfg.ParserOptions()
	handler := server.NewServer(logger, bodyparsing.NewFormDataParser(opts), opts.Limits, rl)

	lis, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("unable to listen on %v: %w", cfg.Server.Addr, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Serve(ctx, logger, lis, handler, cfg.Server.ShutdownTimeout)
}

func logEffectiveConfig(logger zerolog.Logger, cfg *config.Main) {
	bb, err := cfg.Marshal()
	if err != nil {
		logger.Warn().Err(err).Msg("Error while rendering the effective config")
		return
	}

	logger.Debug().Msgf("Effective config:\n%s", bb)
}

func newResultsLogger(logger zerolog.Logger, cfg *config.Main) (rl form.ResultsLogger, closeFn func() error, err error) {
	closeFn = func() error { return nil }

	switch cfg.Logging.ResultsLog {
	case "file":
		var frl *logging.FileResultsLogger
		frl, err = logging.NewFileResultsLogger(&logging.LogFileSystemImpl{}, logger, cfg.Logging.ResultsLogDir, logging.MetaData{
			ResourceID: cfg.Logging.ResourceID,
			InstanceID: cfg.Logging.InstanceID,
		})
		if err != nil {
			return
		}
		rl, closeFn = frl, frl.Close
	case "none":
		rl = logging.NewNopResultsLogger()
	default:
		rl = logging.NewZerologResultsLogger(logger)
	}

	return
}
