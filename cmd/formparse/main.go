package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"

	"formparse/config"
	"formparse/form"
	"formparse/logging"
)

// CLI is the formparse command line.
type CLI struct {
	LogLevel   string `name:"loglevel" help:"Sets log level. Can be one of: debug, info, warn, error, fatal, panic. Overrides the config file."`
	Config     string `short:"c" type:"existingfile" env:"FORMPARSE_CONFIG" help:"YAML config file. Built in defaults are used when omitted."`
	BodyLimits string `name:"bodylimits" help:"If set, use these request body length limits. Unit is bytes. Takes two integer values: max total request body length, and max bytes of form field names and values held in memory. Example: --bodylimits=734003200,512000"`

	Serve ServeCLI `cmd:"" help:"Run the HTTP form parsing service."`
	Dump  DumpCLI  `cmd:"" help:"Parse one body from a file or stdin and print what was found as JSON."`
}

// Dependency injection composition root
func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("formparse"),
		kong.Description("Streaming parser for multipart/form-data and application/x-www-form-urlencoded request bodies."),
		kong.UsageOnError(),
	)

	cfg, err := cli.loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewConsoleLogger(os.Stderr, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid log level: %v\n", err)
		os.Exit(1)
	}

	err = kctx.Run(logger, &cfg)
	kctx.FatalIfErrorf(err)
}

// loadConfig reads the config file, if any, and applies the flags that override it.
func (c *CLI) loadConfig() (cfg config.Main, err error) {
	cfg = config.Default()
	if c.Config != "" {
		if cfg, err = config.Load(c.Config); err != nil {
			return
		}
	}

	if c.LogLevel != "" {
		cfg.Logging.Level = c.LogLevel
	}

	limits, err := parseLengthLimitsArgOrDefault(c.BodyLimits, form.Limits{
		MaxContentLength:  cfg.Parser.MaxContentLength,
		MaxFormMemorySize: cfg.Parser.MaxFormMemorySize,
	})
	if err != nil {
		return
	}
	cfg.Parser.MaxContentLength = limits.MaxContentLength
	cfg.Parser.MaxFormMemorySize = limits.MaxFormMemorySize

	err = cfg.Validate()
	return
}

func parseLengthLimitsArgOrDefault(limitsArg string, defaults form.Limits) (limits form.Limits, err error) {
	limits = defaults

	if limitsArg == "" {
		return
	}

	nn := strings.Split(limitsArg, ",")
	if len(nn) != 2 {
		err = fmt.Errorf("the bodylimits arg must contain exactly 2 comma separated integer values")
		return
	}

	if limits.MaxContentLength, err = strconv.ParseInt(strings.TrimSpace(nn[0]), 10, 64); err != nil {
		err = fmt.Errorf("error while parsing bodylimits arg 1: %w", err)
		return
	}

	if limits.MaxFormMemorySize, err = strconv.ParseInt(strings.TrimSpace(nn[1]), 10, 64); err != nil {
		err = fmt.Errorf("error while parsing bodylimits arg 2: %w", err)
		return
	}

	return
}
