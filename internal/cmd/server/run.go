// Package server implements the "infocomp server" subcommand.
package server

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"infocomp/internal/config"
	"infocomp/internal/daemon"
	"infocomp/internal/logging"
)

type Options struct {
	ConfigPath string
	EnvFile    string
	LogLevel   string
	LogJSON    bool
	DBPath     string
	UploadsDir string
	Bind       string
	Port       int
}

// Run loads configuration, applies flag overrides and serves until SIGINT
// or SIGTERM.
func Run(args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	var opt Options
	fs.StringVar(&opt.ConfigPath, "config", "", "path to infocomp.yaml")
	fs.StringVar(&opt.EnvFile, "env-file", ".env", "dotenv file to load before reading the environment")
	fs.StringVar(&opt.LogLevel, "log-level", "", "log level: debug|info|warning|error")
	fs.BoolVar(&opt.LogJSON, "log-json", false, "write logs as JSON")
	fs.StringVar(&opt.DBPath, "db", "", "sqlite database path")
	fs.StringVar(&opt.UploadsDir, "uploads", "", "directory for stored images")
	fs.StringVar(&opt.Bind, "bind", "", "bind address")
	fs.IntVar(&opt.Port, "port", 0, "HTTP port")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := config.LoadFiles(opt.ConfigPath, opt.EnvFile)
	if err != nil {
		return err
	}
	// Flags override file and environment.
	if opt.LogLevel != "" {
		c.Log.Level = opt.LogLevel
	}
	if opt.LogJSON {
		c.Log.JSON = true
	}
	if opt.DBPath != "" {
		c.DB.Path = opt.DBPath
	}
	if opt.UploadsDir != "" {
		c.Uploads.Dir = opt.UploadsDir
	}
	if opt.Bind != "" {
		c.HTTP.Bind = opt.Bind
	}
	if opt.Port != 0 {
		c.HTTP.Port = opt.Port
	}
	if err := c.Validate(); err != nil {
		return err
	}

	lg, _, err := logging.New(logging.Options{Level: c.Log.Level, JSON: c.Log.JSON, DefaultSlog: true})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return daemon.Run(ctx, c, lg)
}
