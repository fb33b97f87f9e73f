// Package createadmin implements "infocomp create-admin": the same admin
// bootstrap the server runs at startup, as a one-shot command.
package createadmin

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"infocomp/internal/config"
	"infocomp/internal/daemon"
	"infocomp/internal/db"
	isetup "infocomp/internal/setup"
)

type Options struct {
	ConfigPath string
	EnvFile    string
	DBPath     string
	Email      string
}

// Run creates the configured admin unless it already exists. Unlike startup
// bootstrap, missing credentials are an error here.
func Run(args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	var opt Options
	fs.StringVar(&opt.ConfigPath, "config", "", "path to infocomp.yaml")
	fs.StringVar(&opt.EnvFile, "env-file", ".env", "dotenv file to load before reading the environment")
	fs.StringVar(&opt.DBPath, "db", "", "sqlite database path")
	fs.StringVar(&opt.Email, "email", "", "admin email (default: ADMIN_EMAIL)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := config.LoadFiles(opt.ConfigPath, opt.EnvFile)
	if err != nil {
		return err
	}
	if opt.DBPath != "" {
		c.DB.Path = opt.DBPath
	}
	if opt.Email != "" {
		c.Admin.Email = opt.Email
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Admin.Email == "" || c.Admin.Password == "" {
		return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set (environment, .env or admin section of the config file)")
	}

	ctx := context.Background()
	d, err := db.Open(ctx, c.DB.Path)
	if err != nil {
		return err
	}
	defer d.Close()

	out, err := isetup.EnsureAdmin(ctx, d, daemon.NewHasher(c.Password), c.Admin.Email, c.Admin.Password)
	if err != nil {
		return err
	}
	switch out {
	case isetup.OutcomeCreated:
		fmt.Fprintf(os.Stdout, "admin %s created\n", c.Admin.Email)
	case isetup.OutcomeExists:
		fmt.Fprintf(os.Stdout, "admin %s already exists\n", c.Admin.Email)
	}
	return nil
}
