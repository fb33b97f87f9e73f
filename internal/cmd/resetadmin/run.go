// Package resetadmin implements the "infocomp reset-admin" subcommand.
// It resets the admin password directly in the SQLite database.
package resetadmin

import (
	"context"
	"flag"
	"fmt"
	"os"

	"infocomp/internal/config"
	"infocomp/internal/daemon"
	"infocomp/internal/db"
	isetup "infocomp/internal/setup"
)

// Options captures CLI flags for admin password reset.
// Password and PasswordEnv are mutually exclusive by usage.
type Options struct {
	ConfigPath  string
	EnvFile     string
	DBPath      string
	Email       string
	Password    string
	PasswordEnv bool
}

// Run parses reset-admin flags and executes the password reset workflow.
// The reset is local-only and does not require the server to be running.
func Run(args []string) error {
	fs := flag.NewFlagSet("reset-admin", flag.ContinueOnError)
	var opt Options
	fs.StringVar(&opt.ConfigPath, "config", "", "path to infocomp.yaml")
	fs.StringVar(&opt.EnvFile, "env-file", ".env", "dotenv file to load before reading the environment")
	fs.StringVar(&opt.DBPath, "db", "", "sqlite database path")
	fs.StringVar(&opt.Email, "email", "", "admin email (default: ADMIN_EMAIL)")
	fs.StringVar(&opt.Password, "password", "", "set the new password non-interactively")
	fs.BoolVar(&opt.PasswordEnv, "password-env", false, "read the new password from ADMIN_PASSWORD")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if opt.Password != "" && opt.PasswordEnv {
		return fmt.Errorf("-password and -password-env are mutually exclusive")
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
	pass := opt.Password
	if opt.PasswordEnv {
		pass = c.Admin.Password
		if pass == "" {
			return fmt.Errorf("ADMIN_PASSWORD is not set")
		}
	}

	ctx := context.Background()
	d, err := db.Open(ctx, c.DB.Path)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := isetup.ResetAdmin(ctx, d, daemon.NewHasher(c.Password), isetup.ResetAdminOptions{
		Email:    c.Admin.Email,
		Password: pass,
	}); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "password for %s updated\n", c.Admin.Email)
	return nil
}
