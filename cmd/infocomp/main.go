// Command infocomp is the main entry point for the CLI binary.
// It dispatches to subcommands like server, create-admin, reset-admin and admin.
package main

import (
	"fmt"
	"os"

	"infocomp/internal/cmd/admin"
	"infocomp/internal/cmd/createadmin"
	"infocomp/internal/cmd/resetadmin"
	"infocomp/internal/cmd/server"
)

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// run parses argv and invokes the matching subcommand handler.
// Without a subcommand the server is started.
func run(argv []string) error {
	if len(argv) < 2 {
		return server.Run(nil)
	}

	switch argv[1] {
	case "server":
		return server.Run(argv[2:])
	case "create-admin":
		return createadmin.Run(argv[2:])
	case "reset-admin":
		return resetadmin.Run(argv[2:])
	case "admin":
		return admin.Run(argv[2:])
	case "-h", "--help", "help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown subcommand: %s", argv[1])
	}
}

// usage prints the canonical CLI syntax to stderr.
func usage() {
	fmt.Fprintln(os.Stderr, "infocomp [server|create-admin|reset-admin|admin] [flags]")
}
