package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/taskpilot/internal/cli"
	"github.com/cloo-solutions/taskpilot/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "taskpilotd",
		Short:         "Taskpilot assistant daemon and CLI",
		Long:          "Taskpilot assembles workspace context for conversational prompts and serves it over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.ContextCmd())
	rootCmd.AddCommand(admin.AskCmd())
	rootCmd.AddCommand(admin.ChainCmd())
	rootCmd.AddCommand(admin.MatchCmd())
	rootCmd.AddCommand(admin.SeedCmd())
	rootCmd.AddCommand(admin.MigrateCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
