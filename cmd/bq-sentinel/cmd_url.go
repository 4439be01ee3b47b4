package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nholik/bq-sentinel/internal/config"
	"github.com/nholik/bq-sentinel/internal/connection"
)

var urlShowProject bool

var urlCmd = &cobra.Command{
	Use:   "url",
	Short: "Print the resolved connection URL",
	Args:  cobra.NoArgs,
	RunE:  runURL,
}

func init() {
	urlCmd.Flags().BoolVar(&urlShowProject, "show-default-project", false, "also print the default project signalled to the client")
	rootCmd.AddCommand(urlCmd)
}

func runURL(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	resolver := connection.NewResolver(logger)
	out := cmd.OutOrStdout()

	for _, path := range cfg.ConnectionFiles() {
		file, err := config.LoadConnectionFile(path)
		if err != nil {
			return err
		}

		target := resolver.Resolve(file.Connection)
		if _, err := fmt.Fprintln(out, target.String()); err != nil {
			return err
		}
		if urlShowProject && target.DefaultProject != "" {
			if _, err := fmt.Fprintf(out, "%s=%s\n", connection.DefaultProjectEnv, target.DefaultProject); err != nil {
				return err
			}
		}
	}
	return nil
}
