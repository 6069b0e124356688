package main

import (
	"fmt"

	"github.com/danmuck/pktwire/internal/config"
	"github.com/spf13/cobra"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage config templates",
}

var configInitCmd = &cobra.Command{
	Use:   "init <node|client> <path>",
	Short: "Write a config template",
	Args:  cobra.ExactArgs(2),
	// templates need no node connection or loaded config
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.WriteTemplate(args[1], args[0], configForce); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s config template to %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
