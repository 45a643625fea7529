/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tailored-api/apiserver/config"
	"github.com/tailored-api/apiserver/internal/storage"
)

// storageCmd represents the storage command.
var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Manage the export object storage",
}

var storageEnsureBucketCmd = &cobra.Command{
	Use:   "ensure-bucket",
	Short: "Create the export bucket if it does not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}

		objects, err := storage.Open(cmd.Context(), cfg.Storage)
		if err != nil {
			return fmt.Errorf("init storage failed: %w", err)
		}
		if err := objects.EnsureBucket(cmd.Context()); err != nil {
			return fmt.Errorf("ensure bucket failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "bucket %q ready (%s)\n", objects.Bucket(), cfg.Storage.Backend)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(storageCmd)
	storageCmd.AddCommand(storageEnsureBucketCmd)
}
