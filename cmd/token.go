/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tailored-api/apiserver/config"
	"github.com/tailored-api/apiserver/internal/auth"
)

// tokenCmd groups bearer token utilities.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Bearer token utilities",
}

var tokenInspectCmd = &cobra.Command{
	Use:   "inspect <token>",
	Short: "Validate a token with the configured secret and print its claims",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}

		tokens, err := auth.NewTokenService(auth.TokenConfig{
			Secret:    cfg.Auth.JWTSecret,
			Algorithm: cfg.Auth.JWTAlgorithm,
			TTL:       cfg.Auth.TokenTTL(),
		})
		if err != nil {
			return err
		}

		claims, err := tokens.Validate(strings.TrimSpace(args[0]))
		if err != nil {
			return err
		}

		out := tokenInspection{
			Subject:   claims.Subject,
			Tier:      claims.Tier.String(),
			IssuedAt:  claims.IssuedAt.Time.UTC(),
			ExpiresAt: claims.ExpiresAt.Time.UTC(),
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encode claims: %w", err)
		}
		return nil
	},
}

type tokenInspection struct {
	Subject   string    `json:"sub"`
	Tier      string    `json:"tier"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenInspectCmd)
}
