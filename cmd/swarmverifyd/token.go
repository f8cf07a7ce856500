package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Jaden-Nix/swarmverify/config"
	srv "github.com/Jaden-Nix/swarmverify/internal/server"
)

func tokenCMD() *cobra.Command {
	var cfgPath string
	var subject string
	var ttl time.Duration

	var token = &cobra.Command{
		Use:   "token",
		Short: "Mint a service JWT for the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			if cfg.Server.JWTSecret == "" {
				return fmt.Errorf("jwt secret not configured (server.jwt_secret)")
			}
			signed, err := srv.SignJWT(subject, []byte(cfg.Server.JWTSecret), ttl)
			if err != nil {
				return err
			}
			fmt.Println(signed)
			return nil
		},
	}
	token.Flags().StringVar(&subject, "subject", "ops", "token subject")
	token.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	token.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return token
}
