package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/Jaden-Nix/swarmverify/config"
	core "github.com/Jaden-Nix/swarmverify/internal/resolver/core"
	"github.com/Jaden-Nix/swarmverify/internal/resolver/telemetry"
	"github.com/Jaden-Nix/swarmverify/internal/store"
	"github.com/Jaden-Nix/swarmverify/tools/websearch/ddg"
)

// resolveCMD runs one resolution from the terminal and prints the JSON
// record. With --save it also persists to the ledger and applies the routed
// path, same as the API endpoint.
func resolveCMD() *cobra.Command {
	var cfgPath string
	var save bool

	var resolve = &cobra.Command{
		Use:   "resolve <market-id>",
		Short: "Resolve one market and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			ctx := context.Background()

			st, err := store.New(ctx, cfg.Storage.Postgres)
			if err != nil {
				return err
			}
			market, err := st.GetMarket(ctx, args[0])
			if err != nil {
				return err
			}

			tele := telemetry.NewTelemetry(cfg.Telemetry)
			logger := log.New(os.Stderr, "[RESOLVE] ", log.LstdFlags)
			search := ddg.New(cfg.Search.Endpoint, cfg.Search.Timeout)
			orch, err := core.NewOrchestrator(cfg, logger, tele, search)
			if err != nil {
				return err
			}

			res, err := orch.Resolve(ctx, market)
			if err != nil {
				return err
			}

			var sp *core.SecondPassResult
			if res.Path == core.PathSecondPass {
				v := orch.SecondPass(ctx, market, res)
				sp = &v
			}

			if save {
				if err := st.SaveResolution(ctx, res); err != nil {
					return err
				}
				if sp != nil {
					if err := st.SaveSecondPass(ctx, res.ID, *sp); err != nil {
						return err
					}
				}
				if res.Path == core.PathAutoResolve {
					if err := st.MarkMarketResolved(ctx, market.ID, res.Outcome); err != nil {
						return err
					}
				}
			}

			out := map[string]interface{}{"resolution": res}
			if sp != nil {
				out["second_pass"] = sp
			}
			b, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(b))
			return nil
		},
	}
	resolve.Flags().BoolVar(&save, "save", false, "persist the resolution and apply the routed path")
	resolve.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return resolve
}
