// Command psosearch selects attribute subsets with a geometric particle
// swarm, either over a numeric CSV table scored by correlation based
// feature selection or over one of the bench problems.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Baaaaam/gpso"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:          "psosearch",
		Short:        "Geometric particle swarm attribute subset search",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile != "" {
				v.SetConfigFile(cfgFile)
				v.SetConfigType("yaml")
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("reading config: %w", err)
				}
			}
			cfg := gpso.DefaultConfig()
			if err := v.Unmarshal(&cfg); err != nil {
				return fmt.Errorf("decoding config: %w", err)
			}
			o := options{
				data:        v.GetString("data"),
				class:       v.GetInt("class"),
				problem:     v.GetString("problem"),
				db:          v.GetString("db"),
				metricsAddr: v.GetString("metrics-addr"),
				logLevel:    v.GetString("log-level"),
			}
			return run(cmd.OutOrStdout(), cfg, o)
		},
	}

	def := gpso.DefaultConfig()
	f := cmd.Flags()
	f.IntP("population", "N", def.PopulationSize, "population size")
	f.IntP("iterations", "I", def.Iterations, "number of iterations")
	f.Float64P("mutation", "M", def.MutationProb, "mutation probability")
	f.Float64P("inertia", "A", def.InertiaWeight, "inertia weight")
	f.Float64P("social", "B", def.SocialWeight, "social weight")
	f.Float64P("individual", "C", def.IndividualWeight, "individual weight")
	f.StringP("start", "P", "", "start set of 1-based attributes, e.g. 1,3,5-7 or first-last")
	f.IntP("report", "R", def.ReportFrequency, "report frequency in generations")
	f.Int64P("seed", "S", def.Seed, "random seed")
	f.Int("workers", 0, "concurrent subset evaluations (0 or 1 is serial)")
	f.String("data", "", "numeric CSV table to select attributes from")
	f.Int("class", 0, "1-based class column of --data (0 is the last column)")
	f.String("problem", "", "bench problem to search instead of --data")
	f.String("db", "", "SQLite file receiving the per generation trace")
	f.String("metrics-addr", "", "address serving prometheus metrics, e.g. :9090")
	f.String("log-level", "info", "log level: debug, info, warn or error")
	f.StringVar(&cfgFile, "config", "", "YAML configuration file")

	if err := v.BindPFlags(f); err != nil {
		panic(err)
	}
	v.SetEnvPrefix("GPSO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return cmd
}
