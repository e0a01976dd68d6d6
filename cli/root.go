/*
Package cli is the commission command tree.

COMMANDS:
  serve            Run the HTTP API (policy editor, uploads, reports)
  calc             Compute a report for one sales file and print it
  policy default   Print the default policy document
  policy check     Validate a policy document

CONFIGURATION:
  Every command accepts --config with a TOML file. Values from the file are
  overridden by .env and COMMISSION_* environment variables, and those by
  command flags. See config/config.go.

SEE ALSO:
  - cmd/commission/main.go: Entry point
  - api/server.go: Routes served by "serve"
*/
package cli

import (
	"github.com/spf13/cobra"
	"github.com/warp/commission-engine/config"
)

// NewRootCommand builds a fresh command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "commission",
		Short: "Sales commission engine",
		Long: `Computes sales-representative commission from accounting exports under a
configurable policy: revenue tiers, payment-timeliness modifiers, channel and
category rates, exclusions and bonuses.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "Path to a TOML config file")

	root.AddCommand(newServeCmd())
	root.AddCommand(newCalcCmd())
	root.AddCommand(newPolicyCmd())
	return root
}

// Execute runs the command tree with os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}
