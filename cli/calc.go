package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/warp/commission-engine/api"
	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/export"
	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/ingest"
)

func newCalcCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Compute a commission report for one sales file",
		Long: `Reads an accounting export, runs the commission engine and writes the
representative-month summary as CSV, or the full report as JSON.

The policy is taken from --policy, then [policy].file in the config, then
the built-in default.`,
		Args: cobra.NoArgs,
		RunE: runCalc,
	}
	cmd.Flags().StringP("sales", "s", "", "Sales export (CSV) to read")
	cmd.Flags().StringP("policy", "p", "", "Policy document (.json, .yaml, .hjson)")
	cmd.Flags().StringP("out", "o", "", "Write to this file instead of stdout")
	cmd.Flags().StringP("format", "f", "csv", "Output format: csv or json")
	cmd.MarkFlagRequired("sales")
	return cmd
}

func runCalc(cmd *cobra.Command, args []string) error {
	salesPath, _ := cmd.Flags().GetString("sales")
	policyPath, _ := cmd.Flags().GetString("policy")
	outPath, _ := cmd.Flags().GetString("out")
	format, _ := cmd.Flags().GetString("format")

	if format != "csv" && format != "json" {
		return fmt.Errorf("unknown format %q, expected csv or json", format)
	}

	if policyPath == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		policyPath = cfg.Policy.File
	}

	policy := factory.DefaultPolicy()
	if policyPath != "" {
		p, err := factory.NewPolicyFactory().LoadPolicyFile(policyPath)
		if err != nil {
			return err
		}
		policy = p
	}

	f, err := os.Open(salesPath)
	if err != nil {
		return fmt.Errorf("open sales file: %w", err)
	}
	defer f.Close()

	sales, err := ingest.NewParser().Parse(f)
	if err != nil {
		return fmt.Errorf("%s: %w", salesPath, err)
	}

	report := commission.Calculate(sales, policy)

	var out io.Writer = cmd.OutOrStdout()
	if outPath != "" {
		file, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer file.Close()
		out = file
	}

	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(api.NewReportDTO("", 0, report))
	}
	return export.WriteCSV(out, report.ByRep)
}
