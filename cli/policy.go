package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/generic"
	"gopkg.in/yaml.v3"
)

func newPolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect and validate policy documents",
	}

	defaultCmd := &cobra.Command{
		Use:   "default",
		Short: "Print the built-in default policy",
		Long:  `Prints the default policy document, a starting point for a custom policy file.`,
		Args:  cobra.NoArgs,
		RunE:  runPolicyDefault,
	}
	defaultCmd.Flags().StringP("format", "f", "json", "Output format: json or yaml")

	checkCmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Validate a policy document",
		Long:  `Parses a .json, .yaml or .hjson policy document and reports every invalid field.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runPolicyCheck,
	}

	cmd.AddCommand(defaultCmd, checkCmd)
	return cmd
}

func runPolicyDefault(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	doc := factory.DefaultPolicyJSON()

	switch format {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "yaml", "yml":
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q, expected json or yaml", format)
	}
}

func runPolicyCheck(cmd *cobra.Command, args []string) error {
	policy, err := factory.NewPolicyFactory().LoadPolicyFile(args[0])

	var verr *generic.ValidationError
	if errors.As(err, &verr) {
		for _, f := range verr.Fields {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", f.Field, f.Message)
		}
		return fmt.Errorf("%s: %d invalid field(s)", args[0], len(verr.Fields))
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d revenue tiers, %d debt windows, %d excluded SKU keywords)\n",
		args[0], len(policy.RevenueTiers), len(policy.DebtModifiers), len(policy.NonCommissionable.SKUContains))
	return nil
}
