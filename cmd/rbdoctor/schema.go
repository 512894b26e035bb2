package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/rbdoctor/pkg/manifest"
	"github.com/ormasoftchile/rbdoctor/pkg/registry"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Schema operations",
}

var schemaExportCmd = &cobra.Command{
	Use:       "export [manifest|registry]",
	Short:     "Export the JSON Schema of txtx.yml or of registry files to stdout",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"manifest", "registry"},
	RunE:      runSchemaExport,
}

var schemaValidateCmd = &cobra.Command{
	Use:   "validate [txtx.yml]",
	Short: "Validate a manifest against the JSON Schema",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchemaValidate,
}

func init() {
	schemaCmd.AddCommand(schemaExportCmd)
	schemaCmd.AddCommand(schemaValidateCmd)
}

func runSchemaExport(cmd *cobra.Command, args []string) error {
	kind := "manifest"
	if len(args) == 1 {
		kind = args[0]
	}

	var (
		data []byte
		err  error
	)
	switch kind {
	case "manifest":
		data, err = manifest.GenerateJSONSchema()
	case "registry":
		data, err = registry.GenerateJSONSchema()
	default:
		return fmt.Errorf("unknown schema %q (want manifest or registry)", kind)
	}
	if err != nil {
		return fmt.Errorf("generate schema: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func runSchemaValidate(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	violations, err := manifest.ValidateSchema(data)
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Schema validation failed: %d error(s)\n\n", len(violations))
		for i, v := range violations {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %d. %s\n", i+1, v)
		}
		return errCheckFailed
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is valid\n", path)
	return nil
}
