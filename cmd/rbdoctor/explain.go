package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/rbdoctor/pkg/format"
	"github.com/ormasoftchile/rbdoctor/pkg/tui"
)

var explainRaw bool

var explainCmd = &cobra.Command{
	Use:   "explain <namespace|namespace::action>",
	Short: "Describe an addon or action: inputs, outputs and documentation",
	Args:  cobra.ExactArgs(1),
	RunE:  runExplain,
}

func init() {
	explainCmd.Flags().BoolVar(&explainRaw, "raw", false, "Print Markdown without terminal rendering")
}

func runExplain(cmd *cobra.Command, args []string) error {
	a, err := newAnalyzer()
	if err != nil {
		return err
	}
	md, err := a.Registry.Explain(args[0])
	if err != nil {
		return err
	}
	if !explainRaw && format.IsTerminal(os.Stdout) {
		md = tui.RenderMarkdown(md, 100)
	}
	fmt.Fprintln(cmd.OutOrStdout(), md)
	return nil
}
