// Command tensoreval inspects tensor types and join plans, and evaluates tensor expressions
// read from YAML or .tev files.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

const version = "v0.1.0-dev"

func addCommands(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "type spec+",
		Short: "Parse and normalize value type specs",
		Args:  cobra.MinimumNArgs(1),
		RunE:  showTypes}
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "plan lhs-type rhs-type",
		Short: "Show the dense and sparse join plans for two types",
		Args:  cobra.ExactArgs(2),
		RunE:  showPlan}
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "join op lhs-file rhs-file",
		Short: "Join two tensor spec files with a binary function",
		Args:  cobra.ExactArgs(3),
		RunE:  joinFiles}
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "reduce aggr file [dimension...]",
		Short: "Reduce a tensor spec file over the given dimensions (all when none given)",
		Args:  cobra.MinimumNArgs(2),
		RunE:  reduceFile}
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "eval expression-file+",
		Short: "Evaluate expression files and report the kernels used",
		Args:  cobra.MinimumNArgs(1),
		RunE:  evalFiles}
	cmd.Flags().Bool("metrics", false, "print optimizer metrics after evaluation")
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "convert in-file out-file",
		Short: "Convert a value between YAML spec (.yaml) and binary (.tev) files",
		Args:  cobra.ExactArgs(2),
		RunE:  convertFile}
	root.AddCommand(cmd)

	cmd = &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		RunE:  showVersion}
	root.AddCommand(cmd)
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "tensoreval",
		Short:         "Tensor expression evaluator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "config file (YAML)")
	root.PersistentFlags().String("backend", "", "value backend, 'fast' or 'simple'")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	root.PersistentFlags().Bool("optimize", true, "replace generic nodes with specialized kernels")
	addCommands(root)
	return root
}

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fatal(root, err)
		os.Exit(1)
	}
}
