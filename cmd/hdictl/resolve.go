package main

import (
	"fmt"

	"github.com/spf13/cobra"

	hdi "github.com/NotrixInc/nx-hdi"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <descriptor> <service>",
	Short: "Print the implementation library a descriptor resolves to",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		lp, err := hdi.NewPathResolver(cfg.TrustedDir()).Resolve(args[0], args[1])
		if err != nil {
			return &exitError{code: 2, err: err}
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "descriptor:  %s\n", lp.Descriptor)
		fmt.Fprintf(out, "path:        %s\n", lp.Path)
		fmt.Fprintf(out, "canonical:   %s\n", lp.Canonical)
		fmt.Fprintf(out, "constructor: %s\n", lp.Descriptor.ConstructorSymbol())
		fmt.Fprintf(out, "destructor:  %s\n", lp.Descriptor.DestructorSymbol())
		return nil
	},
}
