package main

import (
	"fmt"

	"github.com/spf13/cobra"

	hdi "github.com/NotrixInc/nx-hdi"
)

var loadWasm bool

var loadCmd = &cobra.Command{
	Use:   "load <descriptor> <service>",
	Short: "Construct and release one implementation instance",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		deps := hdi.Dependencies{Logger: newLogger(cmd, cfg)}
		if loadWasm {
			deps.Opener = hdi.NewWasmOpener(cmd.Context())
		}
		broker := hdi.NewBroker(cfg, deps)

		instance, err := broker.Loader.TryLoad(args[0], args[1])
		if err != nil {
			return err
		}
		defer broker.Loader.Unload(args[0], args[1], instance)

		fmt.Fprintf(cmd.OutOrStdout(), "instance %#x from %v\n", uintptr(instance), broker.Loader.Libraries())
		return nil
	},
}

func init() {
	loadCmd.Flags().BoolVar(&loadWasm, "wasm", false, "treat the library as a WebAssembly module")
}
