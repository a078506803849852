package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	hdi "github.com/NotrixInc/nx-hdi"
)

var (
	servicesAddr     string
	servicesWatch    bool
	servicesDevClass uint16
	servicesMaxFails int
)

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List the services known to the service manager",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.ServiceManagerAddr = servicesAddr
		}

		sm, err := hdi.DialServiceManager(cfg.ServiceManagerAddr)
		if err != nil {
			return err
		}
		defer sm.Close()

		if servicesWatch {
			return watchServices(cmd, cfg, sm)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()
		services, err := sm.ListAllService(ctx)
		if err != nil {
			return err
		}
		printServices(cmd.OutOrStdout(), services)
		return nil
	},
}

func init() {
	servicesCmd.Flags().StringVar(&servicesAddr, "addr", "", "service manager address (default from config)")
	servicesCmd.Flags().BoolVarP(&servicesWatch, "watch", "w", false, "keep polling and print start/stop events")
	servicesCmd.Flags().Uint16Var(&servicesDevClass, "dev-class", hdi.DevClassAll, "only watch this device class")
	servicesCmd.Flags().IntVar(&servicesMaxFails, "max-failures", 3, "failed listings in a row before reporting the manager unreachable (0 = never)")
}

func printServices(w io.Writer, services []hdi.ServiceInfo) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDEVCLASS\tDESCRIPTOR\tADDRESS")
	for _, s := range services {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", s.Name, s.DevClass, s.Descriptor, s.Address)
	}
	tw.Flush()
}

func watchServices(cmd *cobra.Command, cfg hdi.Config, sm *hdi.RemoteServiceManager) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	broker := hdi.NewBroker(cfg, hdi.Dependencies{Logger: newLogger(cmd, cfg)})
	w := broker.NewStatusWatcher(hdi.StatusWatcherConfig{
		Lister:      sm,
		DevClass:    servicesDevClass,
		MaxFailures: servicesMaxFails,
		OnHealth:    func(healthy bool, err error) { printHealth(out, healthy, err) },
	})
	w.Register(func(s hdi.ServiceStatus) {
		fmt.Fprintf(out, "%s\t%s\t%d\t%s\n", s.State, s.Name, s.DevClass, s.Info.Descriptor)
	})
	w.Start(ctx)
	<-ctx.Done()
	w.Stop()
	return nil
}

func printHealth(w io.Writer, healthy bool, err error) {
	if healthy {
		fmt.Fprintln(w, "HEALTHY\tservice manager reachable again")
		return
	}
	fmt.Fprintf(w, "UNHEALTHY\t%v\n", err)
}
