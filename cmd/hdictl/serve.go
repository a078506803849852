package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	hdi "github.com/NotrixInc/nx-hdi"
)

var (
	serveListen   string
	servePublish  []string
	serveDevClass uint16
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a service manager publishing the given services",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := newLogger(cmd, cfg)

		reg := hdi.NewServiceRegistry(logger)
		for _, entry := range servePublish {
			info, err := parsePublish(entry)
			if err != nil {
				return err
			}
			info.DevClass = serveDevClass
			if err := reg.Publish(info); err != nil {
				return fmt.Errorf("publish %s: %w", entry, err)
			}
		}

		addr := serveListen
		if addr == "" {
			addr = cfg.ServiceManagerAddr
		}
		network, address := listenAddress(addr)
		if network == "unix" {
			_ = os.Remove(address)
		}
		lis, err := net.Listen(network, address)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("service manager listening", "network", network, "address", address, "services", len(reg.Services()))
		return hdi.ServeServiceManager(ctx, lis, reg)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address, unix:///path or host:port (default from config)")
	serveCmd.Flags().StringArrayVar(&servePublish, "publish", nil, "service to publish as name[=descriptor[@address]] (repeatable)")
	serveCmd.Flags().Uint16Var(&serveDevClass, "dev-class", 0, "device class of published services")
}

// parsePublish parses name[=descriptor[@address]].
func parsePublish(s string) (hdi.ServiceInfo, error) {
	name, rest, _ := strings.Cut(s, "=")
	descriptor, address, _ := strings.Cut(rest, "@")
	if strings.TrimSpace(name) == "" {
		return hdi.ServiceInfo{}, fmt.Errorf("%w: publish %q has no service name", hdi.ErrInvalidArgument, s)
	}
	return hdi.ServiceInfo{Name: name, Descriptor: descriptor, Address: address}, nil
}

// listenAddress splits a gRPC style target into a net.Listen network and
// address.
func listenAddress(target string) (network, address string) {
	if rest, ok := strings.CutPrefix(target, "unix://"); ok {
		return "unix", rest
	}
	if rest, ok := strings.CutPrefix(target, "unix:"); ok {
		return "unix", rest
	}
	return "tcp", target
}
