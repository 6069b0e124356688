package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danmuck/pktwire/internal/client"
	"github.com/danmuck/pktwire/internal/config"
	"github.com/danmuck/pktwire/internal/observability"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	addr      string
	codec     string
	timeout   time.Duration
	clientCfg client.Config
)

var rootCmd = &cobra.Command{
	Use:           "pktctl",
	Short:         "Talk to a pktwire node",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		observability.InitLogger("pktctl")
		clientCfg = client.DefaultConfig()
		if cfgFile != "" {
			fileCfg, err := config.LoadClientConfig(cfgFile)
			if err != nil {
				return err
			}
			clientCfg.Address = fileCfg.Addr
			clientCfg.Session = fileCfg.Session.Runtime()
		}
		if addr != "" {
			clientCfg.Address = addr
		}
		if strings.TrimSpace(clientCfg.Address) == "" {
			clientCfg.Address = "127.0.0.1:7400"
		}
		if codec != "" {
			clientCfg.Session.Codec = codec
		}
		if timeout != 0 {
			clientCfg.Session.ResponseTimeout = timeout
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pktctl: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "client config.toml")
	rootCmd.PersistentFlags().StringVarP(&addr, "addr", "a", "", "node address (default 127.0.0.1:7400)")
	rootCmd.PersistentFlags().StringVar(&codec, "codec", "", "envelope codec: json, tlv, cbor, proto")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", 0, "response timeout (default 5s)")
}
