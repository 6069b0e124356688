package main

import (
	"fmt"

	"github.com/danmuck/pktwire/internal/client"
	"github.com/spf13/cobra"
)

var pingCount int

var pingCmd = &cobra.Command{
	Use:   "ping [data]",
	Short: "Send ping packets and report round-trip times",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data := []byte("ping")
		if len(args) == 1 {
			data = []byte(args[0])
		}
		c, err := client.Dial(cmd.Context(), clientCfg)
		if err != nil {
			return err
		}
		defer c.Close()

		for i := 0; i < pingCount; i++ {
			rtt, err := c.Ping(cmd.Context(), data, 0)
			if err != nil {
				return fmt.Errorf("ping %d: %w", i+1, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pong from %s: seq=%d bytes=%d time=%s\n",
				clientCfg.Address, i+1, len(data), rtt)
		}
		return nil
	},
}

func init() {
	pingCmd.Flags().IntVarP(&pingCount, "count", "c", 1, "number of pings")
	rootCmd.AddCommand(pingCmd)
}
