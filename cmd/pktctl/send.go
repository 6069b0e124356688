package main

import (
	"fmt"

	"github.com/danmuck/pktwire/internal/client"
	"github.com/spf13/cobra"
)

var (
	sendWait     bool
	sendReplyIDs []string
)

var sendCmd = &cobra.Command{
	Use:   "send <packet-id> [data]",
	Short: "Send one packet, optionally waiting for the correlated reply",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var data []byte
		if len(args) == 2 {
			data = []byte(args[1])
		}
		cfg := clientCfg
		cfg.Packets = sendReplyIDs
		c, err := client.Dial(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		if !sendWait {
			if err := c.Send(cmd.Context(), args[0], data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %s (%d bytes)\n", args[0], len(data))
			return nil
		}
		resp, err := c.Request(cmd.Context(), args[0], data, 0)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %q\n", resp.PacketID(), resp.Data())
		return nil
	},
}

func init() {
	sendCmd.Flags().BoolVarP(&sendWait, "wait", "w", false, "wait for a correlated reply")
	sendCmd.Flags().StringSliceVar(&sendReplyIDs, "reply", nil, "extra reply packet ids to accept")
	rootCmd.AddCommand(sendCmd)
}
