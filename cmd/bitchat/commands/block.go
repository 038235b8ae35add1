package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"bitchat/internal/identitystore"
)

func blockCmd() *cobra.Command {
	var unblock bool
	cmd := &cobra.Command{
		Use:   "block <fingerprint>",
		Short: "Block (or unblock) a peer by fingerprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fp, err := parseFingerprint(args[0])
			if err != nil {
				return err
			}
			favorites := identitystore.NewFavoritesFileStore(home)
			if unblock {
				if err := favorites.Unblock(fp); err != nil {
					return err
				}
				fmt.Printf("Unblocked %s\n", fp)
				return nil
			}
			if err := favorites.Block(fp); err != nil {
				return err
			}
			fmt.Printf("Blocked %s\n", fp)
			return nil
		},
	}
	cmd.Flags().BoolVar(&unblock, "unblock", false, "remove the block instead of setting it")
	return cmd
}
