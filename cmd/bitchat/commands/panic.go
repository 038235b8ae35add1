package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"bitchat/internal/identitystore"
)

// panicCmd implements the panic data wipe: empty the favorites/blocked-peer
// file and remove the encrypted identity. Pending file transfers live only in
// memory for the life of a running "start" process, so there is nothing
// on disk for this command to touch there.
func panicCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "panic",
		Short: "Irrecoverably wipe the local identity and favorites/blocked-peer data",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to wipe local data without --yes")
			}
			if err := identitystore.NewFavoritesFileStore(home).Clear(); err != nil {
				return err
			}
			if err := identitystore.NewIdentityFileStore(home).Clear(); err != nil {
				return err
			}
			fmt.Println("All local identity and favorites data wiped.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the wipe")
	return cmd
}
