package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"bitchat/internal/domain"
	"bitchat/internal/identitystore"
)

func parseFingerprint(s string) (domain.Fingerprint, error) {
	var fp domain.Fingerprint
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != len(fp) {
		return fp, fmt.Errorf("fingerprint must be %d hex bytes", len(fp))
	}
	copy(fp[:], raw)
	return fp, nil
}

func favoriteCmd() *cobra.Command {
	var unset bool
	cmd := &cobra.Command{
		Use:   "favorite <fingerprint>",
		Short: "Mark (or unmark) a peer as a favorite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fp, err := parseFingerprint(args[0])
			if err != nil {
				return err
			}
			favorites := identitystore.NewFavoritesFileStore(home)
			if err := favorites.SetFavorite(fp, !unset); err != nil {
				return err
			}
			if unset {
				fmt.Printf("Unfavorited %s\n", fp)
			} else {
				fmt.Printf("Favorited %s\n", fp)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&unset, "unset", false, "remove the favorite instead of setting it")
	return cmd
}
