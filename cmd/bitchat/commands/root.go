package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"bitchat/internal/identitystore"
	"bitchat/internal/services/identity"
)

var (
	home       string
	passphrase string
	nickname   string
	relayURL   string
	logLevel   string

	idSvc *identity.Service
)

// Execute builds the root command and runs it.
func Execute() error {
	_ = godotenv.Load() // optional .env in the working directory; missing file is not an error

	root := &cobra.Command{
		Use:   "bitchat",
		Short: "Decentralized peer-to-peer mesh chat over BLE, with a relay fallback",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				if v := os.Getenv("BITCHAT_HOME"); v != "" {
					home = v
				}
			}
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".bitchat")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}
			if relayURL == "" {
				relayURL = os.Getenv("BITCHAT_RELAY_URL")
			}
			idSvc = identity.New(identitystore.NewIdentityFileStore(home))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "config dir (default $BITCHAT_HOME or ~/.bitchat)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the local identity")
	root.PersistentFlags().StringVar(&nickname, "nickname", "", "display nickname advertised to peers")
	root.PersistentFlags().StringVar(&relayURL, "relay", "", "relay WebSocket URL (default $BITCHAT_RELAY_URL, empty disables the relay fallback)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(identityCmd(), startCmd(), favoriteCmd(), blockCmd(), panicCmd())
	return root.Execute()
}

func requirePassphrase() error {
	if passphrase == "" {
		return fmt.Errorf("passphrase required (-p)")
	}
	return nil
}
