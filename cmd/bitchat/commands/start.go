package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bitchat/internal/app"
	"bitchat/internal/crypto"
	"bitchat/internal/domain"
)

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Load the local identity and run the mesh/relay node until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			id, err := idSvc.LoadIdentity(passphrase)
			if err != nil {
				return fmt.Errorf("loading identity: %w", err)
			}
			if nickname != "" {
				id.Nickname = nickname
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			wire, err := app.NewWire(ctx, app.Config{
				Home:     home,
				Nickname: id.Nickname,
				RelayURL: relayURL,
				LogLevel: logLevel,
			}, id)
			if err != nil {
				return err
			}

			wire.Start(ctx)
			fp := domain.Fingerprint(crypto.Fingerprint(id.XPub.Slice()))
			wire.Log.Info("node started", "fingerprint", fp.String(), "relay", relayURL != "")
			<-ctx.Done()
			wire.Log.Info("shutting down")
			wire.Stop()
			return nil
		},
	}
}
