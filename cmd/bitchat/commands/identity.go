package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func identityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Manage the local node's identity",
	}
	cmd.AddCommand(identityGenerateCmd(), identityShowCmd())
	return cmd
}

func identityGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Generate and store a new identity, encrypted under the passphrase",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			_, fp, err := idSvc.GenerateIdentity(passphrase, nickname)
			if err != nil {
				return err
			}
			fmt.Printf("Identity created.\nFingerprint: %s\n", fp)
			return nil
		},
	}
}

func identityShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the local identity's fingerprint and nickname",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			id, err := idSvc.LoadIdentity(passphrase)
			if err != nil {
				return err
			}
			fp, err := idSvc.FingerprintIdentity(passphrase)
			if err != nil {
				return err
			}
			fmt.Printf("Fingerprint: %s\nNickname: %s\n", fp, id.Nickname)
			return nil
		},
	}
}
