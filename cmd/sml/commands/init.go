package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sml"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a local identity and state file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			if _, err := os.Stat(statePath()); err == nil {
				return fmt.Errorf("state already exists at %s", statePath())
			}

			c, err := sml.NewClient(sml.WithLogger(log))
			if err != nil {
				return err
			}
			if err := saveClient(c); err != nil {
				return err
			}
			fmt.Printf("Identity created.\nFingerprint: %s\n", c.Fingerprint())
			return nil
		},
	}
}
