package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sml"
)

var (
	home       string
	passphrase string
	verbose    bool

	log = logrus.New()
)

func Execute() error {
	root := &cobra.Command{
		Use:   "sml",
		Short: "Secure messaging layer CLI",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			} else {
				log.SetLevel(logrus.WarnLevel)
			}
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".sml")
			}
			return os.MkdirAll(home, 0o700)
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "state dir (default ~/.sml)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase to protect state")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(initCmd(), fingerprintCmd(), bundleCmd(), demoCmd())
	return root.Execute()
}

func statePath() string {
	return filepath.Join(home, "state.bin")
}

func loadClient() (*sml.Client, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase required (-p)")
	}
	data, err := os.ReadFile(statePath())
	if err != nil {
		return nil, fmt.Errorf("no state at %s. run: sml init", statePath())
	}
	return sml.Import(data, passphrase, sml.WithLogger(log))
}

func saveClient(c *sml.Client) error {
	data, err := c.Export(passphrase)
	if err != nil {
		return err
	}
	return os.WriteFile(statePath(), data, 0o600)
}
