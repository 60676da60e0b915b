package commands

import (
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"
)

// bundle: emit a fresh pre-key bundle on stdout, base64 encoded. Each
// bundle claims a one-time pre-key, so the state file is rewritten.
func bundleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bundle",
		Short: "Emit a pre-key bundle for publication",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadClient()
			if err != nil {
				return err
			}
			b, err := c.PreKeyBundle()
			if err != nil {
				return err
			}
			if err := saveClient(c); err != nil {
				return err
			}
			fmt.Println(base64.StdEncoding.EncodeToString(b))
			return nil
		},
	}
}
