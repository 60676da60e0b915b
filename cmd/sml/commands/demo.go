package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"sml"
)

// demo: exercise the full protocol in memory with three throwaway
// clients. Useful as a smoke test and as a worked example of the API.
func demoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run an in-memory pairwise and group exchange",
		RunE: func(cmd *cobra.Command, args []string) error {
			alice, err := sml.NewClient(sml.WithLogger(log))
			if err != nil {
				return err
			}
			bob, err := sml.NewClient(sml.WithLogger(log))
			if err != nil {
				return err
			}
			carol, err := sml.NewClient(sml.WithLogger(log))
			if err != nil {
				return err
			}

			// Pairwise: Alice initiates from Bob's published bundle.
			bobBundle, err := bob.PreKeyBundle()
			if err != nil {
				return err
			}
			aliceSess, err := alice.InitSession(bobBundle)
			if err != nil {
				return err
			}
			env, err := alice.Encrypt(aliceSess, []byte("hello bob"))
			if err != nil {
				return err
			}
			bobSess, pt, err := bob.AcceptSession(env)
			if err != nil {
				return err
			}
			fmt.Printf("bob received: %q\n", pt)

			reply, err := bob.Encrypt(bobSess, []byte("hello alice"))
			if err != nil {
				return err
			}
			pt, err = alice.Decrypt(aliceSess, reply)
			if err != nil {
				return err
			}
			fmt.Printf("alice received: %q\n", pt)

			// Group: Alice creates with Bob and Carol, then removes Carol.
			bobBundle2, err := bob.PreKeyBundle()
			if err != nil {
				return err
			}
			carolBundle, err := carol.PreKeyBundle()
			if err != nil {
				return err
			}
			gid, commit, err := alice.CreateGroup(bobBundle2, carolBundle)
			if err != nil {
				return err
			}
			if _, err := bob.JoinGroup(commit); err != nil {
				return err
			}
			if _, err := carol.JoinGroup(commit); err != nil {
				return err
			}

			genv, err := alice.GroupEncrypt(gid, []byte("hello group"))
			if err != nil {
				return err
			}
			pt, err = bob.GroupDecrypt(gid, genv)
			if err != nil {
				return err
			}
			fmt.Printf("group message at bob: %q\n", pt)

			removal, err := alice.RemoveGroupMember(gid, sml.MemberID(carol.Fingerprint()))
			if err != nil {
				return err
			}
			if err := bob.ApplyCommit(gid, removal); err != nil {
				return err
			}
			genv, err = alice.GroupEncrypt(gid, []byte("carol is gone"))
			if err != nil {
				return err
			}
			if _, err := carol.GroupDecrypt(gid, genv); err != nil {
				fmt.Printf("carol locked out: %v\n", err)
			}
			pt, err = bob.GroupDecrypt(gid, genv)
			if err != nil {
				return err
			}
			fmt.Printf("group message at bob: %q\n", pt)
			return nil
		},
	}
}
