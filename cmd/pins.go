package cmd

import (
	"fmt"

	"github.com/mlayerprotocol/go-airdrop/common/apperror"
	"github.com/mlayerprotocol/go-airdrop/pkg/storage"
	"github.com/spf13/cobra"
)

func newPinsCmd() *cobra.Command {
	var unpin string
	pins := &cobra.Command{
		Use:   "pins",
		Short: "List published documents, or drop one with --unpin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := openNode(cmd)
			if err != nil {
				return err
			}
			defer n.Close()
			store := n.Service.Store

			if unpin != "" {
				ref, err := storage.ParseReference(unpin)
				if err != nil {
					return err
				}
				u, ok := store.(storage.Unpinner)
				if !ok {
					return apperror.BadRequest("the configured storage does not support unpinning")
				}
				if err := u.Unpin(n.Ctx, ref); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "unpinned", ref)
				return nil
			}

			for ref, err := range store.ListPinned(n.Ctx) {
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ref)
			}
			return nil
		},
	}
	pins.Flags().StringVar(&unpin, "unpin", "", "Content reference to unpin")
	return pins
}
