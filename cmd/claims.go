package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/mlayerprotocol/go-airdrop/pkg/client"
	"github.com/spf13/cobra"
)

func newClaimsCmd() *cobra.Command {
	var ref string
	claims := &cobra.Command{
		Use:   "claims <address>",
		Short: "Find the claims of an address in one or every published document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := openNode(cmd)
			if err != nil {
				return err
			}
			defer n.Close()
			result, err := client.FindClaims(n.Ctx, n.Service, args[0], ref)
			if err != nil {
				return err
			}
			encoded, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
			return err
		},
	}
	claims.Flags().StringVar(&ref, "ref", "", "Search only the document with this content reference")
	return claims
}
