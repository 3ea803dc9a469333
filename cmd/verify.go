package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mlayerprotocol/go-airdrop/common/apperror"
	"github.com/mlayerprotocol/go-airdrop/entities"
	"github.com/mlayerprotocol/go-airdrop/pkg/client"
	"github.com/spf13/cobra"
)

func newVerifyCmd() *cobra.Command {
	var document string
	verify := &cobra.Command{
		Use:   "verify <address>",
		Short: "Check an address's proof against a balance map file offline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(document)
			if err != nil {
				return err
			}
			doc, err := entities.DecodeBalanceMap(data)
			if err != nil {
				return err
			}
			addr, err := entities.ParseAddress(args[0])
			if err != nil {
				return apperror.Validation(err.Error())
			}
			entry, ok := doc.Claim(addr)
			if !ok {
				return apperror.NotFound(fmt.Sprintf("%s has no claim in %s", addr.Hex(), document))
			}
			result, err := client.VerifyClaim(client.VerifyClaimPayload{
				Index:      entry.Index,
				Address:    entities.ChecksumString(addr),
				Amount:     entities.NewHexInt(entry.Amount),
				Proof:      entry.Proof,
				MerkleRoot: doc.MerkleRoot,
			})
			if err != nil {
				return err
			}
			encoded, err := json.MarshalIndent(map[string]any{
				"address": entities.ChecksumString(addr),
				"index":   entry.Index,
				"amount":  entities.NewHexInt(entry.Amount),
				"leaf":    result.Leaf,
				"valid":   result.Valid,
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
			if !result.Valid {
				return apperror.Integrity("proof does not fold to the document's merkle root")
			}
			return nil
		},
	}
	verify.Flags().StringVarP(&document, "document", "d", "", "Balance map file (JSON)")
	_ = verify.MarkFlagRequired("document")
	return verify
}
