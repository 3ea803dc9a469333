package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mlayerprotocol/go-airdrop/common/apperror"
	"github.com/mlayerprotocol/go-airdrop/entities"
	"github.com/mlayerprotocol/go-airdrop/internal/service"
	"github.com/spf13/cobra"
)

func newBuildCmd() *cobra.Command {
	var (
		input   string
		out     string
		scale   int32
		publish bool
	)
	build := &cobra.Command{
		Use:   "build",
		Short: "Assemble a balance map from an allocation file",
		Long: `Assemble a balance map from an allocation file

The input is a JSON array of {"address", "amount"} objects or a JSON object
mapping addresses to amounts. Entries are indexed in file order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd)
			data, err := os.ReadFile(input)
			if err != nil {
				return err
			}
			var allocs entities.AllocationList
			if err := json.Unmarshal(data, &allocs); err != nil {
				return apperror.Validation(fmt.Sprintf("%s: %v", input, err))
			}
			if !cmd.Flags().Changed("scale") {
				scale = cfg.DefaultScaleExponent
			}

			var doc *entities.BalanceMap
			if publish {
				n, err := openNode(cmd)
				if err != nil {
					return err
				}
				defer n.Close()
				published, err := n.Service.PublishBalanceMap(n.Ctx, allocs, scale)
				if err != nil {
					return err
				}
				doc = published.Document
				for _, enc := range published.Reference.Encodings() {
					fmt.Fprintln(cmd.ErrOrStderr(), "reference:", enc)
				}
			} else {
				doc, err = service.NewAssembler(cfg).Assemble(allocs, scale)
				if err != nil {
					return err
				}
			}

			encoded, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
				return err
			}
			logger.Infof("build: %d claims, root %s, written to %s", len(doc.Claims), doc.MerkleRoot.Hex(), out)
			return os.WriteFile(out, encoded, 0o644)
		},
	}
	build.Flags().StringVarP(&input, "input", "i", "", "Allocation file (JSON)")
	build.Flags().StringVarP(&out, "out", "o", "", "Write the document here instead of stdout")
	build.Flags().Int32Var(&scale, "scale", 0, "Decimal scale exponent applied to every amount (default from config)")
	build.Flags().BoolVar(&publish, "publish", false, "Publish the document to the configured storage")
	_ = build.MarkFlagRequired("input")
	return build
}
