package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/NWChemEx/PluginPlay-sub003/hasher"
)

func (a *app) hashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash VALUE...",
		Short: "Print the hash of a sequence of values",
		Long: `Print the hash the hasher produces for the given values, in order.
Arguments that parse as numbers are hashed as float64, everything else as a
string.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			objs := make([]any, len(args))
			for i, s := range args {
				if f, err := strconv.ParseFloat(s, 64); err == nil {
					objs[i] = f
				} else {
					objs[i] = s
				}
			}
			alg, err := parseAlgorithm(a.v.GetString("algorithm"))
			if err != nil {
				return err
			}
			h := hasher.New(hasher.WithAlgorithm(alg))
			if err := h.Hash(objs...); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h.Hex())
			return nil
		},
	}
	cmd.Flags().String("algorithm", "sha256", "digest: sha256 or xxhash")
	return cmd
}

func parseAlgorithm(s string) (hasher.Algorithm, error) {
	switch s {
	case "", "sha256":
		return hasher.SHA256, nil
	case "xxhash", "xxhash64":
		return hasher.XXHash64, nil
	default:
		return 0, fmt.Errorf("unknown algorithm %q", s)
	}
}
