package main

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/addrmap/internal/address"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode <address>",
	Short: "Resolve one address and print the result as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, closer, err := initResolver(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closer.Close() //nolint:errcheck

		p := address.Parse(strings.Join(args, " "))
		res, err := resolver.Resolve(cmd.Context(), p)
		if err != nil {
			return eris.Wrapf(err, "geocode %q", p.Address)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(res)
	},
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize <address>",
	Short: "Print the normalized form of an address without calling VWorld",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := address.Parse(strings.Join(args, " "))

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(map[string]any{
			"address":        p.Address,
			"buildingNumber": p.BuildingNumber,
			"isApartment":    p.Apartment,
			"groupingForm":   address.GroupingForm(p.Address),
		})
	},
}

func init() {
	rootCmd.AddCommand(geocodeCmd)
	rootCmd.AddCommand(normalizeCmd)
}
