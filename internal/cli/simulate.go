package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulateName  string
	simulatePrice float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Classify one listing price against the baseline dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateName == "" {
			return errors.New("--name must be provided")
		}
		if simulatePrice <= 0 {
			return errors.New("--price must be greater than zero")
		}

		price := decimal.NewFromFloat(simulatePrice)
		return getApp().Simulate(cmd.Context(), simulateName, price)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateName, "name", "", "Listing name, e.g. \"Tomate\"")
	simulateCmd.Flags().Float64Var(&simulatePrice, "price", 0, "Listing price per market unit")
}
