package cli

import (
	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run one reconciliation pass over the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ReconcileOnce(cmd.Context())
	},
}
