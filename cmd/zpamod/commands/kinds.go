package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zscaler/zpacloud-ansible-sub000/pkg/registry"
)

func newKindsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the registered resource kinds",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, kind := range registry.Kinds() {
				d, err := registry.Describe(kind)
				if err != nil {
					return err
				}
				flavor := string(d.Lookup)
				if d.ReadOnly {
					flavor += ", read-only"
				}
				if d.HasBulkReorder() {
					flavor += ", reorder"
				}
				if d.HasBulkDelete() {
					flavor += ", bulk-delete"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-28s %s\n", kind, flavor)
			}
			return nil
		},
	}
}
