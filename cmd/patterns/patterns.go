// Package patterns reports the patterns learned for an administration
package patterns

import (
	"github.com/PeterGeers/myAdmin-sub005/cmd/common"
	"github.com/PeterGeers/myAdmin-sub005/cmd/root"
	"github.com/PeterGeers/myAdmin-sub005/internal/models"

	"github.com/spf13/cobra"
)

var (
	listPatterns bool
	roles        []string
)

// Cmd represents the patterns command
var Cmd = &cobra.Command{
	Use:   "patterns",
	Short: "Show the pattern summary of an administration",
	Long: `Patterns mines the administration's ledger history and prints how many
transactions were analyzed and how many patterns of each kind were found.
With --list the patterns themselves are printed, most frequent first.

Example:
  myadmin-patterns patterns --tenant Acme --list --role debit-unknown`,
	RunE: patternsFunc,
}

func init() {
	Cmd.Flags().BoolVarP(&listPatterns, "list", "l", false, "List the individual patterns")
	Cmd.Flags().StringSliceVarP(&roles, "role", "r", nil, "Restrict --list to these roles (debit-unknown, credit-unknown, reference)")
}

func patternsFunc(cmd *cobra.Command, args []string) error {
	tenantID, err := root.Tenant()
	if err != nil {
		return err
	}

	c, err := common.OpenContainer()
	if err != nil {
		return err
	}
	defer common.CloseContainer(c)

	service := c.GetService()
	if !listPatterns {
		summary, err := service.GetPatternSummary(cmd.Context(), tenantID)
		if err != nil {
			return err
		}
		return common.WriteYAML(cmd.OutOrStdout(), summary)
	}

	selected := make([]models.PatternRole, len(roles))
	for i, r := range roles {
		selected[i] = models.PatternRole(r)
	}
	list, err := service.ListPatterns(cmd.Context(), tenantID, selected...)
	if err != nil {
		return err
	}
	return common.WriteYAML(cmd.OutOrStdout(), list)
}
