package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ghost-ng/Papertrail/internal/types"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect and verify audit trails",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify <instance-id>",
	Short: "Verify the integrity of an instance's audit chain",
	Long: `Verify recomputes every hash in the instance's audit chain and
checks sequence continuity and hash linkage. Any altered, inserted, or
removed entry is reported as corruption.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		instanceID, err := types.ParseID(args[0])
		if err != nil {
			return err
		}
		if err := a.engine.VerifyChain(ctx, instanceID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Audit chain for instance %s is intact\n", instanceID)
		return nil
	},
}

var auditListCmd = &cobra.Command{
	Use:   "list <instance-id>",
	Short: "List an instance's audit events",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		instanceID, err := types.ParseID(args[0])
		if err != nil {
			return err
		}
		trail, err := a.engine.AuditTrail(ctx, instanceID)
		if err != nil {
			return err
		}
		for _, ev := range trail {
			fmt.Fprintf(cmd.OutOrStdout(), "%4d  %-22s  %-12s  %s -> %s  %s\n",
				ev.Sequence, ev.Kind, ev.Actor, ev.FromNode, ev.ToNode, ev.Annotation)
		}
		return nil
	},
}

func init() {
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditListCmd)
}
