package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ghost-ng/Papertrail/internal/types"
)

var (
	instanceDefinition string
	instanceDocument   string
	instanceActor      string
	instanceComment    string
	instanceReason     string
)

var instanceCmd = &cobra.Command{
	Use:   "instance",
	Short: "Manage workflow instances",
}

var instanceCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Start routing a document through a workflow",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		def, err := a.registerDefinition(ctx, instanceDefinition)
		if err != nil {
			return err
		}
		documentID, err := types.ParseID(instanceDocument)
		if err != nil {
			return err
		}
		actorID, err := types.ParseID(instanceActor)
		if err != nil {
			return err
		}

		inst, err := a.engine.CreateInstance(ctx, def.ID, documentID, actorID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Instance %s created at node %s\n", inst.ID, inst.CurrentNode)
		return nil
	},
}

var instanceSubmitCmd = &cobra.Command{
	Use:   "submit <instance-id>",
	Short: "Submit a routing event against an instance",
	Long: `Submit a routing event against an instance.

The definition YAML is re-registered on each invocation, so it must pin a
stable id: field. A definition without one gets a fresh ID per run and the
stored instance no longer resolves against it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if _, err := a.registerDefinition(ctx, instanceDefinition); err != nil {
			return err
		}
		instanceID, err := types.ParseID(args[0])
		if err != nil {
			return err
		}
		actorID, err := types.ParseID(instanceActor)
		if err != nil {
			return err
		}

		result, err := a.engine.SubmitEvent(ctx, instanceID, actorID, instanceComment)
		if err != nil {
			return err
		}
		if !result.Moved {
			fmt.Fprintf(cmd.OutOrStdout(), "Instance pending at node %s", result.To)
			if result.ApprovalRecorded {
				fmt.Fprint(cmd.OutOrStdout(), " (approval recorded)")
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Instance moved %s -> %s (status: %s)\n",
			result.From, result.To, result.Status)
		for _, failure := range result.ActionFailures {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s action at %s failed: %s\n",
				failure.ActionType, failure.NodeID, failure.Err)
		}
		return nil
	},
}

var instanceCancelCmd = &cobra.Command{
	Use:   "cancel <instance-id>",
	Short: "Cancel an active instance",
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
		actorID, err := types.ParseID(instanceActor)
		if err != nil {
			return err
		}

		inst, err := a.engine.CancelInstance(ctx, instanceID, actorID, instanceReason)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Instance %s is %s\n", inst.ID, inst.Status)
		return nil
	},
}

var instanceShowCmd = &cobra.Command{
	Use:   "show <instance-id>",
	Short: "Show an instance's current state and audit trail",
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
		inst, err := a.engine.GetInstanceState(ctx, instanceID)
		if err != nil {
			return err
		}
		trail, err := a.engine.AuditTrail(ctx, instanceID)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(map[string]any{
			"instance": inst,
			"audit":    trail,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire overdue instances",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		expired, err := a.engine.SweepExpired(ctx, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Expired %d instance(s)\n", expired)
		return nil
	},
}

func init() {
	instanceCmd.PersistentFlags().StringVarP(&instanceActor, "actor", "a", "", "Acting identity ID")
	instanceCmd.PersistentFlags().StringVarP(&instanceDefinition, "definition", "d", "", "Workflow definition YAML (must pin id: to resolve across invocations)")

	instanceCreateCmd.Flags().StringVar(&instanceDocument, "document", "", "Document ID to route")
	instanceCreateCmd.MarkFlagRequired("document")
	instanceSubmitCmd.Flags().StringVar(&instanceComment, "comment", "", "Comment recorded with the event")
	instanceCancelCmd.Flags().StringVar(&instanceReason, "reason", "", "Cancellation reason")

	instanceCmd.AddCommand(instanceCreateCmd)
	instanceCmd.AddCommand(instanceSubmitCmd)
	instanceCmd.AddCommand(instanceCancelCmd)
	instanceCmd.AddCommand(instanceShowCmd)
}
