package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/md-rashed-zaman/apptslots/libs/config"
	"github.com/md-rashed-zaman/apptslots/libs/kafkax"
	"github.com/md-rashed-zaman/apptslots/services/availability-service/internal/workflows"
	"github.com/spf13/cobra"
)

type publishFunc func(ctx context.Context, reqs ...workflows.ExecuteRequest) ([]string, error)

func newWorkflowsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflows",
		Short: "Workflow runner helpers",
	}
	cmd.AddCommand(newWorkflowsTestCmd(nil))
	return cmd
}

// newWorkflowsTestCmd publishes through publish when set; otherwise it opens a Kafka writer.
func newWorkflowsTestCmd(publish publishFunc) *cobra.Command {
	var (
		workflowIDs  []string
		organizerID  string
		bookingID    string
		mode         string
		maxWorkflows int
		brokers      string
		topic        string
	)
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Request test executions of workflows",
		Long: `Publishes execute-workflow requests for the workflow runner.

  mock  one bulk request in test mode with synthetic booking data
  real  one request per workflow in test mode against --booking-id
  live  one request per workflow in production mode against --booking-id;
        real actions (emails, webhooks) are performed`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := workflows.ParseMode(mode)
			if err != nil {
				return err
			}
			if len(workflowIDs) == 0 {
				return errors.New("at least one --workflow-id is required")
			}
			if maxWorkflows > 0 && len(workflowIDs) > maxWorkflows {
				workflowIDs = workflowIDs[:maxWorkflows]
			}
			reqs, err := workflows.Plan(m, workflowIDs, bookingID, organizerID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Testing %d workflow(s) with %s data...\n", len(workflowIDs), m)
			if m == workflows.ModeLive {
				fmt.Fprintln(out, "WARN live run: workflows will execute real actions")
			}

			if publish == nil {
				if brokers == "" {
					brokers = config.String("KAFKA_BROKERS", "")
				}
				if len(kafkax.SplitBrokers(brokers)) == 0 {
					return errors.New("set --brokers or KAFKA_BROKERS")
				}
				w := kafkax.NewWriter(brokers, topic)
				defer func() { _ = w.Close() }()
				publish = workflows.NewPublisher(w).Publish
			}
			ids, err := publish(cmd.Context(), reqs...)
			if err != nil {
				return err
			}
			for i, id := range ids {
				if m == workflows.ModeMock {
					fmt.Fprintf(out, "mock run requested for %d workflow(s), event id: %s\n", len(reqs[i].WorkflowIDs), id)
					continue
				}
				fmt.Fprintf(out, "%s requested, event id: %s\n", reqs[i].WorkflowIDs[0], id)
			}
			fmt.Fprintln(out, "All runs requested. Check the workflow runner logs for results.")
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&workflowIDs, "workflow-id", nil, "workflow id (repeatable)")
	cmd.Flags().StringVar(&organizerID, "organizer", "", "organizer owning the workflows")
	cmd.Flags().StringVar(&bookingID, "booking-id", "", "booking for real and live runs")
	cmd.Flags().StringVar(&mode, "mode", string(workflows.ModeMock), "mock, real or live")
	cmd.Flags().IntVar(&maxWorkflows, "max-workflows", 5, "maximum number of workflows to run")
	cmd.Flags().StringVar(&brokers, "brokers", "", "Kafka brokers (default $KAFKA_BROKERS)")
	cmd.Flags().StringVar(&topic, "topic", config.String("WORKFLOW_TOPIC", workflows.DefaultTopic), "Kafka topic")
	return cmd
}

