package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewRunCmd создаёт группу команд для управления runs.
func NewRunCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Manage pipeline runs",
	}

	cmd.AddCommand(
		newRunListCmd(clientFn, outputFn),
		newRunStartCmd(clientFn, outputFn),
		newRunShowCmd(clientFn, outputFn),
		newRunArtifactsCmd(clientFn, outputFn),
		newRunResultCmd(clientFn, outputFn),
	)

	return cmd
}

func newRunListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var userID string
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			runs, err := client.ListRuns(ListRunsOpts{
				UserID: userID,
				Status: status,
				Limit:  limit,
			})
			if err != nil {
				return err
			}

			headers := []string{"ID", "USER_ID", "MODE", "STATUS", "CREATED"}
			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = []string{r.ID, r.UserID, r.Mode, r.Status, r.CreatedAt}
			}

			out.Print(headers, rows, runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "Filter by user ID")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (PENDING, RUNNING, COMPLETED, PARTIAL, FAILED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newRunStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var runID string
	var mode string
	var configJSON string
	var configPairs []string

	cmd := &cobra.Command{
		Use:   "start USER_ID",
		Short: "Start a new run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := CreateRunRequest{
				ID:     runID,
				UserID: args[0],
				Mode:   mode,
			}

			if configJSON != "" {
				if err := json.Unmarshal([]byte(configJSON), &req.Config); err != nil {
					return fmt.Errorf("invalid --config JSON: %w", err)
				}
			}

			for _, kv := range configPairs {
				parts := strings.SplitN(kv, "=", 2)
				if len(parts) != 2 {
					return fmt.Errorf("invalid config format %q, expected KEY=VALUE", kv)
				}
				if req.Config == nil {
					req.Config = make(map[string]any)
				}
				req.Config[parts[0]] = parts[1]
			}

			run, err := client.CreateRun(req)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Run started: %s", run.ID))
			out.Print(
				[]string{"ID", "USER_ID", "MODE", "STATUS", "CREATED"},
				[][]string{{run.ID, run.UserID, run.Mode, run.Status, run.CreatedAt}},
				run,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "id", "", "Run ID (generated if not specified)")
	cmd.Flags().StringVar(&mode, "mode", "", "Run mode: normal or development")
	cmd.Flags().StringVar(&configJSON, "config", "", "Pipeline config as JSON")
	cmd.Flags().StringSliceVar(&configPairs, "set", nil, "Config values as KEY=VALUE (repeatable)")

	return cmd
}

func newRunShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show run details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			run, err := client.GetRun(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "USER_ID", "MODE", "STATUS", "ERROR", "CREATED"},
				[][]string{{run.ID, run.UserID, run.Mode, run.Status, run.Error, run.CreatedAt}},
				run,
			)
			return nil
		},
	}
}

func newRunArtifactsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "artifacts ID",
		Short: "List run artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			artifacts, err := client.ListArtifacts(args[0])
			if err != nil {
				return err
			}

			headers := []string{"ID", "STEP", "TYPE", "CREATED"}
			rows := make([][]string, len(artifacts))
			for i, a := range artifacts {
				rows[i] = []string{strconv.FormatInt(a.ID, 10), a.StepName, a.Type, a.CreatedAt}
			}

			out.Print(headers, rows, artifacts)
			return nil
		},
	}
}

func newRunResultCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "result ID",
		Short: "Show final aggregated result of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			result, err := client.GetResult(args[0])
			if err != nil {
				return err
			}

			// Результат — произвольный документ, всегда выводим JSON
			out.JSON(result)
			return nil
		},
	}
}
