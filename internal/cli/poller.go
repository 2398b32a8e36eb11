package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewStatusCmd создаёт команду статуса поллера.
func NewStatusCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show poller state",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			status, err := client.Status()
			if err != nil {
				return err
			}

			out.Status(status)
			return nil
		},
	}
}

// NewStartCmd создаёт команду запуска поллинга.
func NewStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start polling",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			status, err := client.Start(provider)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Polling started for provider %s", status.Provider))
			out.Status(status)
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Automation provider name (default: poller's configured provider)")

	return cmd
}

// NewStopCmd создаёт команду остановки поллинга.
func NewStopCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop polling (waits for the in-flight tick server-side)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			status, err := client.Stop()
			if err != nil {
				return err
			}

			out.Success("Polling stop requested")
			out.Status(status)
			return nil
		},
	}
}

// NewHealthCmd создаёт команду проверки /healthz.
func NewHealthCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check poller health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().Healthy(); err != nil {
				return err
			}
			outputFn().Success("ok")
			return nil
		},
	}
}
