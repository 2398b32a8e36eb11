// Conveyor CLI — инструмент командной строки для управления поллером
// автоматизаций через его админ-интерфейс.
//
// Использование:
//
//	conveyor [--poller-url URL] [--json] <command> [flags]
//
// Команды:
//
//	status  Состояние поллера
//	start   Запуск поллинга
//	stop    Остановка поллинга
//	health  Проверка /healthz
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Conveyor/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var pollerURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "conveyor",
		Short:         "Conveyor CLI — polling automation control tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&pollerURL, "poller-url", "http://localhost:8082", "Poller admin URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(pollerURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewStatusCmd(clientFn, outputFn),
		cli.NewStartCmd(clientFn, outputFn),
		cli.NewStopCmd(clientFn, outputFn),
		cli.NewHealthCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
