package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
)

// Output управляет форматированием вывода CLI.
type Output struct {
	jsonMode bool
	w        io.Writer // stdout для данных
	errW     io.Writer // stderr для сообщений
}

// NewOutput создаёт Output. Если jsonMode=true, данные выводятся в JSON.
func NewOutput(jsonMode bool) *Output {
	return &Output{
		jsonMode: jsonMode,
		w:        os.Stdout,
		errW:     os.Stderr,
	}
}

// Status выводит состояние поллера: пары ключ-значение или JSON
// в зависимости от режима.
func (o *Output) Status(status *StatusResponse) {
	if o.jsonMode {
		o.JSON(status)
		return
	}

	rows := [][2]string{
		{"STATE", status.State},
		{"PROVIDER", status.Provider},
		{"LEADER", fmt.Sprintf("%t", status.Leader)},
		{"TABLES", fmt.Sprintf("%d", status.Tables)},
		{"INITIAL DELAY", status.InitialDelay},
		{"DELAY", status.Delay},
		{"UPTIME", status.Uptime},
	}

	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1])
	}
	tw.Flush()
}

// JSON выводит данные в формате JSON с отступами.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// Success выводит сообщение об успехе в stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, msg)
}

// Error выводит сообщение об ошибке в stderr.
func (o *Output) Error(msg string) {
	fmt.Fprintln(o.errW, "Error: "+msg)
}
