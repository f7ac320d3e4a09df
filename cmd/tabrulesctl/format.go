package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tabsentry/engine/internal/model"
)

func printJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func printRunResult(out io.Writer, result model.RuleRunResult, mutationLog []string) {
	fmt.Fprintf(out, "rule: %s\n", result.RuleID)
	fmt.Fprintf(out, "matches: %d\n", result.TotalMatches)
	fmt.Fprintf(out, "actions: %d\n", result.TotalActions)
	fmt.Fprintf(out, "duration: %dms\n", result.DurationMs)

	if len(result.Actions) > 0 {
		headers := []string{"tab", "action", "success", "detail"}
		rows := make([][]string, 0, len(result.Actions))
		for _, a := range result.Actions {
			detail := a.Error
			if detail == "" && a.DryRun {
				detail = "dry-run"
			}
			rows = append(rows, []string{
				fmt.Sprintf("%d", a.TabID),
				a.Action,
				fmt.Sprintf("%t", a.Success),
				detail,
			})
		}
		renderTable(out, headers, rows)
	}

	if len(result.Errors) > 0 {
		fmt.Fprintln(out, "errors:")
		for _, e := range result.Errors {
			fmt.Fprintf(out, "  - tab=%d action=%s: %s\n", e.TabID, e.Action, e.Message)
		}
	}

	if len(mutationLog) > 0 {
		fmt.Fprintln(out, "driver calls:")
		for _, line := range mutationLog {
			fmt.Fprintf(out, "  - %s\n", line)
		}
	}
}

func renderTable(out io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	writeRow(out, headers, widths)
	writeDivider(out, widths)
	for _, row := range rows {
		writeRow(out, row, widths)
	}
}

func writeDivider(out io.Writer, widths []int) {
	for i, w := range widths {
		if i > 0 {
			fmt.Fprint(out, "  ")
		}
		fmt.Fprint(out, strings.Repeat("-", w))
	}
	fmt.Fprintln(out)
}

func writeRow(out io.Writer, cols []string, widths []int) {
	for i, w := range widths {
		val := ""
		if i < len(cols) {
			val = cols[i]
		}
		fmt.Fprint(out, padRight(val, w))
		if i < len(widths)-1 {
			fmt.Fprint(out, "  ")
		}
	}
	fmt.Fprintln(out)
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
