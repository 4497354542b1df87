package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/RoadSpeedAdjuster/extension/internal/overrides"
	"github.com/RoadSpeedAdjuster/extension/internal/storage"
	"github.com/RoadSpeedAdjuster/extension/internal/units"
	"github.com/charmbracelet/lipgloss"
)

const usage = `usage: roadspeed-cli <command> [args]

commands:
  list                     list cities with stored overrides
  stats <city>             show the overrides of a city
  clear <city>             delete every stored override of a city
  export <city> [file]     write a city's override table as JSON`

var errUsage = errors.New(usage)

// run executes one CLI command against backend, writing to out.
func run(ctx context.Context, args []string, backend storage.Backend, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch strings.ToLower(args[0]) {
	case "list":
		return listScopes(ctx, backend, out)
	case "stats":
		name, err := cityArg(args)
		if err != nil {
			return err
		}
		return showStats(ctx, backend, name, out)
	case "clear":
		name, err := cityArg(args)
		if err != nil {
			return err
		}
		if err := backend.Delete(ctx, name); err != nil {
			return fmt.Errorf("failed to clear %s: %w", name, err)
		}
		fmt.Fprintln(out, "Cleared", TitleStyle.Render(name))
		return nil
	case "export":
		name, err := cityArg(args)
		if err != nil {
			return err
		}
		if len(args) > 2 {
			f, err := os.Create(args[2])
			if err != nil {
				return err
			}
			defer f.Close()
			return exportScope(ctx, backend, name, f)
		}
		return exportScope(ctx, backend, name, out)
	default:
		return fmt.Errorf("unknown command %q\n%w", args[0], errUsage)
	}
}

func cityArg(args []string) (string, error) {
	if len(args) < 2 || strings.TrimSpace(args[1]) == "" {
		return "", fmt.Errorf("%s needs a city name\n%w", args[0], errUsage)
	}
	return args[1], nil
}

func listScopes(ctx context.Context, backend storage.Backend, out io.Writer) error {
	scopes, err := backend.Scopes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list cities: %w", err)
	}
	if len(scopes) == 0 {
		fmt.Fprintln(out, DimStyle.Render("No stored overrides."))
		return nil
	}
	fmt.Fprintln(out, HeaderStyle.Render("Cities"))
	for _, s := range scopes {
		fmt.Fprintln(out, "  "+s)
	}
	return nil
}

func showStats(ctx context.Context, backend storage.Backend, name string, out io.Writer) error {
	table, err := backend.Load(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", name, err)
	}

	fmt.Fprintln(out, TitleStyle.Render(name))
	saved := "never"
	if !table.LastSaved.IsZero() {
		saved = table.LastSaved.UTC().Format("2006-01-02 15:04:05")
	}
	fmt.Fprintln(out, DimStyle.Render(fmt.Sprintf("%d segments, last saved %s", len(table.Records), saved)))
	if len(table.Records) == 0 {
		return nil
	}

	fmt.Fprintln(out, renderRecords(table.Records))
	return nil
}

// renderRecords lays records out as aligned columns with both unit systems.
func renderRecords(records []overrides.Record) string {
	header := []string{"SEGMENT", "ORIGINAL", "CURRENT", "MPH"}
	rows := [][]string{header}
	for _, r := range records {
		rows = append(rows, []string{
			fmt.Sprintf("%d", r.SegmentID),
			fmt.Sprintf("%.0f km/h", r.OriginalValue),
			fmt.Sprintf("%.0f km/h", r.CurrentValue),
			fmt.Sprintf("%.0f", units.FromKmh(r.CurrentValue, units.Imperial)),
		})
	}

	columns := make([]string, len(header))
	for c := range header {
		cells := make([]string, len(rows))
		for i, row := range rows {
			switch {
			case i == 0:
				cells[i] = HeaderStyle.Render(row[c])
			case c == 2 && records[i-1].CurrentValue != records[i-1].OriginalValue:
				cells[i] = ChangedStyle.Render(row[c])
			default:
				cells[i] = row[c]
			}
		}
		columns[c] = CellStyle.Render(lipgloss.JoinVertical(lipgloss.Left, cells...))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, columns...)
}

func exportScope(ctx context.Context, backend storage.Backend, name string, w io.Writer) error {
	table, err := backend.Load(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", name, err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(table)
}
