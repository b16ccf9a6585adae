package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

// errUnsupportedFormat is returned when the requested output format is not supported.
var errUnsupportedFormat = errors.New("unsupported output format")

func formatStatus(status *daemonStatus, format string) (string, error) {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal status to JSON: %w", err)
		}
		return string(data) + "\n", nil
	case formatTable:
		return formatStatusTable(status), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func formatStatusTable(status *daemonStatus) string {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Status:\t%s\n", shortStatus(status.Status))
	fmt.Fprintf(w, "Run State:\t%s\n", shortRunState(status.RunState))
	fmt.Fprintf(w, "Alive Since:\t%s\n", time.Unix(status.AliveSince, 0).Format(time.RFC3339))

	names := make([]string, 0, len(status.Counters))
	for name := range status.Counters {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(w, "%s:\t%d\n", name, status.Counters[name])
	}

	if err := w.Flush(); err != nil {
		return buf.String()
	}
	return buf.String()
}

func shortStatus(s int) string {
	switch s {
	case 0:
		return "Alive"
	default:
		return "Unknown"
	}
}

func shortRunState(s int) string {
	switch s {
	case 0:
		return "Configured"
	default:
		return "Unknown"
	}
}
