package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/lzjever/escn/internal/core"
)

func printResult(v interface{}) {
	writeResult(os.Stdout, output, v)
}

func writeResult(out io.Writer, format string, v interface{}) {
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.Encode(v)
		return
	}
	writeTable(out, v)
}

func writeTable(out io.Writer, v interface{}) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	switch data := v.(type) {
	case []string:
		for _, s := range data {
			fmt.Fprintln(w, s)
		}
	case core.Decoded:
		fmt.Fprintf(w, "ESCN:\t%s\n", data.ESCN)
		fmt.Fprintf(w, "Seeded at:\t%s\n", data.WallClock().Format(time.RFC3339Nano))
		fmt.Fprintf(w, "Tick:\t%d\n", data.Tick())
		fmt.Fprintf(w, "Clock sequence:\t%#04x\n", data.ClockSequence)
		fmt.Fprintf(w, "Prefix:\t%s\n", data.Prefix)
		fmt.Fprintf(w, "PIC:\t%s\n", data.PIC)
	case StudentRow:
		fmt.Fprintf(w, "Student ID:\t%s\n", data.StudentID)
		fmt.Fprintf(w, "Exists:\t%t\n", data.Exists)
	case core.Card:
		fmt.Fprintf(w, "Student ID:\t%s\n", data.StudentID)
		fmt.Fprintf(w, "ESCN:\t%s\n", data.ESCN)
		if data.CardType != "" {
			fmt.Fprintf(w, "Card type:\t%s\n", data.CardType)
		}
	case core.IssuedCard:
		fmt.Fprintf(w, "Issue ID:\t%s\n", data.IssueID)
		fmt.Fprintf(w, "Student ID:\t%s\n", data.StudentID)
		fmt.Fprintf(w, "ESCN:\t%s\n", data.ESCN)
		fmt.Fprintf(w, "Card type:\t%s\n", data.CardType)
		fmt.Fprintf(w, "Created:\t%s\n", data.CreatedAt.Format(time.RFC3339))
	case []core.IssuedCard:
		if len(data) == 0 {
			fmt.Fprintln(w, "No cards found.")
			return
		}
		fmt.Fprintln(w, "ESCN\tTYPE\tIDEMPOTENCY KEY\tCREATED")
		for _, c := range data {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ESCN, c.CardType, truncate(c.IdempotencyKey, 12), c.CreatedAt.Format(time.RFC3339))
		}
	case []MetricRow:
		for _, m := range data {
			fmt.Fprintf(w, "%s:\t%s\n", m.Name, m.Value)
		}
	default:
		json.NewEncoder(out).Encode(v)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
