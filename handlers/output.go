package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Printer writes screen data in the configured format.
type Printer struct {
	w      io.Writer
	format string
}

// NewPrinter returns a Printer; unknown formats fall back to table.
func NewPrinter(w io.Writer, format string) *Printer {
	switch format {
	case FormatJSON, FormatYAML:
	default:
		format = FormatTable
	}
	return &Printer{w: w, format: format}
}

// Format reports the output format in use.
func (p *Printer) Format() string { return p.format }

// Print renders v as json or yaml, or calls table with a tabwriter.
func (p *Printer) Print(v any, table func(tw *tabwriter.Writer)) error {
	switch p.format {
	case FormatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}

// Message writes a plain line. It is suppressed for machine formats.
func (p *Printer) Message(format string, args ...any) {
	if p.format != FormatTable {
		return
	}
	fmt.Fprintf(p.w, format+"\n", args...)
}

func row(tw *tabwriter.Writer, cols ...any) {
	for i, c := range cols {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, c)
	}
	fmt.Fprintln(tw)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
