package main

import (
	"encoding/json"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// render prints v as JSON or YAML, or hands a table writer to fill.
func (a *app) render(v any, fill func(tw table.Writer)) error {
	switch a.output() {
	case "json":
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(a.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
		tw := table.NewWriter()
		tw.SetOutputMirror(a.out)
		tw.SetStyle(table.StyleLight)
		fill(tw)
		tw.Render()
		return nil
	default:
		return errors.Errorf("unknown output format %q", a.output())
	}
}

// fields fills a two-column key/value table, skipping empty values.
func fields(tw table.Writer, rows ...[2]string) {
	tw.AppendHeader(table.Row{"Field", "Value"})
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		tw.AppendRow(table.Row{r[0], r[1]})
	}
}
