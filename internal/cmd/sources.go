package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/jimezsa/jobcrawl/internal/models"
)

type SourcesCmd struct{}

type sourceStatus struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

func (s *SourcesCmd) Run(ctx *Context) error {
	statuses := make([]sourceStatus, 0, len(models.AllSources()))
	for _, source := range models.AllSources() {
		statuses = append(statuses, sourceStatus{
			Name:    string(source),
			Enabled: ctx.Config.SourceEnabled(string(source)),
		})
	}

	if ctx.JSONOutput {
		return writeJSON(ctx.Out, statuses)
	}
	if ctx.PlainText {
		for _, status := range statuses {
			fmt.Fprintf(ctx.Out, "%s\t%t\n", status.Name, status.Enabled)
		}
		return nil
	}

	tw := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "source\tenabled")
	for _, status := range statuses {
		fmt.Fprintf(tw, "%s\t%t\n", status.Name, status.Enabled)
	}
	return tw.Flush()
}
