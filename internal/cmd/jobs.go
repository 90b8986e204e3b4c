package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jimezsa/jobcrawl/internal/export"
	"github.com/jimezsa/jobcrawl/internal/models"
	"github.com/jimezsa/jobcrawl/internal/storage"
)

type JobsCmd struct {
	Source string `help:"Only jobs from this source."`
	Limit  int    `help:"Maximum number of jobs to print (0 for all)." default:"50"`
	Format string `help:"Output format: table, csv, tsv, json, md."`
	Output string `short:"o" help:"Write to this file instead of stdout." type:"path"`
	Store  string `help:"JSON store path. Defaults to jobs.json in the config dir." type:"path"`
}

func (j *JobsCmd) Run(ctx *Context) error {
	filter := storage.Filter{Limit: j.Limit}
	if j.Source != "" {
		source, err := models.ParseSource(j.Source)
		if err != nil {
			return err
		}
		filter.Source = source
	}

	format, err := resolveFormat(ctx, j.Format, j.Output)
	if err != nil {
		return err
	}

	store, err := openStore(ctx.context(), ctx.Config, j.Store, false)
	if err != nil {
		return err
	}
	defer store.Close()

	jobs, err := store.List(ctx.context(), filter)
	if err != nil {
		return err
	}

	var out io.Writer = ctx.Out
	opts := export.WriteOptions{ColorEnabled: ctx.UI != nil && ctx.UI.ColorEnabled}
	if j.Output != "" {
		file, err := os.Create(j.Output)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
		opts.ColorEnabled = false
	} else {
		opts.Hyperlinks = opts.ColorEnabled && isTTY(out)
	}

	if err := export.WriteJobs(out, jobs, format, opts); err != nil {
		return err
	}
	if j.Output != "" && ctx.UI != nil {
		ctx.UI.Successf("Wrote %d jobs to %s", len(jobs), j.Output)
	}
	return nil
}

// resolveFormat prefers the global --json/--plain flags, then --format, then a
// default that depends on where the output goes.
func resolveFormat(ctx *Context, format, outputPath string) (export.Format, error) {
	if ctx.JSONOutput {
		return export.FormatJSON, nil
	}
	if ctx.PlainText {
		return export.FormatTSV, nil
	}
	if format != "" {
		return parseFormat(format)
	}
	if outputPath != "" {
		return export.FormatCSV, nil
	}
	if isTTY(ctx.Out) {
		return export.FormatTable, nil
	}
	return export.FormatCSV, nil
}

func parseFormat(value string) (export.Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "csv":
		return export.FormatCSV, nil
	case "json":
		return export.FormatJSON, nil
	case "md", "markdown":
		return export.FormatMarkdown, nil
	case "tsv":
		return export.FormatTSV, nil
	case "table", "":
		return export.FormatTable, nil
	default:
		return "", fmt.Errorf("unknown format: %s", value)
	}
}
