// Package export renders stored jobs for the terminal and for files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jimezsa/jobcrawl/internal/models"
	"github.com/jimezsa/jobcrawl/internal/ui"
	"github.com/muesli/termenv"
)

type Format string

const (
	FormatTable    Format = "table"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
	FormatTSV      Format = "tsv"
)

type WriteOptions struct {
	ColorEnabled bool
	Hyperlinks   bool
}

const maxLabel = 60

func WriteJobs(w io.Writer, jobs []models.ScrapedJob, format Format, opts WriteOptions) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, jobs)
	case FormatCSV:
		return writeDelimited(w, jobs, ',')
	case FormatTSV:
		return writeDelimited(w, jobs, '\t')
	case FormatMarkdown:
		return writeMarkdown(w, jobs)
	default:
		return writeTable(w, jobs, opts)
	}
}

func writeJSON(w io.Writer, jobs []models.ScrapedJob) error {
	if jobs == nil {
		jobs = []models.ScrapedJob{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jobs)
}

var columns = []string{
	"source",
	"title",
	"company",
	"location",
	"url",
	"job_type",
	"experience_level",
	"salary",
	"tags",
	"posted_at",
	"scraped_at",
}

func writeDelimited(w io.Writer, jobs []models.ScrapedJob, delim rune) error {
	writer := csv.NewWriter(w)
	writer.Comma = delim
	if err := writer.Write(columns); err != nil {
		return err
	}
	for _, job := range jobs {
		if err := writer.Write(row(job)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func row(job models.ScrapedJob) []string {
	return []string{
		string(job.Source),
		job.Title,
		job.Company,
		job.Location,
		job.URL,
		string(job.JobType),
		string(job.ExperienceLevel),
		job.Salary,
		strings.Join(job.Tags, ";"),
		timestamp(job.PostedAt),
		job.ScrapedAt.UTC().Format(time.RFC3339),
	}
}

func timestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func writeTable(w io.Writer, jobs []models.ScrapedJob, opts WriteOptions) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "source\ttitle\tcompany\tlocation\tlevel\turl")
	output := termenv.NewOutput(w)
	for _, job := range jobs {
		level := string(job.ExperienceLevel)
		if level == "" {
			level = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			job.Source, clean(job.Title), clean(job.Company), clean(job.Location), level,
			link(job.URL, output, opts))
	}
	return tw.Flush()
}

func link(raw string, output *termenv.Output, opts WriteOptions) string {
	raw = clean(raw)
	if raw == "" {
		return "-"
	}
	label := raw
	if opts.Hyperlinks {
		label = shortURLLabel(raw)
	}
	label = ui.ColorizeLink(output, opts.ColorEnabled, label)
	if opts.Hyperlinks {
		label = hyperlink(raw, label)
	}
	return label
}

func writeMarkdown(w io.Writer, jobs []models.ScrapedJob) error {
	if len(jobs) == 0 {
		_, err := fmt.Fprintln(w, "No jobs stored.")
		return err
	}
	for _, job := range jobs {
		lines := []string{
			fmt.Sprintf("- **%s** (%s)", clean(job.Title), clean(job.Company)),
			fmt.Sprintf("  Location: %s", clean(job.Location)),
			fmt.Sprintf("  Source: %s", job.Source),
		}
		if u := clean(job.URL); u != "" {
			lines = append(lines, fmt.Sprintf("  URL: [Open listing](<%s>)", u))
		}
		if job.ExperienceLevel != "" {
			lines = append(lines, fmt.Sprintf("  Level: %s", job.ExperienceLevel))
		}
		if job.JobType != "" {
			lines = append(lines, fmt.Sprintf("  Type: %s", job.JobType))
		}
		if job.Salary != "" {
			lines = append(lines, fmt.Sprintf("  Salary: %s", clean(job.Salary)))
		}
		if len(job.Tags) > 0 {
			lines = append(lines, fmt.Sprintf("  Tags: %s", strings.Join(job.Tags, ", ")))
		}
		if posted := timestamp(job.PostedAt); posted != "" {
			lines = append(lines, fmt.Sprintf("  Posted: %s", posted))
		}
		for _, line := range lines {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

func clean(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

func hyperlink(target, text string) string {
	const esc = "\x1b"
	return esc + "]8;;" + target + esc + "\\" + text + esc + "]8;;" + esc + "\\"
}

func shortURLLabel(raw string) string {
	label := raw
	if parsed, err := url.Parse(raw); err == nil {
		if host := strings.TrimPrefix(parsed.Host, "www."); host != "" {
			label = host + parsed.Path
		}
	}
	if len(label) > maxLabel {
		label = label[:maxLabel-3] + "..."
	}
	return label
}
