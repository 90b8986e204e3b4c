package orchestrator

import (
	"fmt"
	"io"
	"sort"
	"time"
)

// WriteSummary prints one line per source, the totals and per-host request
// counts.
func WriteSummary(w io.Writer, report Report) error {
	var found, saved, errs int
	lines := []string{"=== Crawl Summary ==="}
	for _, result := range report.Results {
		found += result.TotalFound
		saved += result.TotalSaved
		errs += len(result.Errors)

		status := "ok"
		if len(result.Errors) > 0 {
			status = "!!"
		}
		lines = append(lines, fmt.Sprintf("  %s %s: %d found, %d saved, %d errors (%s)",
			status, result.Source, result.TotalFound, result.TotalSaved, len(result.Errors), seconds(result.Duration)))
	}

	lines = append(lines,
		"",
		fmt.Sprintf("Total: %d jobs found, %d saved, %d errors", found, saved, errs),
		fmt.Sprintf("Total duration: %s", seconds(report.Duration)),
	)
	if report.Interrupted {
		lines = append(lines, "Run interrupted before all sources completed.")
	}

	if len(report.Hosts) > 0 {
		hosts := make([]string, 0, len(report.Hosts))
		for host := range report.Hosts {
			hosts = append(hosts, host)
		}
		sort.Strings(hosts)

		lines = append(lines, "", "Rate limiter stats:")
		for _, host := range hosts {
			lines = append(lines, fmt.Sprintf("  %s: %d requests", host, report.Hosts[host].Requests))
		}
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
