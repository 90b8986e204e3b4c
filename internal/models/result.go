package models

import "time"

// ScraperError is a diagnostic recorded during a source run.
type ScraperError struct {
	Source    Source    `json:"source"`
	Message   string    `json:"message"`
	URL       string    `json:"url,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Retryable bool      `json:"retryable"`
}

func (e ScraperError) Error() string {
	if e.URL == "" {
		return string(e.Source) + ": " + e.Message
	}
	return string(e.Source) + ": " + e.Message + " (" + e.URL + ")"
}

// ScraperResult summarizes one source run.
type ScraperResult struct {
	Source       Source         `json:"source"`
	Jobs         []ScrapedJob   `json:"jobs"`
	Errors       []ScraperError `json:"errors"`
	Duration     time.Duration  `json:"duration"`
	TotalFetched int            `json:"total_fetched"`
	TotalFound   int            `json:"total_found"`
	TotalSaved   int            `json:"total_saved"`
}

// FailedResult is the zero result recorded when a source could not run at all.
func FailedResult(source Source, err error) ScraperResult {
	return ScraperResult{
		Source: source,
		Jobs:   []ScrapedJob{},
		Errors: []ScraperError{{
			Source:    source,
			Message:   err.Error(),
			Timestamp: time.Now(),
			Retryable: false,
		}},
	}
}
