package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jimezsa/jobcrawl/internal/config"
	"github.com/jimezsa/jobcrawl/internal/models"
	"github.com/jimezsa/jobcrawl/internal/network"
)

const leverAPI = "https://api.lever.co/v0/postings/"

type Lever struct{}

type leverPosting struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	Categories struct {
		Commitment string `json:"commitment"`
		Location   string `json:"location"`
		Team       string `json:"team"`
	} `json:"categories"`
	Description string `json:"description"`
	Lists       []struct {
		Text    string `json:"text"`
		Content string `json:"content"`
	} `json:"lists"`
	Additional  string `json:"additional"`
	HostedURL   string `json:"hostedUrl"`
	CreatedAt   int64  `json:"createdAt"`
	SalaryRange *struct {
		Min      float64 `json:"min"`
		Max      float64 `json:"max"`
		Currency string  `json:"currency"`
		Interval string  `json:"interval"`
	} `json:"salaryRange"`
}

func (l *Lever) Source() models.Source {
	return models.SourceLever
}

func (l *Lever) FetchJobs(ctx context.Context, rc *RunContext) ([]models.ScrapedJob, error) {
	var jobs []models.ScrapedJob
	for i, company := range rc.Targets.Lever {
		if i > 0 {
			if err := rc.Pause(ctx, 800*time.Millisecond, 2*time.Second); err != nil {
				break
			}
		}

		postings, err := fetchLeverBoard(ctx, rc, company)
		if err != nil {
			if rc.Halted(err) {
				break
			}
			rc.Fail(company.Name, leverAPI+company.Slug, err)
			continue
		}
		rc.Logger.Info().Str("company", company.Name).Int("postings", len(postings)).Msg("fetched lever board")
		for _, posting := range postings {
			jobs = append(jobs, mapLeverPosting(posting, company.Name))
		}
	}
	return jobs, nil
}

func fetchLeverBoard(ctx context.Context, rc *RunContext, company config.Company) ([]leverPosting, error) {
	resp, err := rc.HTTP.Get(ctx, leverAPI+company.Slug+"?mode=json", network.GenerateAPIHeaders())
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	var postings []leverPosting
	if err := resp.JSON(&postings); err != nil {
		return nil, fmt.Errorf("unexpected response format: %w", err)
	}
	return postings, nil
}

func mapLeverPosting(posting leverPosting, company string) models.ScrapedJob {
	parts := []string{posting.Description}
	for _, list := range posting.Lists {
		parts = append(parts, "<h3>"+list.Text+"</h3>"+list.Content)
	}
	parts = append(parts, posting.Additional)

	var description []string
	for _, part := range parts {
		if strings.TrimSpace(part) != "" {
			description = append(description, part)
		}
	}

	job := NewJob(models.SourceLever, strings.TrimSpace(posting.Text), company, posting.HostedURL)
	job.Location = strings.TrimSpace(posting.Categories.Location)
	job.Description = strings.Join(description, "\n")
	job.PostedAt = fromMillis(posting.CreatedAt)
	job.JobType = jobTypeFrom(posting.Categories.Commitment)
	if r := posting.SalaryRange; r != nil {
		job.Salary = fmt.Sprintf("%s %s-%s %s", r.Currency, thousands(int64(r.Min)), thousands(int64(r.Max)), r.Interval)
	}
	return job
}
