package scraper

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/jimezsa/jobcrawl/internal/models"
	"github.com/jimezsa/jobcrawl/internal/network"
)

const greenhouseAPI = "https://boards-api.greenhouse.io/v1/boards/"

type Greenhouse struct{}

type greenhouseJob struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	UpdatedAt string `json:"updated_at"`
	Location  struct {
		Name string `json:"name"`
	} `json:"location"`
	AbsoluteURL string `json:"absolute_url"`
	Content     string `json:"content"`
	Metadata    []struct {
		Name  string `json:"name"`
		Value any    `json:"value"`
	} `json:"metadata"`
}

type greenhouseBoard struct {
	Jobs []greenhouseJob `json:"jobs"`
}

func (g *Greenhouse) Source() models.Source {
	return models.SourceGreenhouse
}

func (g *Greenhouse) FetchJobs(ctx context.Context, rc *RunContext) ([]models.ScrapedJob, error) {
	var jobs []models.ScrapedJob
	for i, company := range rc.Targets.Greenhouse {
		if i > 0 {
			if err := rc.Pause(ctx, 800*time.Millisecond, 2*time.Second); err != nil {
				break
			}
		}

		target := greenhouseAPI + company.Slug + "/jobs"
		board, err := fetchGreenhouseBoard(ctx, rc, target)
		if err != nil {
			if rc.Halted(err) {
				break
			}
			rc.Fail(company.Name, target, err)
			continue
		}
		rc.Logger.Info().Str("company", company.Name).Int("postings", len(board.Jobs)).Msg("fetched greenhouse board")
		for _, posting := range board.Jobs {
			jobs = append(jobs, mapGreenhouseJob(posting, company.Name))
		}
	}
	return jobs, nil
}

func fetchGreenhouseBoard(ctx context.Context, rc *RunContext, target string) (greenhouseBoard, error) {
	var board greenhouseBoard
	resp, err := rc.HTTP.Get(ctx, target+"?content=true", network.GenerateAPIHeaders())
	if err != nil {
		return board, err
	}
	if err := resp.Err(); err != nil {
		return board, err
	}
	if err := resp.JSON(&board); err != nil {
		return board, fmt.Errorf("unexpected response format: %w", err)
	}
	return board, nil
}

func mapGreenhouseJob(posting greenhouseJob, company string) models.ScrapedJob {
	job := NewJob(models.SourceGreenhouse, strings.TrimSpace(posting.Title), company, posting.AbsoluteURL)
	job.Location = strings.TrimSpace(posting.Location.Name)
	job.Description = html.UnescapeString(posting.Content)
	job.PostedAt = postedAt(posting.UpdatedAt)

	for _, meta := range posting.Metadata {
		name := strings.ToLower(meta.Name)
		if !strings.Contains(name, "salary") && !strings.Contains(name, "compensation") {
			continue
		}
		if value := stringValue(meta.Value, mapValue(meta.Value, "value")); value != "" {
			job.Salary = value
			break
		}
	}
	return job
}
