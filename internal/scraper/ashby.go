package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jimezsa/jobcrawl/internal/config"
	"github.com/jimezsa/jobcrawl/internal/models"
	"github.com/jimezsa/jobcrawl/internal/network"
)

const (
	ashbyAPI   = "https://jobs.ashbyhq.com/api/non-user-graphql"
	ashbyBoard = "https://jobs.ashbyhq.com/"
)

const ashbyQuery = `query ApiJobBoardWithTeams($organizationHostedJobsPageName: String!) {
  jobBoard: jobBoardWithTeams(organizationHostedJobsPageName: $organizationHostedJobsPageName) {
    jobPostings {
      id
      title
      departmentName
      locationName
      employmentType
      publishedDate
      descriptionHtml
      descriptionPlain
      compensationTierSummary
      jobUrl
      isRemote
      secondaryLocations { locationName }
    }
  }
}`

var errNoAshbyBoard = errors.New("no job board in response")

type Ashby struct{}

type ashbyPosting struct {
	ID                      string `json:"id"`
	Title                   string `json:"title"`
	LocationName            string `json:"locationName"`
	EmploymentType          string `json:"employmentType"`
	PublishedDate           string `json:"publishedDate"`
	DescriptionHTML         string `json:"descriptionHtml"`
	DescriptionPlain        string `json:"descriptionPlain"`
	CompensationTierSummary string `json:"compensationTierSummary"`
	JobURL                  string `json:"jobUrl"`
	IsRemote                bool   `json:"isRemote"`
	SecondaryLocations      []struct {
		LocationName string `json:"locationName"`
	} `json:"secondaryLocations"`
}

type ashbyResponse struct {
	Data struct {
		JobBoard *struct {
			JobPostings []ashbyPosting `json:"jobPostings"`
		} `json:"jobBoard"`
	} `json:"data"`
}

func (a *Ashby) Source() models.Source {
	return models.SourceAshby
}

func (a *Ashby) FetchJobs(ctx context.Context, rc *RunContext) ([]models.ScrapedJob, error) {
	var jobs []models.ScrapedJob
	for i, company := range rc.Targets.Ashby {
		if i > 0 {
			if err := rc.Pause(ctx, time.Second, 2500*time.Millisecond); err != nil {
				break
			}
		}

		postings, err := fetchAshbyBoard(ctx, rc, company)
		if errors.Is(err, errNoAshbyBoard) {
			rc.Logger.Warn().Str("company", company.Name).Msg("no ashby postings found")
			continue
		}
		if err != nil {
			if rc.Halted(err) {
				break
			}
			rc.Fail(company.Name, ashbyBoard+company.Slug, err)
			continue
		}
		rc.Logger.Info().Str("company", company.Name).Int("postings", len(postings)).Msg("fetched ashby board")
		for _, posting := range postings {
			jobs = append(jobs, mapAshbyPosting(posting, company))
		}
	}
	return jobs, nil
}

func fetchAshbyBoard(ctx context.Context, rc *RunContext, company config.Company) ([]ashbyPosting, error) {
	payload := map[string]any{
		"operationName": "ApiJobBoardWithTeams",
		"variables":     map[string]string{"organizationHostedJobsPageName": company.Slug},
		"query":         ashbyQuery,
	}
	resp, err := rc.HTTP.PostJSON(ctx, ashbyAPI, payload, network.GenerateAPIHeaders())
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	var body ashbyResponse
	if err := resp.JSON(&body); err != nil {
		return nil, fmt.Errorf("unexpected response format: %w", err)
	}
	if body.Data.JobBoard == nil {
		return nil, errNoAshbyBoard
	}
	return body.Data.JobBoard.JobPostings, nil
}

func mapAshbyPosting(posting ashbyPosting, company config.Company) models.ScrapedJob {
	var locations []string
	if loc := strings.TrimSpace(posting.LocationName); loc != "" {
		locations = append(locations, loc)
	}
	for _, secondary := range posting.SecondaryLocations {
		if loc := strings.TrimSpace(secondary.LocationName); loc != "" {
			locations = append(locations, loc)
		}
	}
	location := strings.Join(locations, ", ")
	if posting.IsRemote {
		location = strings.TrimSuffix("Remote, "+location, ", ")
	}

	url := posting.JobURL
	if url == "" {
		url = ashbyBoard + company.Slug + "/" + posting.ID
	}
	description := posting.DescriptionHTML
	if description == "" {
		description = posting.DescriptionPlain
	}

	job := NewJob(models.SourceAshby, strings.TrimSpace(posting.Title), company.Name, url)
	job.Location = location
	job.Description = description
	job.Salary = posting.CompensationTierSummary
	job.PostedAt = postedAt(posting.PublishedDate)
	job.JobType = jobTypeFrom(posting.EmploymentType)
	return job
}
