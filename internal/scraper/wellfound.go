package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/jobcrawl/internal/models"
	"github.com/jimezsa/jobcrawl/internal/network"
)

const (
	wellfoundBase    = "https://wellfound.com"
	wellfoundGraphQL = wellfoundBase + "/graphql"
)

const wellfoundQuery = `query SeoLandingPageSearchResults($query: String!, $page: Int!) {
  talent {
    seoLandingPageJobSearchResults(query: $query, page: $page) {
      startupSearchResults {
        highlightedJobListings {
          jobListing {
            id
            title
            slug
            description
            remote
            primaryRoleTitle
            liveStartAt
            locationNames
            compensation
            startup { name companyUrl }
          }
        }
      }
    }
  }
}`

type Wellfound struct{}

type wellfoundListing struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Slug          string   `json:"slug"`
	Description   string   `json:"description"`
	Remote        bool     `json:"remote"`
	LiveStartAt   int64    `json:"liveStartAt"`
	LocationNames []string `json:"locationNames"`
	Compensation  string   `json:"compensation"`
	Startup       struct {
		Name string `json:"name"`
	} `json:"startup"`
}

type wellfoundResponse struct {
	Data struct {
		Talent struct {
			Results struct {
				Startups []struct {
					Highlighted []struct {
						JobListing *wellfoundListing `json:"jobListing"`
					} `json:"highlightedJobListings"`
				} `json:"startupSearchResults"`
			} `json:"seoLandingPageJobSearchResults"`
		} `json:"talent"`
	} `json:"data"`
}

func (w *Wellfound) Source() models.Source {
	return models.SourceWellfound
}

func (w *Wellfound) FetchJobs(ctx context.Context, rc *RunContext) ([]models.ScrapedJob, error) {
	set := newJobSet()
	first := true
	pause := func() error {
		if first {
			first = false
			return nil
		}
		return rc.Pause(ctx, 2*time.Second, 4*time.Second)
	}

	headers := network.GenerateStealthHeaders(map[string]string{"Referer": wellfoundBase + "/"})
	for _, role := range rc.Targets.WellfoundRoles {
		if err := pause(); err != nil {
			return set.list(), nil
		}
		target := wellfoundBase + "/role/" + role
		rc.Logger.Info().Str("url", target).Msg("fetching wellfound role page")
		doc, err := fetchDocument(ctx, rc, target, headers)
		if err != nil {
			if rc.Halted(err) {
				return set.list(), nil
			}
			rc.Fail("wellfound role "+role, target, err)
			continue
		}
		jobs := parseWellfoundPage(doc)
		set.add(jobs...)
		rc.Logger.Info().Str("url", target).Int("jobs", len(jobs)).Msg("parsed wellfound role page")
	}

	for _, query := range rc.Targets.WellfoundQueries {
		if err := pause(); err != nil {
			break
		}
		jobs, err := searchWellfound(ctx, rc, query)
		if err != nil {
			if rc.Halted(err) {
				break
			}
			rc.Logger.Warn().Err(err).Str("query", query).Msg("wellfound graphql query failed")
			continue
		}
		set.add(jobs...)
	}
	return set.list(), nil
}

func searchWellfound(ctx context.Context, rc *RunContext, query string) ([]models.ScrapedJob, error) {
	payload := map[string]any{
		"query":     wellfoundQuery,
		"variables": map[string]any{"query": query, "page": 1},
	}
	headers := network.GenerateStealthHeaders(map[string]string{"X-Requested-With": "XMLHttpRequest"})
	resp, err := rc.HTTP.PostJSON(ctx, wellfoundGraphQL, payload, headers)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	var body wellfoundResponse
	if err := resp.JSON(&body); err != nil {
		return nil, fmt.Errorf("unexpected response format: %w", err)
	}

	var jobs []models.ScrapedJob
	for _, startup := range body.Data.Talent.Results.Startups {
		for _, item := range startup.Highlighted {
			listing := item.JobListing
			if listing == nil {
				continue
			}
			link := wellfoundJobURL(listing.ID, listing.Slug, "")
			if listing.Title == "" || link == "" {
				continue
			}
			company := listing.Startup.Name
			if company == "" {
				company = "Unknown"
			}
			job := NewJob(models.SourceWellfound, strings.TrimSpace(listing.Title), company, link)
			job.Location = strings.Join(listing.LocationNames, ", ")
			job.Description = listing.Description
			job.Salary = listing.Compensation
			if listing.LiveStartAt > 0 {
				job.PostedAt = fromMillis(listing.LiveStartAt * 1000)
			}
			jobs = append(jobs, job)
		}
	}
	rc.Logger.Info().Str("query", query).Int("jobs", len(jobs)).Msg("wellfound graphql returned jobs")
	return jobs, nil
}

// wellfoundJobURL prefers the canonical /jobs/{id}-{slug} form.
func wellfoundJobURL(id, slug, fallback string) string {
	switch {
	case id != "" && slug != "":
		return wellfoundBase + "/jobs/" + id + "-" + slug
	case slug != "":
		return wellfoundBase + "/jobs/" + slug
	case fallback != "":
		return absoluteURL(wellfoundBase, fallback)
	}
	return ""
}

func parseWellfoundPage(doc *goquery.Document) []models.ScrapedJob {
	var jobs []models.ScrapedJob
	doc.Find("[data-test='StartupResult'], .job-listing, [class*='JobListing']").Each(func(_ int, card *goquery.Selection) {
		title := firstText(card, "[data-test='JobListingTitle'], h2, [class*='title']")
		if title == "" {
			title = firstText(card, "a")
		}
		company := firstText(card, "[data-test='StartupName'], h3, [class*='company']")
		link := firstAttr(card, "a[href*='/jobs/']", "href")
		if link == "" {
			link = firstAttr(card, "a", "href")
		}
		if title == "" || company == "" || link == "" {
			return
		}

		job := NewJob(models.SourceWellfound, title, company, absoluteURL(wellfoundBase, link))
		job.Location = firstText(card, "[data-test='Location'], [class*='location']")
		if job.Location == "" {
			job.Location = "Not specified"
		}
		job.Salary = firstText(card, "[data-test='Compensation'], [class*='compensation'], [class*='salary']")
		jobs = append(jobs, job)
	})

	for _, data := range scriptJSON(doc, "script#__NEXT_DATA__, script[type='application/json']") {
		walk(data, func(node map[string]any) bool {
			job, ok := wellfoundListingNode(node)
			if ok {
				jobs = append(jobs, job)
			}
			return ok
		})
	}
	return jobs
}

// wellfoundListingNode recognises a job listing object in page state: a
// title, some identifier and a nested startup.
func wellfoundListingNode(node map[string]any) (models.ScrapedJob, bool) {
	title := stringValue(node["title"])
	startup, ok := node["startup"].(map[string]any)
	if title == "" || !ok {
		return models.ScrapedJob{}, false
	}
	link := wellfoundJobURL(stringValue(node["id"]), stringValue(node["slug"]), stringValue(node["url"]))
	if link == "" {
		return models.ScrapedJob{}, false
	}

	company := stringValue(startup["name"])
	if company == "" {
		company = "Unknown"
	}
	job := NewJob(models.SourceWellfound, title, company, link)
	job.Location = strings.Join(stringList(node["locationNames"]), ", ")
	if description, ok := node["description"].(string); ok {
		job.Description = description
	}
	job.Salary = stringValue(node["compensation"])
	job.PostedAt = timeValue(node["liveStartAt"])
	return job, true
}
