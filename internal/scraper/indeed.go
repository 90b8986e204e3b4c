package scraper

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/jobcrawl/internal/models"
	"github.com/jimezsa/jobcrawl/internal/network"
)

const indeedBase = "https://in.indeed.com"

var (
	indeedOffsets = []int{0, 10}
	indeedMarkers = []string{
		"window._initialData",
		`window.mosaic.providerData["mosaic-provider-jobcards"]`,
	}
	indeedJobKey = regexp.MustCompile(`jk=([^&]+)`)
)

type Indeed struct{}

func (i *Indeed) Source() models.Source {
	return models.SourceIndeed
}

func (i *Indeed) FetchJobs(ctx context.Context, rc *RunContext) ([]models.ScrapedJob, error) {
	set := newJobSet()
	for n, query := range rc.Targets.SearchQueries {
		if n > 0 {
			if err := rc.Pause(ctx, 4*time.Second, 8*time.Second); err != nil {
				break
			}
		}
		jobs, err := i.search(ctx, rc, query)
		set.add(jobs...)
		if err != nil {
			break
		}
	}
	return set.list(), nil
}

func (i *Indeed) search(ctx context.Context, rc *RunContext, query string) ([]models.ScrapedJob, error) {
	var jobs []models.ScrapedJob
	headers := network.GenerateStealthHeaders(map[string]string{"Referer": indeedBase + "/"})

	for n, start := range indeedOffsets {
		if n > 0 {
			if err := rc.Pause(ctx, 3*time.Second, 6*time.Second); err != nil {
				return jobs, err
			}
		}

		target := indeedSearchURL(query, start)
		rc.Logger.Info().Str("query", query).Int("offset", start).Msg("fetching indeed jobs")
		resp, err := rc.HTTP.Get(ctx, target, headers)
		if err == nil {
			err = resp.Err()
		}
		if err != nil {
			if rc.Halted(err) {
				return jobs, err
			}
			rc.Fail(fmt.Sprintf("indeed page %q (offset %d)", query, start), target, err)
			continue
		}

		page := parseIndeedJSON(resp.Text())
		if len(page) > 0 {
			rc.Logger.Info().Int("offset", start).Int("jobs", len(page)).Msg("extracted indeed jobs from embedded data")
		} else {
			doc, err := resp.Document()
			if err != nil {
				rc.Fail(fmt.Sprintf("indeed page %q (offset %d)", query, start), target, err)
				continue
			}
			page = parseIndeedCards(doc)
			rc.Logger.Info().Int("offset", start).Int("jobs", len(page)).Msg("parsed indeed cards")
		}
		if len(page) == 0 {
			break
		}
		jobs = append(jobs, page...)
	}
	return jobs, nil
}

func indeedSearchURL(query string, start int) string {
	params := url.Values{}
	params.Set("q", query)
	params.Set("l", "India")
	params.Set("start", strconv.Itoa(start))
	params.Set("fromage", "7")
	params.Set("sort", "date")
	return indeedBase + "/jobs?" + params.Encode()
}

func indeedViewURL(key string) string {
	return indeedBase + "/viewjob?jk=" + url.QueryEscape(key)
}

// parseIndeedJSON reads job results out of the state objects Indeed assigns
// to window globals.
func parseIndeedJSON(page string) []models.ScrapedJob {
	var jobs []models.ScrapedJob
	for _, marker := range indeedMarkers {
		data, ok := assignedJSON(page, marker)
		if !ok {
			continue
		}
		walk(data, func(node map[string]any) bool {
			title := stringValue(node["title"])
			company := stringValue(node["company"], node["companyName"])
			key := stringValue(node["jobkey"], node["jk"], node["id"])
			if title == "" || company == "" || key == "" {
				return false
			}

			job := NewJob(models.SourceIndeed, title, company, indeedViewURL(key))
			job.Location = stringValue(node["formattedLocation"], node["location"])
			job.Description = stringValue(node["snippet"], node["description"])
			job.Salary = stringValue(node["formattedSalary"], mapValue(node["salarySnippet"], "text"), node["salary"])
			job.PostedAt = timeValue(node["pubDate"])
			jobs = append(jobs, job)
			return true
		})
	}
	return jobs
}

func parseIndeedCards(doc *goquery.Document) []models.ScrapedJob {
	var jobs []models.ScrapedJob
	doc.Find(".job_seen_beacon, .jobsearch-ResultsList > li, .result, [class*='cardOutline'], [data-jk]").Each(func(_ int, card *goquery.Selection) {
		title := firstText(card, ".jobTitle span, h2.jobTitle a, [class*='jobTitle'] span, a[data-jk]")
		key := indeedCardKey(card)
		if title == "" || key == "" {
			return
		}

		company := firstText(card, ".companyName, [data-testid='company-name']")
		if company == "" {
			company = "Unknown"
		}
		location := firstText(card, ".companyLocation, [data-testid='text-location']")
		if location == "" {
			location = "India"
		}

		job := NewJob(models.SourceIndeed, title, company, indeedViewURL(key))
		job.Location = location
		job.Description = firstText(card, ".job-snippet, [class*='job-snippet']")
		job.Salary = firstText(card, ".salary-snippet-container, [class*='salary']")
		jobs = append(jobs, job)
	})
	return jobs
}

func indeedCardKey(card *goquery.Selection) string {
	if key, ok := card.Attr("data-jk"); ok && strings.TrimSpace(key) != "" {
		return strings.TrimSpace(key)
	}
	if key := firstAttr(card, "a[data-jk]", "data-jk"); key != "" {
		return key
	}
	if match := indeedJobKey.FindStringSubmatch(firstAttr(card, "a[href*='jk=']", "href")); match != nil {
		return match[1]
	}
	return ""
}
