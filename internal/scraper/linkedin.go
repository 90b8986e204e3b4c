package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/jobcrawl/internal/models"
	"github.com/jimezsa/jobcrawl/internal/network"
)

const (
	linkedInBase   = "https://www.linkedin.com"
	linkedInSearch = linkedInBase + "/jobs-guest/jobs/api/seeMoreJobPostings/search"
	linkedInGeoID  = "102713980"
)

var linkedInOffsets = []int{0, 25}

type LinkedIn struct{}

func (l *LinkedIn) Source() models.Source {
	return models.SourceLinkedIn
}

func (l *LinkedIn) FetchJobs(ctx context.Context, rc *RunContext) ([]models.ScrapedJob, error) {
	set := newJobSet()
	for i, query := range rc.Targets.SearchQueries {
		if i > 0 {
			if err := rc.Pause(ctx, 5*time.Second, 10*time.Second); err != nil {
				break
			}
		}
		jobs, err := l.search(ctx, rc, query)
		set.add(jobs...)
		if err != nil {
			break
		}
	}
	return set.list(), nil
}

// search walks the result pages of one query. A non-nil error means the run
// is halting and jobs holds what was collected so far.
func (l *LinkedIn) search(ctx context.Context, rc *RunContext, query string) ([]models.ScrapedJob, error) {
	var jobs []models.ScrapedJob
	headers := network.GenerateStealthHeaders(map[string]string{
		"Referer": linkedInBase + "/jobs/search/?keywords=" + url.QueryEscape(query) + "&location=India",
	})

	for i, start := range linkedInOffsets {
		if i > 0 {
			if err := rc.Pause(ctx, 3*time.Second, 7*time.Second); err != nil {
				return jobs, err
			}
		}

		target := linkedInSearchURL(query, start)
		rc.Logger.Info().Str("query", query).Int("offset", start).Msg("fetching linkedin jobs")
		doc, err := fetchDocument(ctx, rc, target, headers)
		if err != nil {
			if rc.Halted(err) {
				return jobs, err
			}
			rc.Fail(fmt.Sprintf("linkedin page %q (offset %d)", query, start), target, err)
			continue
		}

		page := parseLinkedInCards(doc)
		rc.Logger.Info().Str("query", query).Int("offset", start).Int("jobs", len(page)).Msg("parsed linkedin page")
		if len(page) == 0 {
			break
		}
		jobs = append(jobs, page...)
	}
	return jobs, nil
}

func linkedInSearchURL(query string, start int) string {
	params := url.Values{}
	params.Set("keywords", query)
	params.Set("location", "India")
	params.Set("geoId", linkedInGeoID)
	params.Set("f_TPR", "r604800")
	params.Set("start", strconv.Itoa(start))
	return linkedInSearch + "?" + params.Encode()
}

func parseLinkedInCards(doc *goquery.Document) []models.ScrapedJob {
	cards := doc.Find(".base-card, .job-search-card")
	if cards.Length() == 0 {
		cards = doc.Find("li")
	}

	var jobs []models.ScrapedJob
	cards.Each(func(_ int, card *goquery.Selection) {
		title := firstText(card, ".base-search-card__title, [class*='base-search-card__title']")
		link := firstAttr(card, "a.base-card__full-link, a[class*='base-card__full-link']", "href")
		if link == "" {
			link = firstAttr(card, "a[href*='linkedin.com/jobs']", "href")
		}
		if title == "" || link == "" {
			return
		}

		company := firstText(card, ".base-search-card__subtitle, [class*='base-search-card__subtitle']")
		if company == "" {
			company = "Unknown"
		}
		location := firstText(card, ".job-search-card__location, [class*='job-search-card__location']")
		if location == "" {
			location = "India"
		}

		job := NewJob(models.SourceLinkedIn, title, company, absoluteURL(linkedInBase, stripQuery(link)))
		job.Location = location
		job.Salary = firstText(card, ".job-search-card__salary-info")
		job.PostedAt = postedAt(firstAttr(card, "time", "datetime"))
		jobs = append(jobs, job)
	})
	return jobs
}

// fetchDocument GETs an HTML page and treats any non-2xx status as an error.
func fetchDocument(ctx context.Context, rc *RunContext, target string, headers map[string]string) (*goquery.Document, error) {
	resp, err := rc.HTTP.Get(ctx, target, headers)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	doc, err := resp.Document()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", target, err)
	}
	return doc, nil
}
