package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/jobcrawl/internal/models"
	"github.com/jimezsa/jobcrawl/internal/network"
)

const (
	naukriBase = "https://www.naukri.com"
	naukriAPI  = naukriBase + "/jobapi/v3/search"
)

var whitespace = regexp.MustCompile(`\s+`)

type Naukri struct {
	now func() time.Time
}

type naukriPlaceholder struct {
	Type  string `json:"type"`
	Label string `json:"label"`
}

type naukriJob struct {
	Title                  string              `json:"title"`
	CompanyName            string              `json:"companyName"`
	Placeholders           []naukriPlaceholder `json:"placeholders"`
	JDURL                  string              `json:"jdURL"`
	JobDescription         string              `json:"jobDescription"`
	TagsAndSkills          string              `json:"tagsAndSkills"`
	FooterPlaceholderLabel string              `json:"footerPlaceholderLabel"`
	CreatedDate            any                 `json:"createdDate"`
	Salary                 string              `json:"salary"`
	AmbitionBoxData        *struct {
		CompanyName string `json:"CompanyName"`
	} `json:"ambitionBoxData"`
}

type naukriResponse struct {
	JobDetails []naukriJob `json:"jobDetails"`
	NoOfJobs   int         `json:"noOfJobs"`
}

func (n *Naukri) Source() models.Source {
	return models.SourceNaukri
}

func (n *Naukri) FetchJobs(ctx context.Context, rc *RunContext) ([]models.ScrapedJob, error) {
	set := newJobSet()
	for i, query := range rc.Targets.NaukriQueries {
		if i > 0 {
			if err := rc.Pause(ctx, 2*time.Second, 4500*time.Millisecond); err != nil {
				break
			}
		}

		jobs, err := n.fetchAPI(ctx, rc, query)
		if err == nil {
			set.add(jobs...)
			continue
		}
		if rc.Halted(err) {
			break
		}
		rc.Logger.Warn().Err(err).Str("query", query).Msg("naukri api failed, falling back to html")

		if err := rc.Pause(ctx, 3*time.Second, 6*time.Second); err != nil {
			break
		}
		target := naukriHTMLURL(query)
		jobs, err = n.fetchHTML(ctx, rc, target)
		if err != nil {
			if rc.Halted(err) {
				break
			}
			rc.Fail(fmt.Sprintf("naukri search %q", query), target, err)
			continue
		}
		set.add(jobs...)
	}
	return set.list(), nil
}

func (n *Naukri) fetchAPI(ctx context.Context, rc *RunContext, query string) ([]models.ScrapedJob, error) {
	slug := url.PathEscape(whitespace.ReplaceAllString(query, "-"))
	params := url.Values{}
	params.Set("noOfResults", "20")
	params.Set("urlType", "search_by_keyword")
	params.Set("searchType", "adv")
	params.Set("keyword", query)
	params.Set("k", query)
	params.Set("pageNo", "1")
	params.Set("jobAge", "7")
	params.Set("location", "india")
	params.Set("seoKey", slug)
	params.Set("src", "jobsearchDesk")

	headers := network.GenerateStealthHeaders(map[string]string{
		"Referer":  naukriBase + "/" + slug + "-jobs",
		"appid":    "109",
		"systemid": "Jeeves",
		"gid":      "LOCATION,INDUSTRY,EDUCATION,FAREA_ROLE",
	})
	resp, err := rc.HTTP.Get(ctx, naukriAPI+"?"+params.Encode(), headers)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	var body naukriResponse
	if err := resp.JSON(&body); err != nil {
		return nil, err
	}
	rc.Logger.Info().Str("query", query).Int("jobs", len(body.JobDetails)).Msg("naukri api returned jobs")
	return n.mapJobs(body.JobDetails), nil
}

func (n *Naukri) fetchHTML(ctx context.Context, rc *RunContext, target string) ([]models.ScrapedJob, error) {
	rc.Logger.Info().Str("url", target).Msg("fetching naukri html")
	doc, err := fetchDocument(ctx, rc, target, network.GenerateStealthHeaders(map[string]string{"Referer": naukriBase + "/"}))
	if err != nil {
		return nil, err
	}
	jobs := append(parseNaukriCards(doc), n.mapJobs(naukriEmbeddedJobs(doc))...)
	rc.Logger.Info().Str("url", target).Int("jobs", len(jobs)).Msg("parsed naukri html")
	return jobs, nil
}

func naukriHTMLURL(query string) string {
	slug := strings.ToLower(whitespace.ReplaceAllString(strings.TrimSpace(query), "-"))
	return naukriBase + "/" + url.PathEscape(slug) + "-jobs"
}

func (n *Naukri) mapJobs(details []naukriJob) []models.ScrapedJob {
	now := time.Now
	if n.now != nil {
		now = n.now
	}
	var jobs []models.ScrapedJob
	for _, detail := range details {
		if job, ok := mapNaukriJob(detail, now()); ok {
			jobs = append(jobs, job)
		}
	}
	return jobs
}

func mapNaukriJob(data naukriJob, now time.Time) (models.ScrapedJob, bool) {
	if strings.TrimSpace(data.Title) == "" || strings.TrimSpace(data.JDURL) == "" {
		return models.ScrapedJob{}, false
	}

	company := data.CompanyName
	if company == "" && data.AmbitionBoxData != nil {
		company = data.AmbitionBoxData.CompanyName
	}
	if company == "" {
		company = "Unknown"
	}

	job := NewJob(models.SourceNaukri, strings.TrimSpace(data.Title), strings.TrimSpace(company), absoluteURL(naukriBase, data.JDURL))
	job.Location = placeholder(data.Placeholders, "location")
	job.Description = withExperience(data.JobDescription, placeholder(data.Placeholders, "experience"))
	job.Salary = data.Salary
	if job.Salary == "" {
		job.Salary = placeholder(data.Placeholders, "salary")
	}
	job.PostedAt = timeValue(data.CreatedDate)
	if job.PostedAt == nil {
		job.PostedAt = relativeTime(data.FooterPlaceholderLabel, now)
	}
	job.Tags = splitSkills(data.TagsAndSkills)
	return job, true
}

func placeholder(items []naukriPlaceholder, kind string) string {
	var labels []string
	for _, item := range items {
		if item.Type == kind && strings.TrimSpace(item.Label) != "" {
			labels = append(labels, strings.TrimSpace(item.Label))
		}
	}
	return strings.Join(labels, ", ")
}

func withExperience(description, experience string) string {
	if experience == "" {
		return description
	}
	return description + "\n\nExperience: " + experience
}

func splitSkills(raw string) []string {
	skills := []string{}
	for _, skill := range strings.Split(raw, ",") {
		if skill = strings.TrimSpace(skill); skill != "" {
			skills = append(skills, skill)
		}
	}
	return skills
}

func parseNaukriCards(doc *goquery.Document) []models.ScrapedJob {
	var jobs []models.ScrapedJob
	doc.Find(".srp-jobtuple-wrapper, article.jobTuple, .jobTuple").Each(func(_ int, card *goquery.Selection) {
		title := firstText(card, ".title, .desig, a.title")
		link := firstAttr(card, "a.title, a[class*='title']", "href")
		if title == "" || link == "" {
			return
		}
		company := firstText(card, ".comp-name, .companyInfo .subTitle, a.subTitle")
		if company == "" {
			company = "Unknown"
		}

		job := NewJob(models.SourceNaukri, title, company, absoluteURL(naukriBase, link))
		job.Location = firstText(card, ".loc, .locWdth, [class*='location']")
		job.Salary = firstText(card, ".sal, [class*='salary']")
		job.Description = withExperience(firstText(card, ".job-desc, .ellipsis, [class*='description']"), firstText(card, ".exp, .expwdth, [class*='experience']"))
		card.Find(".tags-gt li, .tag-li").Each(func(_ int, tag *goquery.Selection) {
			if skill := cleanText(tag.Text()); skill != "" {
				job.Tags = append(job.Tags, skill)
			}
		})
		jobs = append(jobs, job)
	})
	return jobs
}

// naukriEmbeddedJobs collects jobDetails arrays from the page's JSON state.
func naukriEmbeddedJobs(doc *goquery.Document) []naukriJob {
	var details []naukriJob
	for _, data := range scriptJSON(doc, "script#__NEXT_DATA__, script[type='application/json']") {
		walk(data, func(node map[string]any) bool {
			list, ok := node["jobDetails"].([]any)
			if !ok {
				return false
			}
			raw, err := json.Marshal(list)
			if err != nil {
				return true
			}
			var batch []naukriJob
			if err := json.Unmarshal(raw, &batch); err == nil {
				details = append(details, batch...)
			}
			return true
		})
	}
	return details
}
