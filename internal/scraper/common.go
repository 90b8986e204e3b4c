package scraper

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jimezsa/jobcrawl/internal/models"
)

func cleanText(value string) string {
	value = html.UnescapeString(value)
	return strings.Join(strings.Fields(value), " ")
}

func absoluteURL(base string, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

// stripQuery drops tracking parameters and fragments.
func stripQuery(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(raw)
}

func parsePostedAt(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	layouts := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02",
		"2006-01-02T15:04:05-0700",
		"2006-01-02T15:04:05.000Z",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time format: %s", value)
}

func postedAt(value string) *time.Time {
	ts, err := parsePostedAt(value)
	if err != nil {
		return nil
	}
	ts = ts.UTC()
	return &ts
}

func fromMillis(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	ts := time.UnixMilli(ms).UTC()
	return &ts
}

// timeValue accepts epoch milliseconds, epoch seconds or a date string.
func timeValue(value any) *time.Time {
	switch v := value.(type) {
	case float64:
		if v > 1e12 {
			return fromMillis(int64(v))
		}
		return fromMillis(int64(v * 1000))
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return timeValue(float64(n))
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return timeValue(float64(n))
		}
		return postedAt(v)
	}
	return nil
}

var relativeAge = regexp.MustCompile(`(\d+)\+?\s*(day|hour|week|month)s?\s+ago`)

// relativeTime reads labels such as "3 Days Ago", "Just Now" or "Today".
func relativeTime(label string, now time.Time) *time.Time {
	lower := strings.ToLower(strings.TrimSpace(label))
	if lower == "" {
		return nil
	}
	if strings.Contains(lower, "just now") || strings.Contains(lower, "today") || strings.Contains(lower, "few hours") {
		ts := now.UTC()
		return &ts
	}
	match := relativeAge.FindStringSubmatch(lower)
	if match == nil {
		return nil
	}
	n, _ := strconv.Atoi(match[1])
	var ts time.Time
	switch match[2] {
	case "hour":
		ts = now.Add(-time.Duration(n) * time.Hour)
	case "day":
		ts = now.AddDate(0, 0, -n)
	case "week":
		ts = now.AddDate(0, 0, -7*n)
	case "month":
		ts = now.AddDate(0, -n, 0)
	}
	ts = ts.UTC()
	return &ts
}

func stringValue(values ...any) string {
	for _, value := range values {
		switch v := value.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		case float64:
			if v == math.Trunc(v) {
				return strconv.FormatInt(int64(v), 10)
			}
			return strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			return v.String()
		case map[string]any:
			if name := stringValue(v["name"], v["text"]); name != "" {
				return name
			}
		}
	}
	return ""
}

func mapValue(value any, key string) any {
	m, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	return m[key]
}

func stringList(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s := stringValue(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// walk visits every object in a decoded JSON tree depth-first. When visit
// returns true the object is consumed and its children are skipped.
func walk(node any, visit func(map[string]any) bool) {
	switch v := node.(type) {
	case map[string]any:
		if visit(v) {
			return
		}
		for _, child := range v {
			walk(child, visit)
		}
	case []any:
		for _, child := range v {
			walk(child, visit)
		}
	}
}

func decodeEmbeddedJSON(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "<!--")
	raw = strings.TrimSuffix(raw, "-->")
	raw = strings.TrimSpace(raw)
	raw = strings.ReplaceAll(raw, "\u2028", "")
	raw = strings.ReplaceAll(raw, "\u2029", "")

	var data any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, err
	}
	return data, nil
}

// scriptJSON decodes every script matching selector that holds valid JSON.
func scriptJSON(doc *goquery.Document, selector string) []any {
	var out []any
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		data, err := decodeEmbeddedJSON(s.Text())
		if err != nil {
			return
		}
		out = append(out, data)
	})
	return out
}

// assignedJSON decodes the object literal assigned after marker in a page,
// e.g. `window._initialData = {...};`.
func assignedJSON(page, marker string) (any, bool) {
	idx := strings.Index(page, marker)
	if idx < 0 {
		return nil, false
	}
	rest := page[idx+len(marker):]
	eq := strings.Index(rest, "=")
	if eq < 0 {
		return nil, false
	}
	rest = strings.TrimLeft(rest[eq+1:], " \t\r\n")
	if !strings.HasPrefix(rest, "{") {
		return nil, false
	}

	var data any
	if err := json.NewDecoder(strings.NewReader(rest)).Decode(&data); err != nil {
		return nil, false
	}
	return data, true
}

func firstText(s *goquery.Selection, selector string) string {
	return cleanText(s.Find(selector).First().Text())
}

func firstAttr(s *goquery.Selection, selector, attr string) string {
	value, _ := s.Find(selector).First().Attr(attr)
	return strings.TrimSpace(value)
}

// jobTypeFrom maps source employment labels; unknown labels yield "".
func jobTypeFrom(label string) models.JobType {
	lower := strings.ToLower(label)
	switch {
	case lower == "":
		return ""
	case strings.Contains(lower, "intern"):
		return models.JobTypeInternship
	case strings.Contains(lower, "freelance"):
		return models.JobTypeFreelance
	case strings.Contains(lower, "contract"), strings.Contains(lower, "temporary"):
		return models.JobTypeContract
	case strings.Contains(lower, "part"):
		return models.JobTypePartTime
	case strings.Contains(lower, "full"), strings.Contains(lower, "permanent"):
		return models.JobTypeFullTime
	}
	return ""
}

// jobSet deduplicates jobs by URL across queries within one run.
type jobSet struct {
	seen map[string]struct{}
	jobs []models.ScrapedJob
}

func newJobSet() *jobSet {
	return &jobSet{seen: map[string]struct{}{}}
}

func (s *jobSet) add(jobs ...models.ScrapedJob) int {
	added := 0
	for _, job := range jobs {
		key := strings.TrimSpace(job.URL)
		if key == "" {
			continue
		}
		if _, ok := s.seen[key]; ok {
			continue
		}
		s.seen[key] = struct{}{}
		s.jobs = append(s.jobs, job)
		added++
	}
	return added
}

func (s *jobSet) list() []models.ScrapedJob {
	if s.jobs == nil {
		return []models.ScrapedJob{}
	}
	return s.jobs
}

func thousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
