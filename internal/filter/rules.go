// Package filter decides which scraped jobs are relevant and fills in the
// fields a source left blank.
package filter

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jimezsa/jobcrawl/internal/models"
)

// Rules holds the target lists used for matching. Matching is lowercase
// substring search throughout.
type Rules struct {
	locations []string
	keywords  []string
	skills    []string
	lowered   []string
}

func NewRules(locations, keywords, skills []string) *Rules {
	r := &Rules{
		locations: lowerAll(locations),
		keywords:  lowerAll(keywords),
	}
	for _, skill := range skills {
		if strings.TrimSpace(skill) == "" {
			continue
		}
		r.skills = append(r.skills, skill)
		r.lowered = append(r.lowered, strings.ToLower(skill))
	}
	return r
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func containsAny(text string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}

// MatchesLocation reports whether location names one of the target regions.
func (r *Rules) MatchesLocation(location string) bool {
	lower := strings.ToLower(strings.TrimSpace(location))
	if lower == "" {
		return false
	}
	return containsAny(lower, r.locations)
}

// MatchesDomain reports whether the title or description mentions any keyword.
func (r *Rules) MatchesDomain(title, description string) bool {
	return containsAny(combined(title, description), r.keywords)
}

// Relevant applies both the location and the domain filter.
func (r *Rules) Relevant(job models.ScrapedJob) bool {
	return r.MatchesLocation(job.Location) && r.MatchesDomain(job.Title, job.Description)
}

// ExtractTags returns the known skills mentioned in text, in list order and
// canonical casing.
func (r *Rules) ExtractTags(text string) []string {
	if text == "" {
		return nil
	}
	lower := strings.ToLower(text)
	seen := map[string]bool{}
	var tags []string
	for i, skill := range r.skills {
		if seen[skill] || !strings.Contains(lower, r.lowered[i]) {
			continue
		}
		seen[skill] = true
		tags = append(tags, skill)
	}
	return tags
}

// Enrich fills derived fields the source left empty. Fields already set are
// kept; description and salary are always normalized.
func (r *Rules) Enrich(job models.ScrapedJob, now time.Time) models.ScrapedJob {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if len(job.Tags) == 0 {
		job.Tags = r.ExtractTags(job.Title + " " + job.Description)
	}
	if job.ExperienceLevel == "" {
		job.ExperienceLevel = DetectExperienceLevel(job.Title, job.Description)
	}
	if job.JobType == "" {
		job.JobType = DetectJobType(job.Title, job.Description)
	}
	if job.ScrapedAt.IsZero() {
		job.ScrapedAt = now
	}
	job.Description = CleanDescription(job.Description)
	job.Salary = NormalizeSalary(job.Salary)
	if job.Tags == nil {
		job.Tags = []string{}
	}
	return job
}
