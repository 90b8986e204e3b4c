package models

import (
	"fmt"
	"strings"
	"time"
)

// Source identifies one job board or ATS integration.
type Source string

const (
	SourceLever      Source = "lever"
	SourceGreenhouse Source = "greenhouse"
	SourceAshby      Source = "ashby"
	SourceWellfound  Source = "wellfound"
	SourceNaukri     Source = "naukri"
	SourceLinkedIn   Source = "linkedin"
	SourceIndeed     Source = "indeed"
)

// AllSources returns every source in run order.
func AllSources() []Source {
	return []Source{
		SourceLever,
		SourceGreenhouse,
		SourceAshby,
		SourceWellfound,
		SourceNaukri,
		SourceLinkedIn,
		SourceIndeed,
	}
}

// ParseSource resolves a user-supplied source name.
func ParseSource(value string) (Source, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, source := range AllSources() {
		if string(source) == value {
			return source, nil
		}
	}
	return "", fmt.Errorf("unknown source: %q (available: %s)", value, strings.Join(SourceNames(), ", "))
}

func SourceNames() []string {
	sources := AllSources()
	names := make([]string, 0, len(sources))
	for _, source := range sources {
		names = append(names, string(source))
	}
	return names
}

type JobType string

const (
	JobTypeFullTime   JobType = "full-time"
	JobTypePartTime   JobType = "part-time"
	JobTypeContract   JobType = "contract"
	JobTypeInternship JobType = "internship"
	JobTypeFreelance  JobType = "freelance"
)

type ExperienceLevel string

const (
	ExperienceIntern    ExperienceLevel = "intern"
	ExperienceJunior    ExperienceLevel = "junior"
	ExperienceMid       ExperienceLevel = "mid"
	ExperienceSenior    ExperienceLevel = "senior"
	ExperienceLead      ExperienceLevel = "lead"
	ExperiencePrincipal ExperienceLevel = "principal"
	ExperienceStaff     ExperienceLevel = "staff"
)

// ScrapedJob is the normalized posting produced by every source.
// Empty Salary, JobType and ExperienceLevel mean unknown.
type ScrapedJob struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Company         string          `json:"company"`
	Location        string          `json:"location"`
	Description     string          `json:"description"`
	URL             string          `json:"url"`
	Salary          string          `json:"salary,omitempty"`
	Source          Source          `json:"source"`
	PostedAt        *time.Time      `json:"posted_at,omitempty"`
	ScrapedAt       time.Time       `json:"scraped_at"`
	Tags            []string        `json:"tags"`
	JobType         JobType         `json:"job_type,omitempty"`
	ExperienceLevel ExperienceLevel `json:"experience_level,omitempty"`
}
