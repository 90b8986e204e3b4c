package filter

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jimezsa/jobcrawl/internal/models"
)

type levelRule struct {
	pattern *regexp.Regexp
	level   models.ExperienceLevel
}

// Order matters: the first matching rule wins.
var levelRules = []levelRule{
	{regexp.MustCompile(`\b(intern|internship)\b`), models.ExperienceIntern},
	{regexp.MustCompile(`\b(principal|distinguished|fellow)\b`), models.ExperiencePrincipal},
	{regexp.MustCompile(`\b(staff)\b`), models.ExperienceStaff},
	{regexp.MustCompile(`\b(lead|tech lead|team lead|engineering lead)\b`), models.ExperienceLead},
	{regexp.MustCompile(`\b(senior|sr\.?|iii|level 3|l3)\b`), models.ExperienceSenior},
	{regexp.MustCompile(`\b(junior|jr\.?|entry[- ]level|associate|i\b|level 1|l1)\b`), models.ExperienceJunior},
	{regexp.MustCompile(`\b(mid[- ]?level|intermediate|ii\b|level 2|l2)\b`), models.ExperienceMid},
}

var yearsPattern = regexp.MustCompile(`(\d+)\+?\s*(?:years?|yrs?)\s*(?:of)?\s*(?:experience|exp)`)

type typeRule struct {
	pattern *regexp.Regexp
	jobType models.JobType
}

var typeRules = []typeRule{
	{regexp.MustCompile(`\b(intern|internship)\b`), models.JobTypeInternship},
	{regexp.MustCompile(`\b(contract|contractor|freelance|consulting)\b`), models.JobTypeContract},
	{regexp.MustCompile(`\b(part[- ]?time)\b`), models.JobTypePartTime},
	{regexp.MustCompile(`\b(full[- ]?time|permanent|fte)\b`), models.JobTypeFullTime},
}

func combined(title, description string) string {
	return strings.ToLower(title + " " + description)
}

// DetectExperienceLevel returns "" when nothing in the text indicates seniority.
func DetectExperienceLevel(title, description string) models.ExperienceLevel {
	text := combined(title, description)
	for _, rule := range levelRules {
		if rule.pattern.MatchString(text) {
			return rule.level
		}
	}

	match := yearsPattern.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	years, err := strconv.Atoi(match[1])
	if err != nil {
		return ""
	}
	switch {
	case years <= 1:
		return models.ExperienceJunior
	case years <= 3:
		return models.ExperienceMid
	case years <= 6:
		return models.ExperienceSenior
	case years <= 10:
		return models.ExperienceLead
	default:
		return models.ExperiencePrincipal
	}
}

// DetectJobType falls back to full-time when the text names no type.
func DetectJobType(title, description string) models.JobType {
	text := combined(title, description)
	for _, rule := range typeRules {
		if rule.pattern.MatchString(text) {
			return rule.jobType
		}
	}
	return models.JobTypeFullTime
}

var (
	horizontalSpace = regexp.MustCompile(`[^\S\n]+`)
	spaceAroundLF   = regexp.MustCompile(` ?\n ?`)
	extraNewlines   = regexp.MustCompile(`\n{3,}`)
)

// CleanDescription collapses whitespace runs while keeping paragraph breaks.
func CleanDescription(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = horizontalSpace.ReplaceAllString(text, " ")
	text = spaceAroundLF.ReplaceAllString(text, "\n")
	text = extraNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// NormalizeSalary trims the salary; blank means no salary.
func NormalizeSalary(salary string) string {
	return strings.TrimSpace(salary)
}
