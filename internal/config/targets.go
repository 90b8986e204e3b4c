package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Company struct {
	Slug string `yaml:"slug"`
	Name string `yaml:"name"`
}

// Targets lists what to crawl and what counts as relevant.
type Targets struct {
	Lever            []Company `yaml:"lever"`
	Greenhouse       []Company `yaml:"greenhouse"`
	Ashby            []Company `yaml:"ashby"`
	NaukriQueries    []string  `yaml:"naukri_queries"`
	SearchQueries    []string  `yaml:"search_queries"`
	WellfoundRoles   []string  `yaml:"wellfound_roles"`
	WellfoundQueries []string  `yaml:"wellfound_queries"`
	Keywords         []string  `yaml:"keywords"`
	Locations        []string  `yaml:"locations"`
	Skills           []string  `yaml:"skills"`
}

// LoadTargets reads a targets file over the built-in defaults. A missing file yields the defaults.
func LoadTargets(path string) (Targets, error) {
	targets := DefaultTargets()
	if strings.TrimSpace(path) == "" {
		var err error
		if path, err = configFile(TargetsFileName); err != nil {
			return targets, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return targets, nil
		}
		return targets, err
	}

	var override Targets
	if err := yaml.Unmarshal(data, &override); err != nil {
		return targets, fmt.Errorf("targets %s: %w", filepath.Base(path), err)
	}
	targets.merge(override)
	return targets, nil
}

func (t *Targets) merge(o Targets) {
	if len(o.Lever) > 0 {
		t.Lever = o.Lever
	}
	if len(o.Greenhouse) > 0 {
		t.Greenhouse = o.Greenhouse
	}
	if len(o.Ashby) > 0 {
		t.Ashby = o.Ashby
	}
	if len(o.NaukriQueries) > 0 {
		t.NaukriQueries = o.NaukriQueries
	}
	if len(o.SearchQueries) > 0 {
		t.SearchQueries = o.SearchQueries
	}
	if len(o.WellfoundRoles) > 0 {
		t.WellfoundRoles = o.WellfoundRoles
	}
	if len(o.WellfoundQueries) > 0 {
		t.WellfoundQueries = o.WellfoundQueries
	}
	if len(o.Keywords) > 0 {
		t.Keywords = o.Keywords
	}
	if len(o.Locations) > 0 {
		t.Locations = o.Locations
	}
	if len(o.Skills) > 0 {
		t.Skills = o.Skills
	}
}

func companies(pairs ...string) []Company {
	out := make([]Company, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Company{Slug: pairs[i], Name: pairs[i+1]})
	}
	return out
}

func DefaultTargets() Targets {
	return Targets{
		Lever: companies(
			"stripe", "Stripe",
			"figma", "Figma",
			"notion", "Notion",
			"netlify", "Netlify",
			"vercel", "Vercel",
			"postman", "Postman",
			"razorpay", "Razorpay",
			"gojek", "Gojek",
			"cred", "CRED",
			"meesho", "Meesho",
			"coinbase", "Coinbase",
			"discord", "Discord",
			"reddit", "Reddit",
			"lucidchart", "Lucid",
			"nerdwallet", "NerdWallet",
			"benchling", "Benchling",
			"faire", "Faire",
			"ramp", "Ramp",
			"brex", "Brex",
			"plaid", "Plaid",
			"airtable", "Airtable",
			"webflow", "Webflow",
			"linear", "Linear",
			"loom", "Loom",
			"miro", "Miro",
		),
		Greenhouse: companies(
			"airbnb", "Airbnb",
			"spotify", "Spotify",
			"datadog", "Datadog",
			"twilio", "Twilio",
			"hashicorp", "HashiCorp",
			"elastic", "Elastic",
			"cloudflare", "Cloudflare",
			"mongodb", "MongoDB",
			"confluent", "Confluent",
			"cockroachlabs", "Cockroach Labs",
			"grafana", "Grafana Labs",
			"snyk", "Snyk",
			"sentry", "Sentry",
			"gitlab", "GitLab",
			"canva", "Canva",
			"freshworks", "Freshworks",
			"browserstack", "BrowserStack",
			"chargebee", "Chargebee",
			"hasura", "Hasura",
			"zomato", "Zomato",
			"swiggy", "Swiggy",
			"phonepe", "PhonePe",
			"curefit", "Curefit",
			"unacademy", "Unacademy",
			"groww", "Groww",
		),
		Ashby: companies(
			"linear", "Linear",
			"ramp", "Ramp",
			"notion", "Notion",
			"vercel", "Vercel",
			"resend", "Resend",
			"cal", "Cal.com",
			"dub", "Dub",
			"raycast", "Raycast",
			"supabase", "Supabase",
			"planetscale", "PlanetScale",
		),
		NaukriQueries: []string{
			"react developer",
			"frontend developer",
			"front end engineer",
			"next.js developer",
			"vue developer",
			"angular developer",
			"ui developer",
			"ui engineer",
			"javascript developer",
			"typescript developer",
			"web developer frontend",
		},
		SearchQueries: []string{
			"frontend developer india",
			"react developer india",
			"front end engineer india",
			"ui engineer india",
			"next.js developer india",
			"vue developer india",
			"angular developer india",
			"typescript developer india",
			"javascript developer india",
			"web developer frontend india",
		},
		WellfoundRoles: []string{
			"frontend-developer",
			"frontend-engineer",
			"react-developer",
			"ui-engineer",
			"javascript-developer",
		},
		WellfoundQueries: []string{
			"frontend developer india",
			"react developer india",
		},
		Keywords: []string{
			"react", "react.js", "reactjs", "next.js", "nextjs",
			"vue", "vue.js", "vuejs", "nuxt", "angular",
			"svelte", "sveltekit", "typescript", "javascript", "frontend",
			"front-end", "front end", "ui engineer", "ui developer", "ui/ux",
			"web developer", "web engineer", "html", "css", "tailwind",
			"sass", "webpack", "vite", "remix", "gatsby",
			"storybook", "design system", "component library", "accessibility", "a11y",
			"responsive", "progressive web", "pwa", "single page", "spa",
			"redux", "zustand", "mobx", "graphql", "apollo",
			"relay",
		},
		Locations: []string{
			"india", "bangalore", "bengaluru", "mumbai", "delhi",
			"new delhi", "ncr", "gurgaon", "gurugram", "noida",
			"hyderabad", "pune", "chennai", "kolkata", "ahmedabad",
			"jaipur", "thiruvananthapuram", "kochi", "coimbatore", "indore",
			"remote", "remote - india", "india remote", "apac", "asia pacific",
		},
		Skills: []string{
			"React", "Next.js", "Vue", "Angular", "Svelte",
			"TypeScript", "JavaScript", "HTML", "CSS", "Tailwind",
			"SASS", "LESS", "Webpack", "Vite", "Rollup",
			"Babel", "ESLint", "Jest", "Cypress", "Playwright",
			"Testing Library", "Storybook", "Figma", "Redux", "Zustand",
			"MobX", "GraphQL", "REST", "Apollo", "Relay",
			"Node.js", "Express", "Prisma", "PostgreSQL", "MongoDB",
			"Firebase", "Supabase", "AWS", "GCP", "Azure",
			"Docker", "Kubernetes", "CI/CD", "Git", "Agile",
			"Scrum", "Accessibility", "Performance", "SEO", "PWA",
			"WebSocket", "Three.js", "D3.js", "Framer Motion", "GSAP",
			"Remix", "Gatsby", "Astro", "Turborepo", "Monorepo",
			"Micro-frontend", "Design System", "Responsive Design", "Mobile-first", "Cross-browser",
			"Web Components", "Shadow DOM", "Service Worker", "IndexedDB", "WebAssembly",
		},
	}
}
