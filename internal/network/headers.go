package network

import (
	"math/rand"
	"strings"
)

var userAgents = []string{
	// Chrome, Windows
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36",
	// Chrome, macOS
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36",
	// Chrome, Linux
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	// Firefox
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:132.0) Gecko/20100101 Firefox/132.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:131.0) Gecko/20100101 Firefox/131.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:132.0) Gecko/20100101 Firefox/132.0",
	"Mozilla/5.0 (X11; Linux x86_64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:132.0) Gecko/20100101 Firefox/132.0",
	// Safari
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.2 Safari/605.1.15",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.1 Safari/605.1.15",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Safari/605.1.15",
	// Edge
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36 Edg/130.0.0.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0",
	// Mobile
	"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Mobile Safari/537.36",
	"Mozilla/5.0 (Linux; Android 14; SM-S928B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Mobile Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 18_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.2 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 18_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.1 Mobile/15E148 Safari/604.1",
}

var acceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.9",
	"en-US,en;q=0.9,hi;q=0.8",
	"en-IN,en;q=0.9,hi;q=0.8",
	"en-US,en;q=0.8",
	"en;q=0.9",
	"en-US,en;q=0.9,en-GB;q=0.8",
}

var referers = []string{
	"https://www.google.com/",
	"https://www.google.co.in/",
	"https://www.bing.com/",
	"https://duckduckgo.com/",
	"https://search.yahoo.com/",
	"",
}

var secCHUAValues = []string{
	`"Chromium";v="131", "Not_A Brand";v="24", "Google Chrome";v="131"`,
	`"Chromium";v="130", "Not_A Brand";v="24", "Google Chrome";v="130"`,
	`"Chromium";v="129", "Not_A Brand";v="24", "Google Chrome";v="129"`,
	`"Not_A Brand";v="8", "Chromium";v="131", "Microsoft Edge";v="131"`,
}

const (
	acceptFirefox = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"
	acceptChrome  = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7"
)

func pick(values []string) string {
	return values[rand.Intn(len(values))]
}

// GenerateStealthHeaders returns a browser-consistent header set for one user agent.
// Entries in extra override generated ones.
func GenerateStealthHeaders(extra map[string]string) map[string]string {
	ua := pick(userAgents)
	referer := pick(referers)
	isFirefox := strings.Contains(ua, "Firefox")
	isEdge := strings.Contains(ua, "Edg")
	isChrome := strings.Contains(ua, "Chrome") && !isEdge

	headers := map[string]string{
		"User-Agent":      ua,
		"Accept":          acceptChrome,
		"Accept-Language": pick(acceptLanguages),
		"Accept-Encoding": "gzip, deflate, br",
		"Connection":      "keep-alive",
	}
	if isFirefox {
		headers["Accept"] = acceptFirefox
	}
	if referer != "" {
		headers["Referer"] = referer
	}

	if isChrome || isEdge {
		headers["Cache-Control"] = "max-age=0"
		headers["Sec-Fetch-Dest"] = "document"
		headers["Sec-Fetch-Mode"] = "navigate"
		headers["Sec-Fetch-Site"] = "none"
		if referer != "" {
			headers["Sec-Fetch-Site"] = "cross-site"
		}
		headers["Sec-CH-UA"] = pick(secCHUAValues)
		headers["Sec-CH-UA-Mobile"] = "?0"
		if strings.Contains(ua, "Mobile") {
			headers["Sec-CH-UA-Mobile"] = "?1"
		}
		headers["Sec-CH-UA-Platform"] = platform(ua)
	}

	for key, value := range extra {
		setHeader(headers, key, value)
	}
	return headers
}

// GenerateAPIHeaders returns the reduced header set used for JSON endpoints.
func GenerateAPIHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      pick(userAgents),
		"Accept":          "application/json",
		"Accept-Language": pick(acceptLanguages),
		"Accept-Encoding": "gzip, deflate, br",
		"Connection":      "keep-alive",
	}
}

func platform(ua string) string {
	switch {
	case strings.Contains(ua, "Windows"):
		return `"Windows"`
	case strings.Contains(ua, "Macintosh"):
		return `"macOS"`
	case strings.Contains(ua, "Linux"):
		return `"Linux"`
	default:
		return `"Unknown"`
	}
}

// MergeHeaders layers override on top of base; keys compare case-insensitively.
func MergeHeaders(base, override map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(override))
	for key, value := range base {
		out[key] = value
	}
	for key, value := range override {
		setHeader(out, key, value)
	}
	return out
}

func setHeader(headers map[string]string, key, value string) {
	for existing := range headers {
		if existing != key && strings.EqualFold(existing, key) {
			delete(headers, existing)
		}
	}
	headers[key] = value
}
