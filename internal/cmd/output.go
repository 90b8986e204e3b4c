package cmd

import (
	"encoding/json"
	"io"
	"net/url"

	"github.com/muesli/termenv"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// redact masks the password in a connection URL.
func redact(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "(unparsable)"
	}
	return u.Redacted()
}

func isTTY(out io.Writer) bool {
	return termenv.NewOutput(out).ColorProfile() != termenv.Ascii
}
