package transport

import (
	"net/url"
	"strings"
)

// sensitiveParams are query keys whose values never reach a log line.
var sensitiveParams = map[string]bool{
	"apikey":  true,
	"api_key": true,
	"token":   true,
	"key":     true,
}

// sensitiveHeaders are header names whose values never reach a log line.
var sensitiveHeaders = map[string]bool{
	"authorization": true,
	"x-api-key":     true,
	"cookie":        true,
}

// Redact masks sensitive query parameter values in a URL so it can be
// logged. Unparseable URLs come back unchanged.
func Redact(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	query := parsed.Query()
	changed := false
	for key := range query {
		if sensitiveParams[strings.ToLower(key)] {
			query.Set(key, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return raw
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// RedactHeaders returns a copy of headers with sensitive values masked.
func RedactHeaders(headers map[string]string) map[string]string {
	if headers == nil {
		return nil
	}
	out := make(map[string]string, len(headers))
	for key, value := range headers {
		if sensitiveHeaders[strings.ToLower(key)] {
			out[key] = "REDACTED"
		} else {
			out[key] = value
		}
	}
	return out
}
