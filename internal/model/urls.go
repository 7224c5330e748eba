package model

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultBaseURL is the public WebBook host
const DefaultBaseURL = "https://webbook.nist.gov"

// RootURLByName renders the root page URL for a substance name
func RootURLByName(baseURL, name string) string {
	name = url.QueryEscape(strings.Join(strings.Fields(name), " "))
	return fmt.Sprintf("%s/cgi/cbook.cgi?Name=%s&Units=SI", strings.TrimRight(baseURL, "/"), name)
}

// RootURLByCAS renders the root page URL for a CAS number (dashes allowed)
func RootURLByCAS(baseURL, cas string) string {
	cas = strings.ReplaceAll(strings.TrimSpace(cas), "-", "")
	return fmt.Sprintf("%s/cgi/cbook.cgi?ID=C%s&Units=SI", strings.TrimRight(baseURL, "/"), cas)
}

// RootURL turns an identifier into a root page URL.
// Full URLs pass through, digits (with optional dashes) are treated as CAS numbers,
// anything else as a substance name.
func RootURL(baseURL, identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if strings.HasPrefix(identifier, "http://") || strings.HasPrefix(identifier, "https://") {
		return identifier
	}
	if isCAS(identifier) {
		return RootURLByCAS(baseURL, identifier)
	}
	return RootURLByName(baseURL, identifier)
}

func isCAS(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '-':
		default:
			return false
		}
	}
	return digits > 0
}
