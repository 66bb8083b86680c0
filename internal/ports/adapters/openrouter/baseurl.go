package openrouter

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

const publicEndpoint = "https://openrouter.ai"

// ErrUnsafeBaseURL marks a translation endpoint the API key must not be sent to.
var ErrUnsafeBaseURL = errors.New("unsafe base url")

var publicHosts = []string{"openrouter.ai", "api.openrouter.ai"}

// endpoint returns raw without trailing slashes, or the public endpoint when
// raw is blank.
func endpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return publicEndpoint
	}
	return strings.TrimRight(raw, "/")
}

// ValidateBaseURL accepts only plain https endpoints whose host is listed in
// allowedHosts, or is an OpenRouter host when the list is empty.
func ValidateBaseURL(raw string, allowedHosts []string) error {
	u, err := url.Parse(endpoint(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsafeBaseURL, err)
	}
	var problem string
	switch host := strings.ToLower(u.Hostname()); {
	case !u.IsAbs() || host == "":
		problem = "needs an absolute URL with a host"
	case u.User != nil:
		problem = "must not embed credentials"
	case u.RawQuery != "" || u.Fragment != "":
		problem = "must not carry a query or fragment"
	case !strings.EqualFold(u.Scheme, "https"):
		problem = "must use https"
	default:
		if _, ok := allowedHostSet(allowedHosts)[host]; !ok {
			problem = fmt.Sprintf("host %q is not in translation.allowed_hosts", host)
		}
	}
	if problem == "" {
		return nil
	}
	return fmt.Errorf("%w: %s %s", ErrUnsafeBaseURL, u.Redacted(), problem)
}

// allowedHostSet reduces entries like "https://Gateway.local:8443/" to bare
// lower-case host names. Blank lists fall back to the OpenRouter hosts.
func allowedHostSet(entries []string) map[string]struct{} {
	set := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if h := bareHost(e); h != "" {
			set[h] = struct{}{}
		}
	}
	if len(set) == 0 {
		for _, h := range publicHosts {
			set[h] = struct{}{}
		}
	}
	return set
}

func bareHost(entry string) string {
	entry = strings.ToLower(strings.TrimSpace(entry))
	if strings.Contains(entry, "://") {
		u, err := url.Parse(entry)
		if err != nil {
			return ""
		}
		return u.Hostname()
	}
	entry, _, _ = strings.Cut(entry, "/")
	if h, _, err := net.SplitHostPort(entry); err == nil {
		return h
	}
	return entry
}
