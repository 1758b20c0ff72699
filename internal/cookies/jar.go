package cookies

import (
	"net/url"
	"strings"
	"time"
)

// Cookie is one persisted entry. Zero Expires means a session cookie that
// lives as long as the jar row does.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  time.Time
	Secure   bool
	HTTPOnly bool
}

// Jar is a per-workspace cookie collection. The composer borrows it read-only;
// mutation goes through the Store.
type Jar struct {
	ID          string
	WorkspaceID string
	Cookies     []Cookie
}

// Lookup returns the value of the first non-expired cookie with the given
// name, feeding the {{cookie.<name>}} variable provider.
func (j *Jar) Lookup(name string) (string, bool) {
	if j == nil {
		return "", false
	}
	now := time.Now()
	for _, c := range j.Cookies {
		if !strings.EqualFold(c.Name, name) {
			continue
		}
		if c.expired(now) {
			continue
		}
		return c.Value, true
	}
	return "", false
}

// HeaderValue renders the Cookie header for a dial target, honoring domain,
// path, secure and expiry rules. Order follows the jar's stored order.
func (j *Jar) HeaderValue(target *url.URL) string {
	if j == nil || target == nil {
		return ""
	}
	now := time.Now()
	secure := target.Scheme == "wss" || target.Scheme == "https"
	var pairs []string
	for _, c := range j.Cookies {
		if c.expired(now) {
			continue
		}
		if c.Secure && !secure {
			continue
		}
		if !domainMatches(c.Domain, target.Hostname()) {
			continue
		}
		if !pathMatches(c.Path, target.Path) {
			continue
		}
		pairs = append(pairs, c.Name+"="+c.Value)
	}
	return strings.Join(pairs, "; ")
}

func (c Cookie) expired(now time.Time) bool {
	return !c.Expires.IsZero() && c.Expires.Before(now)
}

func domainMatches(cookieDomain, host string) bool {
	cookieDomain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(cookieDomain)), ".")
	host = strings.ToLower(host)
	if cookieDomain == "" {
		return true
	}
	if host == cookieDomain {
		return true
	}
	return strings.HasSuffix(host, "."+cookieDomain)
}

func pathMatches(cookiePath, requestPath string) bool {
	if cookiePath == "" || cookiePath == "/" {
		return true
	}
	if requestPath == "" {
		requestPath = "/"
	}
	if requestPath == cookiePath {
		return true
	}
	return strings.HasPrefix(requestPath, strings.TrimSuffix(cookiePath, "/")+"/")
}
