package vars

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/wsterm/internal/errdef"
)

type Provider interface {
	Resolve(name string) (string, bool)
	Label() string
}

type Resolver struct {
	providers []Provider
}

func NewResolver(providers ...Provider) *Resolver {
	return &Resolver{providers: providers}
}

// First tries direct lookup across all providers.
// If that fails and the name has a dot, tries to match a provider prefix -
// so "cookie.session_id" looks for a provider labeled "cookie" then asks for "session_id".
func (r *Resolver) Resolve(name string) (string, bool) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", false
	}
	for _, provider := range r.providers {
		if value, ok := provider.Resolve(trimmed); ok {
			return value, true
		}
	}
	if !strings.Contains(trimmed, ".") {
		return "", false
	}
	lowered := strings.ToLower(trimmed)
	for _, provider := range r.providers {
		label := strings.ToLower(strings.TrimSpace(provider.Label()))
		if label == "" {
			continue
		}
		if !strings.HasPrefix(lowered, label+".") {
			continue
		}
		subject := strings.TrimSpace(trimmed[len(label)+1:])
		if subject == "" {
			continue
		}
		if value, ok := provider.Resolve(subject); ok {
			return value, true
		}
	}
	return "", false
}

var templateVarPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// ExpandTemplates replaces every {{name}} expression in input. The first
// unresolved name aborts with an interpolation error; the partially expanded
// result is still returned for diagnostics but must not be dispatched.
func (r *Resolver) ExpandTemplates(input string) (string, error) {
	var firstErr error
	result := templateVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		sub := templateVarPattern.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		name := strings.TrimSpace(sub[1])
		if name == "" {
			if firstErr == nil {
				firstErr = errdef.New(errdef.CodeVars, "empty template expression")
			}
			return match
		}
		if strings.HasPrefix(name, "$") {
			if value, ok := r.Resolve(name); ok {
				return value
			}
			if dynamic, ok := resolveDynamic(name); ok {
				return dynamic
			}
		}
		if value, ok := r.Resolve(name); ok {
			return value
		}
		if firstErr == nil {
			firstErr = errdef.New(errdef.CodeVars, "undefined variable: %s", name)
		}
		return match
	})
	return result, firstErr
}

// HasTemplates reports whether input contains any {{...}} expression.
func HasTemplates(input string) bool {
	return templateVarPattern.MatchString(input)
}

func resolveDynamic(name string) (string, bool) {
	switch strings.ToLower(name) {
	case "$timestamp":
		return fmt.Sprintf("%d", time.Now().Unix()), true
	case "$timestampiso8601":
		return time.Now().UTC().Format(time.RFC3339), true
	case "$randomint":
		n, _ := rand.Int(rand.Reader, big.NewInt(1<<62))
		return n.String(), true
	case "$uuid", "$guid":
		return uuid.NewString(), true
	default:
		return "", false
	}
}

type MapProvider struct {
	values map[string]string
	label  string
}

// Keys get lowercased so lookups are case-insensitive
func NewMapProvider(label string, values map[string]string) Provider {
	normalized := make(map[string]string, len(values))
	for k, v := range values {
		normalized[strings.ToLower(k)] = v
	}
	return &MapProvider{values: normalized, label: label}
}

func (p *MapProvider) Resolve(name string) (string, bool) {
	value, ok := p.values[strings.ToLower(name)]
	return value, ok
}

func (p *MapProvider) Label() string {
	return p.label
}

type EnvProvider struct{}

func (EnvProvider) Resolve(name string) (string, bool) {
	if value, ok := os.LookupEnv(name); ok {
		return value, true
	}
	return os.LookupEnv(strings.ToUpper(name))
}

func (EnvProvider) Label() string {
	return "env"
}

// FuncProvider adapts a lookup function, used for cookie-jar backed variables.
type FuncProvider struct {
	Name   string
	Lookup func(name string) (string, bool)
}

func (p *FuncProvider) Resolve(name string) (string, bool) {
	if p == nil || p.Lookup == nil {
		return "", false
	}
	return p.Lookup(name)
}

func (p *FuncProvider) Label() string {
	if p == nil {
		return ""
	}
	return p.Name
}
