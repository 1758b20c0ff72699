package bindings

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// modifierOrder fixes the canonical spelling of combined keys so "shift+ctrl+s"
// and "ctrl+shift+s" land on the same map entry.
var modifierOrder = []string{"ctrl", "alt", "shift", "cmd"}

var modifierAliases = map[string]string{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"alt":     "alt",
	"option":  "alt",
	"shift":   "shift",
	"cmd":     "cmd",
	"command": "cmd",
	"meta":    "cmd",
}

// NormalizeKeyString converts a runtime key string into canonical form for
// map lookup. Unparseable input normalizes to the empty string, which matches
// nothing.
func NormalizeKeyString(raw string) string {
	step, err := canonicalStep(raw)
	if err != nil {
		return ""
	}
	return step
}

// parseSteps splits a config spec like "g c" or "ctrl+shift+s" into canonical
// steps.
func parseSteps(spec string) ([]string, error) {
	fields := strings.Fields(strings.TrimSpace(spec))
	if len(fields) == 0 {
		return nil, errors.New("empty binding")
	}
	steps := make([]string, len(fields))
	for i, field := range fields {
		step, err := canonicalStep(field)
		if err != nil {
			return nil, err
		}
		steps[i] = step
	}
	return steps, nil
}

func canonicalStep(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "":
		return "", errors.New("empty key step")
	case "?":
		return "shift+/", nil
	case " ":
		return "space", nil
	}

	if !strings.Contains(raw, "+") {
		if r := []rune(raw); len(r) == 1 && unicode.IsUpper(r[0]) {
			return "shift+" + strings.ToLower(raw), nil
		}
		return strings.ToLower(raw), nil
	}

	mods := make(map[string]struct{})
	var keys []string
	for _, part := range strings.Split(raw, "+") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if canonical, ok := modifierAliases[part]; ok {
			mods[canonical] = struct{}{}
			continue
		}
		keys = append(keys, part)
	}
	if len(keys) == 0 {
		return "", fmt.Errorf("binding %q missing key", raw)
	}

	parts := make([]string, 0, len(mods)+1)
	for _, mod := range modifierOrder {
		if _, ok := mods[mod]; ok {
			parts = append(parts, mod)
		}
	}
	parts = append(parts, strings.Join(keys, "+"))
	return strings.Join(parts, "+"), nil
}
