package theme

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Load resolves a theme by name from the themes directory. The built-in
// "default" name never touches disk; anything else must exist as
// <name>.toml or <name>.json.
func Load(dir, name string) (Theme, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "default") {
		return Default(), nil
	}

	candidates := []struct {
		path   string
		decode func([]byte, *Palette) error
	}{
		{filepath.Join(dir, name+".toml"), func(data []byte, p *Palette) error {
			return toml.Unmarshal(data, p)
		}},
		{filepath.Join(dir, name+".json"), func(data []byte, p *Palette) error {
			return json.Unmarshal(data, p)
		}},
	}

	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate.path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Theme{}, fmt.Errorf("read theme %q: %w", candidate.path, err)
		}
		var palette Palette
		if err := candidate.decode(data, &palette); err != nil {
			return Theme{}, fmt.Errorf("parse theme %q: %w", candidate.path, err)
		}
		return Build(palette), nil
	}

	return Theme{}, fmt.Errorf("theme %q not found in %s", name, dir)
}

// Available lists theme names found in dir, plus the built-in default.
func Available(dir string) []string {
	names := map[string]struct{}{"default": {}}
	entries, err := os.ReadDir(dir)
	if err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			ext := filepath.Ext(entry.Name())
			if ext != ".toml" && ext != ".json" {
				continue
			}
			names[strings.TrimSuffix(entry.Name(), ext)] = struct{}{}
		}
	}
	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
