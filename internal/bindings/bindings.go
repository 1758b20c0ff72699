package bindings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	toml "github.com/pelletier/go-toml/v2"
)

// Format identifies the serialization format for shortcut configs.
type Format string

const (
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// Source describes where the bindings config was loaded from.
type Source struct {
	Path   string
	Format Format
}

// ActionID uniquely identifies a shortcut action.
type ActionID string

// Binding is one resolved shortcut: a single canonical key or a two-step
// chord.
type Binding struct {
	Action ActionID
	Steps  []string
}

// Map answers key lookups at runtime. Single-step shortcuts, chord prefixes
// and chord completions live in separate indexes so the update loop can
// decide in one map hit whether a key fires, arms a chord, or types.
type Map struct {
	single   map[string]Binding
	chords   map[string]map[string]Binding
	byAction map[ActionID][]Binding
}

// Load reads bindings.toml or bindings.json from dir, TOML preferred.
// Missing files fall back to the defaults.
func Load(dir string) (*Map, Source, error) {
	candidates := []Source{
		{Path: filepath.Join(dir, "bindings.toml"), Format: FormatTOML},
		{Path: filepath.Join(dir, "bindings.json"), Format: FormatJSON},
	}

	var readErrs error
	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate.Path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			readErrs = errors.Join(readErrs, fmt.Errorf("read bindings %q: %w", candidate.Path, err))
			continue
		}

		overrides, err := parseOverrides(data, candidate.Format)
		if err != nil {
			return nil, Source{}, fmt.Errorf("parse bindings %q: %w", candidate.Path, err)
		}
		built, err := newMap(overrides)
		if err != nil {
			return nil, Source{}, fmt.Errorf("apply bindings %q: %w", candidate.Path, err)
		}
		return built, candidate, nil
	}

	if readErrs != nil {
		return nil, Source{}, readErrs
	}

	built, err := newMap(nil)
	if err != nil {
		return nil, Source{}, err
	}
	return built, Source{Path: candidates[0].Path, Format: FormatTOML}, nil
}

// DefaultMap builds the built-in bindings without consulting disk.
func DefaultMap() *Map {
	m, err := newMap(nil)
	if err != nil {
		panic(err)
	}
	return m
}

// MatchSingle returns the action bound to a single-step shortcut, if any.
func (m *Map) MatchSingle(key string) (Binding, bool) {
	if m == nil {
		return Binding{}, false
	}
	b, ok := m.single[key]
	return b, ok
}

// HasChordPrefix reports whether the key can start a two-step chord.
func (m *Map) HasChordPrefix(key string) bool {
	if m == nil {
		return false
	}
	_, ok := m.chords[key]
	return ok
}

// ResolveChord completes a chord from its prefix and second key.
func (m *Map) ResolveChord(prefix, next string) (Binding, bool) {
	if m == nil {
		return Binding{}, false
	}
	completions, ok := m.chords[prefix]
	if !ok {
		return Binding{}, false
	}
	b, ok := completions[next]
	return b, ok
}

// Bindings returns every binding registered for the action.
func (m *Map) Bindings(action ActionID) []Binding {
	if m == nil {
		return nil
	}
	src := m.byAction[action]
	if len(src) == 0 {
		return nil
	}
	out := make([]Binding, len(src))
	for i, b := range src {
		out[i] = Binding{Action: b.Action, Steps: append([]string(nil), b.Steps...)}
	}
	return out
}

type overrideFile struct {
	Bindings map[string][]string `json:"bindings" toml:"bindings"`
}

func parseOverrides(data []byte, format Format) (map[ActionID][][]string, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var payload overrideFile
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	if len(payload.Bindings) == 0 {
		return nil, nil
	}

	overrides := make(map[ActionID][][]string, len(payload.Bindings))
	for name, specs := range payload.Bindings {
		id := ActionID(name)
		if _, ok := definitionLookup[id]; !ok {
			return nil, fmt.Errorf("unknown action %q", name)
		}
		sequences := make([][]string, 0, len(specs))
		for _, spec := range specs {
			seq, err := parseSteps(spec)
			if err != nil {
				return nil, fmt.Errorf("action %q: %w", name, err)
			}
			sequences = append(sequences, seq)
		}
		overrides[id] = sequences
	}
	return overrides, nil
}

func newMap(overrides map[ActionID][][]string) (*Map, error) {
	m := &Map{
		single:   make(map[string]Binding),
		chords:   make(map[string]map[string]Binding),
		byAction: make(map[ActionID][]Binding, len(definitions)),
	}

	for _, def := range definitions {
		sequences, overridden := overrides[def.id]
		if !overridden {
			sequences = def.defaults
		}
		for _, seq := range sequences {
			if err := m.register(def.id, seq); err != nil {
				return nil, err
			}
		}
	}

	// A chord prefix that is also a standalone shortcut would fire before the
	// second key could arrive.
	for prefix := range m.chords {
		if existing, ok := m.single[prefix]; ok {
			return nil, fmt.Errorf(
				"key %q is both a chord prefix and a shortcut for %s",
				prefix, existing.Action,
			)
		}
	}
	return m, nil
}

func (m *Map) register(id ActionID, seq []string) error {
	switch {
	case len(seq) == 0:
		return nil
	case len(seq) > 2:
		return fmt.Errorf("action %s: bindings may not exceed two steps", id)
	case id == ActionConnectToggle && len(seq) != 1:
		return fmt.Errorf("action %s only supports single-step bindings", id)
	}

	b := Binding{Action: id, Steps: append([]string(nil), seq...)}
	m.byAction[id] = append(m.byAction[id], b)

	if len(seq) == 1 {
		if existing, ok := m.single[seq[0]]; ok {
			return fmt.Errorf(
				"binding %q assigned to both %s and %s",
				seq[0], existing.Action, id,
			)
		}
		m.single[seq[0]] = b
		return nil
	}

	completions := m.chords[seq[0]]
	if completions == nil {
		completions = make(map[string]Binding)
		m.chords[seq[0]] = completions
	}
	if existing, ok := completions[seq[1]]; ok {
		return fmt.Errorf(
			"binding %q %q assigned to both %s and %s",
			seq[0], seq[1], existing.Action, id,
		)
	}
	completions[seq[1]] = b
	return nil
}

// KnownActions returns the sorted list of action identifiers.
func KnownActions() []ActionID {
	ids := make([]ActionID, 0, len(definitions))
	for _, def := range definitions {
		ids = append(ids, def.id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
