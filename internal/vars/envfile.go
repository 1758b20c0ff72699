package vars

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/unkn0wn-root/wsterm/internal/errdef"
)

// EnvironmentSet maps environment names to their variable tables.
type EnvironmentSet map[string]map[string]string

var envFileCandidates = []string{
	"ws-client.env.json",
	"http-client.env.json",
	".env",
}

// LoadEnvironmentFile reads either a JSON environment file (name -> variables)
// or a dotenv file whose variables land in a single derived environment.
func LoadEnvironmentFile(path string) (EnvironmentSet, error) {
	if IsDotEnvPath(path) {
		return loadDotEnvEnvironment(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errdef.Wrap(errdef.CodeFilesystem, err, "read environment file %s", path)
	}

	var envs EnvironmentSet
	if err := json.Unmarshal(data, &envs); err != nil {
		return nil, errdef.Wrap(errdef.CodeParse, err, "parse environment file %s", path)
	}
	return envs, nil
}

// ResolveEnvironment searches each directory for a known environment file name
// and loads the first that exists.
func ResolveEnvironment(searchDirs []string) (EnvironmentSet, string, error) {
	for _, dir := range searchDirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		for _, name := range envFileCandidates {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err != nil {
				continue
			}
			envs, err := LoadEnvironmentFile(candidate)
			if err != nil {
				return nil, "", err
			}
			return envs, candidate, nil
		}
	}
	return nil, "", errors.New("no environment file found")
}

// SelectDefault prefers dev/default/local, then the first name alphabetically.
// The second return reports whether other environments were skipped over.
func SelectDefault(envs EnvironmentSet) (string, bool) {
	if len(envs) == 0 {
		return "", false
	}
	preferred := []string{"dev", "default", "local"}
	for _, name := range preferred {
		if _, ok := envs[name]; ok {
			return name, len(envs) > 1
		}
	}
	names := make([]string, 0, len(envs))
	for name := range envs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names[0], len(envs) > 1
}
