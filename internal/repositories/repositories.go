// Package repositories maps buildernames to the repository they build.
package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ErrUnknownRepo is returned when no known repository appears in a buildername.
var ErrUnknownRepo = errors.New("unknown repository")

// Repository describes one entry of the repositories file.
type Repository struct {
	Repo          string   `json:"repo"`
	GraphBranches []string `json:"graph_branches"`
	RepoType      string   `json:"repo_type"`
}

// Set is the repositories file keyed by repository name.
type Set map[string]Repository

// Load reads a repositories JSON file.
func Load(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read repositories file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes repositories JSON.
func Parse(data []byte) (Set, error) {
	var set Set
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("could not parse repositories: %w", err)
	}
	return set, nil
}

// Names returns the repository names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RepoNameFromBuildername returns the repository whose name appears in
// buildername delimited by spaces, underscores or dashes, e.g. "real-repo" for
// both "Linux real-repo opt build" and "b2g_real-repo_win32_gecko build".
// When several names match, the longest one wins so that "mozilla-central"
// is preferred over "central".
func (s Set) RepoNameFromBuildername(buildername string) (string, error) {
	match := ""
	for _, name := range s.Names() {
		if !containsRepo(buildername, name) {
			continue
		}
		if len(name) > len(match) {
			match = name
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w in buildername %q", ErrUnknownRepo, buildername)
	}
	return match, nil
}

func containsRepo(buildername, name string) bool {
	for _, sep := range []string{" ", "_", "-"} {
		if strings.Contains(buildername, sep+name+sep) {
			return true
		}
	}
	return false
}
