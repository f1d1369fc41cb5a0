// Package report builds class progress reports from a roster of student
// profiles.
package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrEmptyRoster = errors.New("roster lists no students")

// Roster is a class and its students' profile names.
//
//	class: 3B
//	students:
//	  - alice
//	  - bob
type Roster struct {
	Class    string   `yaml:"class"`
	Students []string `yaml:"students"`
}

// LoadRoster reads a roster file.
func LoadRoster(path string) (Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return Roster{}, fmt.Errorf("opening roster: %w", err)
	}
	defer f.Close()
	return ParseRoster(f)
}

// ParseRoster decodes a YAML roster. Blank and duplicate names are dropped.
func ParseRoster(r io.Reader) (Roster, error) {
	var raw Roster
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return Roster{}, ErrEmptyRoster
		}
		return Roster{}, fmt.Errorf("parsing roster: %w", err)
	}

	out := Roster{Class: strings.TrimSpace(raw.Class)}
	seen := make(map[string]bool, len(raw.Students))
	for _, s := range raw.Students {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out.Students = append(out.Students, s)
	}
	if len(out.Students) == 0 {
		return Roster{}, ErrEmptyRoster
	}
	return out, nil
}
