package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Env holds the DonutSMP API settings shared by every command.
// It is meant to be embedded into a command's own env struct and processed with envconfig.
type Env struct {
	BaseURL     string        `envconfig:"DONUT_BASE_URL" default:"https://api.donutsmp.net/v1"`
	APIKey      string        `envconfig:"DONUT_API_KEY"`
	Players     []string      `envconfig:"DONUT_PLAYERS"`
	RosterFile  string        `envconfig:"DONUT_ROSTER_FILE"`
	Timeout     time.Duration `envconfig:"DONUT_TIMEOUT" default:"5s"`
	MaxAttempts int           `envconfig:"DONUT_MAX_ATTEMPTS" default:"3"`
	BackoffStep time.Duration `envconfig:"DONUT_BACKOFF_STEP" default:"1s"`
	Debug       bool          `envconfig:"DONUT_DEBUG" default:"false"`
}

// Player is one tracked roster entry.
type Player struct {
	Name      string `yaml:"name" json:"name"`
	StatsKey  string `yaml:"statsKey" json:"-"`
	LookupKey string `yaml:"lookupKey" json:"-"`
}

var (
	ErrMissingName     = errors.New("missing player name")
	ErrMissingKey      = errors.New("missing api key")
	ErrDuplicatePlayer = errors.New("duplicate player")
	ErrEmptyRoster     = errors.New("no players configured")
)

// Validate reports whether the entry can be used for both categories.
func (p Player) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrMissingName
	}
	if p.StatsKey == "" || p.LookupKey == "" {
		return fmt.Errorf("%s: %w", p.Name, ErrMissingKey)
	}
	return nil
}

type rosterFile struct {
	APIKey  string   `yaml:"apiKey"`
	Players []Player `yaml:"players"`
}

// LoadRoster builds the roster from the roster file and the DONUT_PLAYERS list.
// Keys missing from an entry fall back to the shared key. Entries that are still
// incomplete are dropped with a warning; duplicate names are an error.
func LoadRoster(e Env) ([]Player, error) {
	shared := e.APIKey
	var entries []Player
	if e.RosterFile != "" {
		rf, err := readRosterFile(e.RosterFile)
		if err != nil {
			return nil, err
		}
		if shared == "" {
			shared = rf.APIKey
		}
		entries = append(entries, rf.Players...)
	}
	for _, name := range e.Players {
		entries = append(entries, Player{Name: name})
	}

	seen := make(map[string]bool, len(entries))
	roster := make([]Player, 0, len(entries))
	for _, p := range entries {
		p.Name = strings.TrimSpace(p.Name)
		if p.StatsKey == "" {
			p.StatsKey = shared
		}
		if p.LookupKey == "" {
			p.LookupKey = p.StatsKey
		}
		if err := p.Validate(); err != nil {
			log.Printf("Skipping invalid player configuration: %s", err)
			continue
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("%s: %w", p.Name, ErrDuplicatePlayer)
		}
		seen[p.Name] = true
		roster = append(roster, p)
	}
	if len(roster) == 0 {
		return nil, ErrEmptyRoster
	}
	return roster, nil
}

func readRosterFile(path string) (rosterFile, error) {
	var rf rosterFile
	data, err := os.ReadFile(path)
	if err != nil {
		return rf, fmt.Errorf("reading roster file: %w", err)
	}
	data = []byte(os.ExpandEnv(string(data)))
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return rf, fmt.Errorf("parsing roster file: %w", err)
	}
	return rf, nil
}

// Names returns the player names in roster order.
func Names(roster []Player) []string {
	names := make([]string, len(roster))
	for i, p := range roster {
		names[i] = p.Name
	}
	return names
}
