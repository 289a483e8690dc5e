// Package state persists small pieces of local tool state between runs.
package state

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// State represents local stockwatch state as a generic map of key-value
// pairs, so any command can record data that should survive a restart
// (last daemon start, last config path, and so on).
type State map[string]interface{}

// stateFilePath returns the path to the state file, .stockwatch/state.yml in
// the current working directory. Keeping it beside the config means each
// project directory has its own independent state.
func stateFilePath() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current directory: %w", err)
	}
	return filepath.Join(cwd, ".stockwatch", "state.yml"), nil
}

// Load loads the state from the state file.
// Returns an empty state if the file doesn't exist.
func Load() (State, error) {
	path, err := stateFilePath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	if st == nil {
		st = State{}
	}
	return st, nil
}

// Save writes the state to the state file, creating the directory if needed.
func (s State) Save() error {
	path, err := stateFilePath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// Get returns the value for a key, or nil if unset.
func (s State) Get(key string) interface{} {
	return s[key]
}

// GetString returns the string value for a key, or "" if unset or not a string.
func (s State) GetString(key string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return ""
}

// Set stores a value under a key.
func (s State) Set(key string, value interface{}) {
	s[key] = value
}

// Update loads the state, applies the mutation, and saves the result.
func Update(mutate func(State)) error {
	st, err := Load()
	if err != nil {
		return err
	}
	mutate(st)
	return st.Save()
}
