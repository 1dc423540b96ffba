// Package dotdir manages the .circuitchat/ and ~/.circuitchat directories.
//
// The directory holds config.toml, credentials.toml and the saved chat
// conversation that "circuitchat chat" resumes from.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the name of the circuitchat directory.
const DirName = ".circuitchat"

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path of the .circuitchat/ directory to use,
// creating it when missing. Order of precedence:
//  1. Provided override
//  2. Local ./.circuitchat/ dir, when it exists
//  3. Home ~/.circuitchat/ dir
func (m *Manager) Target(overrideDir string) (string, error) {
	dir := overrideDir
	if dir == "" {
		local, err := m.Local()
		if err != nil {
			return "", err
		}
		if isDir(local) {
			dir = local
		} else if dir, err = m.Home(); err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating circuitchat directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// Local returns the path of ./.circuitchat/ in the working directory,
// whether or not it exists.
func (m *Manager) Local() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	return filepath.Join(cwd, DirName), nil
}

// Home returns the path of ~/.circuitchat/, whether or not it exists.
func (m *Manager) Home() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// InitLocal creates ./.circuitchat/ and reports whether it already existed.
func (m *Manager) InitLocal() (dir string, existed bool, err error) {
	dir, err = m.Local()
	if err != nil {
		return "", false, err
	}

	existed = isDir(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, fmt.Errorf("creating .circuitchat directory: %w", err)
	}
	return dir, existed, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
