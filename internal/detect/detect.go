// Package detect probes the filesystem for game installations. Discovery is
// pure: a missing path is encoded as an invalid candidate, never an error,
// and every call returns a fresh snapshot that fully replaces the last one.
package detect

import (
	"os"
	"path/filepath"
)

// Kind identifies the launcher a candidate belongs to.
type Kind string

const (
	Steam  Kind = "steam"
	Epic   Kind = "epic"
	Custom Kind = "custom"
)

// Candidate is an immutable snapshot of one possible installation.
type Candidate struct {
	Kind         Kind
	DisplayName  string
	InstallRoot  string
	SaveRoot     string
	InstallValid bool
	SaveValid    bool
}

// Valid reports whether the candidate is usable at all. Install and save
// roots are validated independently: a user may keep saves and game files in
// unrelated locations.
func (c Candidate) Valid() bool {
	return c.InstallValid || c.SaveValid
}

// CustomPaths carries user-supplied roots. Either, both or neither may be
// set.
type CustomPaths struct {
	InstallRoot string
	SaveRoot    string
}

const (
	steamInstallDefault = `C:\Program Files (x86)\Steam\steamapps\common\The Lord of the Rings Return to Moria™`
	epicInstallDefault  = `C:\Program Files\Epic Games\ReturnToMoria`
)

func steamSaveDefault() string {
	return filepath.Join(os.Getenv("LOCALAPPDATA"), "Moria", "Saved", "SaveGamesSteam")
}

func epicSaveDefault() string {
	return filepath.Join(os.Getenv("LOCALAPPDATA"), "Moria", "Saved", "SaveGamesEpic")
}

// Discover probes the well-known Steam and Epic locations and validates the
// supplied custom paths. Steam and Epic entries are always present, flagged
// invalid rather than omitted, plus exactly one Custom entry.
func Discover(custom CustomPaths) []Candidate {
	return []Candidate{
		probe(Steam, "Steam", steamInstallDefault, steamSaveDefault()),
		probe(Epic, "Epic Games", epicInstallDefault, epicSaveDefault()),
		probe(Custom, "Custom Installation", custom.InstallRoot, custom.SaveRoot),
	}
}

func probe(kind Kind, name, installRoot, saveRoot string) Candidate {
	return Candidate{
		Kind:         kind,
		DisplayName:  name,
		InstallRoot:  installRoot,
		SaveRoot:     saveRoot,
		InstallValid: installRootValid(installRoot),
		SaveValid:    saveRootValid(saveRoot),
	}
}

// PaksDir returns the game's active mods directory under an install root.
func PaksDir(installRoot string) string {
	return filepath.Join(installRoot, "Moria", "Content", "Paks")
}

// installRootValid requires the directory to exist and carry a game marker:
// the Paks tree or a Moria executable at the root.
func installRootValid(root string) bool {
	if root == "" {
		return false
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return false
	}
	if info, err := os.Stat(PaksDir(root)); err == nil && info.IsDir() {
		return true
	}
	for _, exe := range []string{"Moria.exe", "MoriaClient.exe"} {
		if info, err := os.Stat(filepath.Join(root, exe)); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}

// saveRootValid requires a readable directory.
func saveRootValid(root string) bool {
	if root == "" {
		return false
	}
	f, err := os.Open(root)
	if err != nil {
		return false
	}
	defer f.Close()
	info, err := f.Stat()
	return err == nil && info.IsDir()
}
