// Package modfile models mod packages on disk. A mod is the co-located
// .pak/.ucas/.utoc triple sharing one base name; the engine never looks
// inside the files.
package modfile

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Extensions lists the triple in copy order. The .pak file identifies the
// mod during scans; the companions are hidden from listings.
var Extensions = []string{".pak", ".ucas", ".utoc"}

// EngineFiles are the game's own Paks entries, never treated as mods.
var EngineFiles = map[string]bool{
	"global.ucas":                true,
	"global.utoc":                true,
	"Moria-WindowsNoEditor.pak":  true,
	"Moria-WindowsNoEditor.ucas": true,
	"Moria-WindowsNoEditor.utoc": true,
}

// Mod is one logical mod package.
type Mod struct {
	Name   string // base name without extension
	Folder string // relative subfolder within the tree, "" at the root
	Dir    string // absolute directory holding the files
	Files  []string
}

// Missing returns the extensions of the triple not present on disk.
func (m Mod) Missing() []string {
	present := make(map[string]bool, len(m.Files))
	for _, f := range m.Files {
		present[strings.ToLower(filepath.Ext(f))] = true
	}
	var missing []string
	for _, ext := range Extensions {
		if !present[ext] {
			missing = append(missing, ext)
		}
	}
	return missing
}

// Complete reports whether all three files exist.
func (m Mod) Complete() bool {
	return len(m.Missing()) == 0
}

// Scan lists the mods under root. With recurse set, subfolders are included
// and reported via Mod.Folder; without it only the top level is read, the
// way the game's own Paks folder is treated. Engine files are skipped when
// skipEngine is set. A missing root yields an empty result.
func Scan(root string, recurse, skipEngine bool) ([]Mod, error) {
	byKey := make(map[string]*Mod)

	walk := func(dir, folder string) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			if skipEngine && EngineFiles[name] {
				continue
			}
			ext := strings.ToLower(filepath.Ext(name))
			switch ext {
			case ".pak", ".ucas", ".utoc":
			default:
				continue
			}
			base := strings.TrimSuffix(name, filepath.Ext(name))
			key := folder + "/" + base
			m := byKey[key]
			if m == nil {
				m = &Mod{Name: base, Folder: folder, Dir: dir}
				byKey[key] = m
			}
			m.Files = append(m.Files, filepath.Join(dir, name))
		}
		return nil
	}

	if err := walk(root, ""); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	if recurse {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return err
			}
			if !d.IsDir() || path == root {
				return nil
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return relErr
			}
			return walk(path, filepath.ToSlash(rel))
		})
		if err != nil {
			return nil, err
		}
	}

	mods := make([]Mod, 0, len(byKey))
	for _, m := range byKey {
		sortFiles(m.Files)
		mods = append(mods, *m)
	}
	sort.Slice(mods, func(i, j int) bool {
		if mods[i].Folder != mods[j].Folder {
			return mods[i].Folder < mods[j].Folder
		}
		return strings.ToLower(mods[i].Name) < strings.ToLower(mods[j].Name)
	})
	return mods, nil
}

// Find returns the mod with the given base name anywhere under root, or a
// zero Mod with found=false.
func Find(root string, recurse bool, name string) (Mod, bool, error) {
	mods, err := Scan(root, recurse, true)
	if err != nil {
		return Mod{}, false, err
	}
	for _, m := range mods {
		if m.Name == name {
			return m, true, nil
		}
	}
	return Mod{}, false, nil
}

// TriplePaths returns the three file paths the mod would occupy in dir.
func TriplePaths(dir, name string) []string {
	paths := make([]string, 0, len(Extensions))
	for _, ext := range Extensions {
		paths = append(paths, filepath.Join(dir, name+ext))
	}
	return paths
}

// sortFiles orders a mod's files pak, ucas, utoc.
func sortFiles(files []string) {
	rank := map[string]int{".pak": 0, ".ucas": 1, ".utoc": 2}
	sort.Slice(files, func(i, j int) bool {
		return rank[strings.ToLower(filepath.Ext(files[i]))] < rank[strings.ToLower(filepath.Ext(files[j]))]
	})
}
