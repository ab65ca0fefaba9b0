// Package saves scans a save-game directory and groups the files belonging
// to one world or character. The game writes several versions per save:
//
//	MW_ABC123.sav         main world save
//	MW_ABC123.sav.fresh   fresh/template copy
//	MW_ABC123.00.bak      rotating numbered backup
//	MW_ABC123.sav.00.bad  save the game marked as corrupt
//
// MC_* files follow the same convention for characters. Grouping is by base
// name; the engine treats the contents as opaque apart from the metadata the
// gvas parser can recover.
package saves

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Kind distinguishes world saves from character saves.
type Kind string

const (
	World     Kind = "world"
	Character Kind = "character"
)

const (
	worldPrefix     = "MW_"
	characterPrefix = "MC_"
)

// VersionType classifies one file within a save group.
type VersionType string

const (
	VersionMain   VersionType = "main"
	VersionFresh  VersionType = "fresh"
	VersionBackup VersionType = "backup"
	VersionBad    VersionType = "bad"
)

// Version is a single file belonging to a save group.
type Version struct {
	Path    string
	Type    VersionType
	Number  int // backup/bad rotation number, -1 otherwise
	ModTime time.Time
	Size    int64
}

// Group is one world or character with all its related files.
type Group struct {
	BaseName    string // e.g. "MW_ABC123"; used as the world id
	Kind        Kind
	DisplayName string // parsed world/character name, or BaseName
	ModTime     time.Time
	Versions    []Version
}

// Main returns the group's live .sav version, or nil when only backups
// survive.
func (g *Group) Main() *Version {
	for i := range g.Versions {
		if g.Versions[i].Type == VersionMain {
			return &g.Versions[i]
		}
	}
	return nil
}

var (
	mainPattern   = regexp.MustCompile(`^(M[WC]_[A-Fa-f0-9]+)\.sav$`)
	backupPattern = regexp.MustCompile(`^(M[WC]_[A-Fa-f0-9]+)\.(\d{2})\.bak$`)
	freshPattern  = regexp.MustCompile(`^(M[WC]_[A-Fa-f0-9]+)\.sav\.fresh$`)
	badPattern    = regexp.MustCompile(`^(M[WC]_[A-Fa-f0-9]+)\.sav\.(\d{2})\.bad$`)
)

// Scan reads dir and returns all save groups, newest first. Groups that have
// lost their main .sav but still have backups are reported too. A missing
// directory yields an empty result, not an error.
func Scan(dir string) ([]Group, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	groups := make(map[string]*Group)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		var kind Kind
		switch {
		case strings.HasPrefix(name, worldPrefix):
			kind = World
		case strings.HasPrefix(name, characterPrefix):
			kind = Character
		default:
			continue
		}

		base, vtype, num, ok := classify(name)
		if !ok {
			continue
		}

		info, err := entry.Info()
		var modTime time.Time
		var size int64
		if err == nil {
			modTime = info.ModTime()
			size = info.Size()
		}

		g := groups[base]
		if g == nil {
			g = &Group{BaseName: base, Kind: kind, DisplayName: base}
			groups[base] = g
		}
		g.Versions = append(g.Versions, Version{
			Path:    filepath.Join(dir, name),
			Type:    vtype,
			Number:  num,
			ModTime: modTime,
			Size:    size,
		})
		if modTime.After(g.ModTime) {
			g.ModTime = modTime
		}
	}

	result := make([]Group, 0, len(groups))
	for _, g := range groups {
		sortVersions(g.Versions)
		resolveDisplayName(g)
		result = append(result, *g)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].ModTime.Equal(result[j].ModTime) {
			return result[i].ModTime.After(result[j].ModTime)
		}
		return result[i].BaseName < result[j].BaseName
	})
	return result, nil
}

// Find scans dir and returns the group with the given base name.
func Find(dir, baseName string) (*Group, error) {
	groups, err := Scan(dir)
	if err != nil {
		return nil, err
	}
	for i := range groups {
		if groups[i].BaseName == baseName {
			return &groups[i], nil
		}
	}
	return nil, nil
}

func classify(name string) (base string, vtype VersionType, num int, ok bool) {
	if m := mainPattern.FindStringSubmatch(name); m != nil {
		return m[1], VersionMain, -1, true
	}
	if m := freshPattern.FindStringSubmatch(name); m != nil {
		return m[1], VersionFresh, -1, true
	}
	if m := backupPattern.FindStringSubmatch(name); m != nil {
		n, _ := strconv.Atoi(m[2])
		return m[1], VersionBackup, n, true
	}
	if m := badPattern.FindStringSubmatch(name); m != nil {
		n, _ := strconv.Atoi(m[2])
		return m[1], VersionBad, n, true
	}
	return "", "", 0, false
}

// sortVersions orders main first, then fresh, then backups and bad files by
// rotation number.
func sortVersions(versions []Version) {
	rank := map[VersionType]int{VersionMain: 0, VersionFresh: 1, VersionBackup: 2, VersionBad: 3}
	sort.Slice(versions, func(i, j int) bool {
		if rank[versions[i].Type] != rank[versions[j].Type] {
			return rank[versions[i].Type] < rank[versions[j].Type]
		}
		return versions[i].Number < versions[j].Number
	})
}

// resolveDisplayName parses save metadata out of the best available version.
// Fresh copies are preferred over rotating backups when the main file is
// gone. Parse failures leave the base name in place.
func resolveDisplayName(g *Group) {
	var candidates []Version
	candidates = append(candidates, g.Versions...)
	for _, v := range candidates {
		var name string
		switch g.Kind {
		case World:
			if meta, err := ParseWorldSave(v.Path); err == nil && meta.WorldName != "" {
				name = meta.WorldName
			}
		case Character:
			if n, err := ParseCharacterName(v.Path); err == nil && n != "" {
				name = n
			}
		}
		if name != "" {
			g.DisplayName = name
			return
		}
	}
}
