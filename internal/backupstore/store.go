// Package backupstore owns the backup root directory:
//
//	<root>/AvailableMods/<optional subfolder>/<mod files>
//	<root>/Backups/<worldId>/<timestamp>/<save files>
//
// Backups are staged in a temporary directory on the same volume and renamed
// into place; the per-backup manifest is written after the data files and
// doubles as the completion sentinel, so readers ignore any timestamp
// directory that lacks one.
package backupstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moria-tools/moria-manager/internal/fsops"
	"github.com/moria-tools/moria-manager/internal/logging"
	"github.com/moria-tools/moria-manager/internal/modfile"
	"github.com/moria-tools/moria-manager/internal/operr"
)

const (
	availableDirName = "AvailableMods"
	backupsDirName   = "Backups"
	manifestName     = "backup.json"
	stagingPrefix    = ".tmp-"

	// StampLayout names timestamp directories, e.g. 20260116_143052.
	StampLayout = "20060102_150405"
)

// Backup describes one completed backup set. Immutable once written.
type Backup struct {
	ID          string       `json:"id"`
	WorldID     string       `json:"world_id"`
	Stamp       string       `json:"stamp"`
	CreatedAt   time.Time    `json:"created_at"`
	Description string       `json:"description,omitempty"`
	Files       []BackupFile `json:"files"`
}

// BackupFile records one stored file and its expected size.
type BackupFile struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Store is the system of record for available mods and save backups.
// Mutating operations serialize on the store's mutex.
type Store struct {
	root string
	mu   sync.Mutex
}

// New opens (creating if needed) the store rooted at root. A failure here is
// fatal for the store, not the process; it is reported, never retried.
func New(root string) (*Store, error) {
	for _, dir := range []string{filepath.Join(root, availableDirName), filepath.Join(root, backupsDirName)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating backup store layout: %w", err)
		}
	}
	return &Store{root: root}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

// MutationLock returns the mutex serializing mutations under the store
// root. Components that move files in and out of the tree share it, so
// their moves queue with the store's own delete and folder operations.
func (s *Store) MutationLock() *sync.Mutex { return &s.mu }

// AvailableDir returns the AvailableMods tree root.
func (s *Store) AvailableDir() string { return filepath.Join(s.root, availableDirName) }

// BackupDir returns the directory of one backup set.
func (s *Store) BackupDir(worldID, stamp string) string {
	return filepath.Join(s.root, backupsDirName, worldID, stamp)
}

func (s *Store) worldDir(worldID string) string {
	return filepath.Join(s.root, backupsDirName, worldID)
}

// ListAvailableMods scans the AvailableMods tree, subfolders included.
func (s *Store) ListAvailableMods() ([]modfile.Mod, error) {
	return modfile.Scan(s.AvailableDir(), true, false)
}

// DeleteAvailableMod removes a mod's file set from the available pool. The
// containing subfolder is removed too once it is empty.
func (s *Store) DeleteAvailableMod(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mod, found, err := modfile.Find(s.AvailableDir(), true, name)
	if err != nil {
		return operr.New("delete mod", name, s.AvailableDir(), operr.ErrIOFailure, err)
	}
	if !found {
		return operr.New("delete mod", name, "", operr.ErrPathNotFound, nil)
	}
	for _, f := range mod.Files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return operr.New("delete mod", name, f, operr.ErrIOFailure, err)
		}
	}
	removeIfEmpty(mod.Dir, s.AvailableDir())
	return nil
}

// CreateFolder creates an organizational subfolder in the available pool.
func (s *Store) CreateFolder(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	safe := SanitizeDirName(name)
	dir := filepath.Join(s.AvailableDir(), safe)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", operr.New("create folder", name, dir, operr.ErrIOFailure, err)
	}
	return dir, nil
}

// DeleteFolder removes a subfolder from the available pool. A non-empty
// folder is refused unless deleteContents is set: cascade deletion is an
// explicit caller decision.
func (s *Store) DeleteFolder(name string, deleteContents bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.AvailableDir(), SanitizeDirName(name))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return operr.New("delete folder", name, dir, operr.ErrPathNotFound, nil)
		}
		return operr.New("delete folder", name, dir, operr.ErrIOFailure, err)
	}
	if len(entries) > 0 && !deleteContents {
		return operr.New("delete folder", name, dir, operr.ErrNameCollision,
			fmt.Errorf("folder is not empty; pass delete-contents to remove %d entries", len(entries)))
	}
	if err := os.RemoveAll(dir); err != nil {
		return operr.New("delete folder", name, dir, operr.ErrIOFailure, err)
	}
	return nil
}

// ListWorlds enumerates the worldIds that have at least one backup.
func (s *Store) ListWorlds() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, backupsDirName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var worlds []string
	for _, entry := range entries {
		if entry.IsDir() {
			worlds = append(worlds, entry.Name())
		}
	}
	sort.Strings(worlds)
	return worlds, nil
}

// ListBackups returns the completed backups for worldID, newest first.
// Staging directories and sets without a readable manifest are ignored.
func (s *Store) ListBackups(worldID string) ([]Backup, error) {
	entries, err := os.ReadDir(s.worldDir(worldID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var backups []Backup
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), stagingPrefix) {
			continue
		}
		b, err := s.readManifest(worldID, entry.Name())
		if err != nil {
			logging.Debugf("Verbose: skipping backup without manifest world=%s stamp=%s: %v\n", worldID, entry.Name(), err)
			continue
		}
		backups = append(backups, *b)
	}
	sort.Slice(backups, func(i, j int) bool {
		if !backups[i].CreatedAt.Equal(backups[j].CreatedAt) {
			return backups[i].CreatedAt.After(backups[j].CreatedAt)
		}
		return backups[i].Stamp > backups[j].Stamp
	})
	return backups, nil
}

// GetBackup returns one completed backup set.
func (s *Store) GetBackup(worldID, stamp string) (*Backup, error) {
	b, err := s.readManifest(worldID, stamp)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, operr.New("read backup", worldID, s.BackupDir(worldID, stamp), operr.ErrPathNotFound, nil)
		}
		return nil, operr.New("read backup", worldID, s.BackupDir(worldID, stamp), operr.ErrIOFailure, err)
	}
	return b, nil
}

// WriteBackup copies files into a new timestamped backup set for worldID.
// The set becomes visible only after every file is copied, verified and the
// manifest is in place.
func (s *Store) WriteBackup(worldID string, files []string, description string) (*Backup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(files) == 0 {
		return nil, operr.New("write backup", worldID, "", operr.ErrPathNotFound,
			fmt.Errorf("no source files"))
	}

	now := time.Now()
	worldDir := s.worldDir(worldID)
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		return nil, operr.New("write backup", worldID, worldDir, operr.ErrIOFailure, err)
	}

	stamp := uniqueStamp(worldDir, now)
	staging := filepath.Join(worldDir, stagingPrefix+stamp)
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, operr.New("write backup", worldID, staging, operr.ErrIOFailure, err)
	}
	cleanup := func() { os.RemoveAll(staging) }

	backup := &Backup{
		ID:          uuid.NewString(),
		WorldID:     worldID,
		Stamp:       stamp,
		CreatedAt:   now,
		Description: description,
	}

	for _, src := range files {
		info, err := os.Stat(src)
		if err != nil {
			cleanup()
			if os.IsNotExist(err) {
				return nil, operr.New("write backup", worldID, src, operr.ErrPathNotFound, nil)
			}
			return nil, operr.New("write backup", worldID, src, operr.ErrIOFailure, err)
		}
		dst := filepath.Join(staging, filepath.Base(src))
		if err := fsops.CopyFile(src, dst); err != nil {
			cleanup()
			return nil, operr.New("write backup", worldID, src, operr.ErrIOFailure, err)
		}
		if err := fsops.VerifySize(src, dst); err != nil {
			cleanup()
			return nil, operr.New("write backup", worldID, dst, operr.ErrIntegrityCheckFailed, err)
		}
		backup.Files = append(backup.Files, BackupFile{Name: filepath.Base(src), Size: info.Size()})
	}

	// Manifest last: its presence marks the set complete.
	data, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("marshaling backup manifest: %w", err)
	}
	if err := fsops.WriteFileAtomic(filepath.Join(staging, manifestName), data, 0o644); err != nil {
		cleanup()
		return nil, operr.New("write backup", worldID, staging, operr.ErrIOFailure, err)
	}

	final := filepath.Join(worldDir, stamp)
	if err := os.Rename(staging, final); err != nil {
		cleanup()
		return nil, operr.New("write backup", worldID, final, operr.ErrIOFailure, err)
	}
	logging.Debugf("Verbose: backup written world=%s stamp=%s files=%d\n", worldID, stamp, len(backup.Files))
	return backup, nil
}

// DeleteBackup removes one backup set.
func (s *Store) DeleteBackup(worldID, stamp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.BackupDir(worldID, stamp)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return operr.New("delete backup", worldID, dir, operr.ErrPathNotFound, nil)
		}
		return operr.New("delete backup", worldID, dir, operr.ErrIOFailure, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return operr.New("delete backup", worldID, dir, operr.ErrIOFailure, err)
	}
	removeIfEmpty(s.worldDir(worldID), filepath.Join(s.root, backupsDirName))
	return nil
}

// DeleteWorldBackups removes every backup set for worldID.
func (s *Store) DeleteWorldBackups(worldID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.worldDir(worldID)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return operr.New("delete world backups", worldID, dir, operr.ErrPathNotFound, nil)
		}
		return operr.New("delete world backups", worldID, dir, operr.ErrIOFailure, err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return operr.New("delete world backups", worldID, dir, operr.ErrIOFailure, err)
	}
	return nil
}

func (s *Store) readManifest(worldID, stamp string) (*Backup, error) {
	data, err := os.ReadFile(filepath.Join(s.BackupDir(worldID, stamp), manifestName))
	if err != nil {
		return nil, err
	}
	var b Backup
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	// Directory name is authoritative for the stamp.
	b.WorldID = worldID
	b.Stamp = stamp
	return &b, nil
}

// uniqueStamp formats now and suffixes a counter when two backups land in
// the same second.
func uniqueStamp(worldDir string, now time.Time) string {
	stamp := now.Format(StampLayout)
	candidate := stamp
	for n := 2; ; n++ {
		if _, err := os.Stat(filepath.Join(worldDir, candidate)); os.IsNotExist(err) {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d", stamp, n)
	}
}

// removeIfEmpty deletes dir when it is empty and not the tree root.
func removeIfEmpty(dir, root string) {
	if dir == root {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) > 0 {
		return
	}
	_ = os.Remove(dir)
}

// SanitizeDirName makes a display name safe for use as a directory name.
func SanitizeDirName(name string) string {
	result := name
	for _, c := range `<>:"/\|?*` {
		result = strings.ReplaceAll(result, string(c), "_")
	}
	result = strings.Trim(result, " .")
	if result == "" {
		result = "Unknown"
	}
	return result
}
