// Package modsync reconciles the available mods pool against the game's
// active Paks directory. Installs and uninstalls are moves, executed as
// copy, verify, then delete-source: a crash mid-operation leaves at worst a
// harmless duplicate, never a lost mod, and a mod base name is never
// observable in both trees once an operation completes.
package modsync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/moria-tools/moria-manager/internal/backupstore"
	"github.com/moria-tools/moria-manager/internal/fsops"
	"github.com/moria-tools/moria-manager/internal/logging"
	"github.com/moria-tools/moria-manager/internal/modfile"
	"github.com/moria-tools/moria-manager/internal/operr"
)

// Destination selects where an uninstalled mod goes.
type Destination string

const (
	// ToAvailable moves the mod back into the available pool.
	ToAvailable Destination = "available"
	// ToDelete removes the mod entirely.
	ToDelete Destination = "delete"
)

// Location names one of the two mirrored trees.
type Location string

const (
	Available Location = "available"
	Installed Location = "installed"
)

// Synchronizer performs mod state transitions between the store's available
// pool and the installation's Paks directory. Mutations serialize on the
// store's mutation lock, so moves queue with the store's own delete and
// folder operations on the same tree; listings run freely.
type Synchronizer struct {
	store   *backupstore.Store
	paksDir string
	mu      *sync.Mutex
}

// New returns a Synchronizer for the given store and Paks directory.
func New(store *backupstore.Store, paksDir string) *Synchronizer {
	return &Synchronizer{store: store, paksDir: paksDir, mu: store.MutationLock()}
}

// ListAvailable lists the available pool, subfolders included.
func (s *Synchronizer) ListAvailable() ([]modfile.Mod, error) {
	return s.store.ListAvailableMods()
}

// ListInstalled lists the game's Paks directory. The installed tree is flat;
// the game's own engine files are not mods.
func (s *Synchronizer) ListInstalled() ([]modfile.Mod, error) {
	return modfile.Scan(s.paksDir, false, true)
}

// Install moves a mod from the available pool into the Paks directory.
func (s *Synchronizer) Install(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.paksDir); err != nil {
		return operr.New("install", name, s.paksDir, operr.ErrPathNotFound, err)
	}
	mod, found, err := modfile.Find(s.store.AvailableDir(), true, name)
	if err != nil {
		return operr.New("install", name, s.store.AvailableDir(), operr.ErrIOFailure, err)
	}
	if !found {
		return operr.New("install", name, s.store.AvailableDir(), operr.ErrPathNotFound, nil)
	}
	return s.transfer(ctx, "install", mod, s.paksDir)
}

// Uninstall moves a mod out of the Paks directory, either back to the
// available pool root or deleting it outright.
func (s *Synchronizer) Uninstall(ctx context.Context, name string, dest Destination) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mod, found, err := modfile.Find(s.paksDir, false, name)
	if err != nil {
		return operr.New("uninstall", name, s.paksDir, operr.ErrIOFailure, err)
	}
	if !found {
		return operr.New("uninstall", name, s.paksDir, operr.ErrPathNotFound, nil)
	}

	switch dest {
	case ToAvailable:
		// Base names are unique across the whole available tree, subfolders
		// included; the per-file collision pass below only sees the root.
		if other, exists, err := modfile.Find(s.store.AvailableDir(), true, name); err != nil {
			return operr.New("uninstall", name, s.store.AvailableDir(), operr.ErrIOFailure, err)
		} else if exists && other.Folder != "" {
			return operr.New("uninstall", name, other.Dir, operr.ErrNameCollision, nil)
		}
		return s.transfer(ctx, "uninstall", mod, s.store.AvailableDir())
	case ToDelete:
		return s.removeSet(ctx, "uninstall", mod)
	default:
		return fmt.Errorf("uninstall %s: unknown destination %q", name, dest)
	}
}

// Delete removes a mod's file set from one tree. Terminal: the files are
// gone, not moved.
func (s *Synchronizer) Delete(ctx context.Context, name string, loc Location) error {
	switch loc {
	case Available:
		return s.store.DeleteAvailableMod(name)
	case Installed:
		s.mu.Lock()
		defer s.mu.Unlock()
		mod, found, err := modfile.Find(s.paksDir, false, name)
		if err != nil {
			return operr.New("delete mod", name, s.paksDir, operr.ErrIOFailure, err)
		}
		if !found {
			return operr.New("delete mod", name, s.paksDir, operr.ErrPathNotFound, nil)
		}
		return s.removeSet(ctx, "delete mod", mod)
	default:
		return fmt.Errorf("delete %s: unknown location %q", name, loc)
	}
}

// CreateFolder creates an organizational subfolder in the available pool.
// Installed mods stay flat: the game's Paks folder has no subfolder
// semantics the engine should assume.
func (s *Synchronizer) CreateFolder(name string) (string, error) {
	return s.store.CreateFolder(name)
}

// DeleteFolder removes a pool subfolder. A non-empty folder is refused
// unless deleteContents is set.
func (s *Synchronizer) DeleteFolder(name string, deleteContents bool) error {
	return s.store.DeleteFolder(name, deleteContents)
}

// Organize gathers a loose triple in the available pool into a subfolder
// named after the mod. If the folder already holds the triple, the loose
// files are duplicates and are dropped instead.
func (s *Synchronizer) Organize(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	available := s.store.AvailableDir()
	mod, found, err := modfile.Find(available, false, name)
	if err != nil {
		return operr.New("organize", name, available, operr.ErrIOFailure, err)
	}
	if !found {
		return operr.New("organize", name, available, operr.ErrPathNotFound, nil)
	}

	folder := filepath.Join(available, backupstore.SanitizeDirName(name))
	if info, err := os.Stat(folder); err == nil && info.IsDir() {
		organized, foundInFolder, err := modfile.Find(folder, false, name)
		if err != nil {
			return operr.New("organize", name, folder, operr.ErrIOFailure, err)
		}
		if foundInFolder && organized.Complete() {
			logging.Debugf("Verbose: organize %s: folder already holds the set, dropping loose files\n", name)
			return s.removeSet(ctx, "organize", mod)
		}
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return operr.New("organize", name, folder, operr.ErrIOFailure, err)
	}
	return s.transfer(ctx, "organize", mod, folder)
}

// transfer implements the move: resolve the full set, reject collisions,
// copy, verify, then delete the sources. Cancellation is honored only
// between files, never mid-copy.
func (s *Synchronizer) transfer(ctx context.Context, op string, mod modfile.Mod, destDir string) error {
	if missing := mod.Missing(); len(missing) > 0 {
		return operr.New(op, mod.Name, mod.Dir, operr.ErrPartialFileSet,
			fmt.Errorf("missing %s", strings.Join(missing, ", ")))
	}

	// Collision pass before any byte moves. A destination file identical to
	// its source is a leftover from an interrupted run and is resumed, not
	// treated as a collision.
	type step struct {
		src, dst string
		skip     bool
	}
	steps := make([]step, 0, len(mod.Files))
	for _, src := range mod.Files {
		dst := filepath.Join(destDir, filepath.Base(src))
		st := step{src: src, dst: dst}
		if _, err := os.Stat(dst); err == nil {
			equal, eqErr := fsops.FilesEqual(src, dst)
			if eqErr != nil {
				return operr.New(op, mod.Name, dst, operr.ErrIOFailure, eqErr)
			}
			if !equal {
				return operr.New(op, mod.Name, dst, operr.ErrNameCollision, nil)
			}
			st.skip = true
		} else if !os.IsNotExist(err) {
			return operr.New(op, mod.Name, dst, operr.ErrIOFailure, err)
		}
		steps = append(steps, st)
	}

	var copied []string
	fail := func(cause error) error {
		for _, dst := range copied {
			_ = os.Remove(dst)
		}
		return cause
	}

	for _, st := range steps {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		if st.skip {
			logging.Debugf("Verbose: %s %s: resuming, %s already copied\n", op, mod.Name, filepath.Base(st.dst))
			continue
		}
		if err := fsops.CopyFile(st.src, st.dst); err != nil {
			return fail(operr.New(op, mod.Name, st.src, operr.ErrIOFailure, err))
		}
		copied = append(copied, st.dst)
	}

	for _, st := range steps {
		if err := fsops.VerifySize(st.src, st.dst); err != nil {
			return fail(operr.New(op, mod.Name, st.dst, operr.ErrIntegrityCheckFailed, err))
		}
	}

	// Every copy verified; removing the sources completes the move.
	for _, st := range steps {
		if err := os.Remove(st.src); err != nil && !os.IsNotExist(err) {
			return operr.New(op, mod.Name, st.src, operr.ErrIOFailure, err)
		}
	}
	s.cleanupSourceDir(mod)
	logging.Debugf("Verbose: %s %s: %d files moved to %s\n", op, mod.Name, len(steps), destDir)
	return nil
}

// removeSet deletes a mod's files from their current tree.
func (s *Synchronizer) removeSet(ctx context.Context, op string, mod modfile.Mod) error {
	for _, f := range mod.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return operr.New(op, mod.Name, f, operr.ErrIOFailure, err)
		}
	}
	s.cleanupSourceDir(mod)
	return nil
}

// cleanupSourceDir removes the mod's emptied subfolder. Tree roots stay.
func (s *Synchronizer) cleanupSourceDir(mod modfile.Mod) {
	if mod.Dir == s.paksDir || mod.Dir == s.store.AvailableDir() {
		return
	}
	entries, err := os.ReadDir(mod.Dir)
	if err != nil || len(entries) > 0 {
		return
	}
	_ = os.Remove(mod.Dir)
}
