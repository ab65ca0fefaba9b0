// Package versions manages point-in-time backups of save files and
// restores them. Backups go through the backup store; restores replace
// live files only after every staged copy has been verified.
package versions

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/moria-tools/moria-manager/internal/backupstore"
	"github.com/moria-tools/moria-manager/internal/fsops"
	"github.com/moria-tools/moria-manager/internal/logging"
	"github.com/moria-tools/moria-manager/internal/operr"
	"github.com/moria-tools/moria-manager/internal/saves"
)

// Manager ties a live save directory to a backup store.
type Manager struct {
	saveDir string
	store   *backupstore.Store

	// AutoBackupBeforeRestore backs up the live files before any restore
	// overwrites them, in addition to per-call requests.
	AutoBackupBeforeRestore bool
}

func New(saveDir string, store *backupstore.Store) *Manager {
	return &Manager{saveDir: saveDir, store: store}
}

// Worlds lists the save groups in the live save directory.
func (m *Manager) Worlds() ([]saves.Group, error) {
	return saves.Scan(m.saveDir)
}

// BackupOne backs up the main save file of one world or character. The
// parsed display name is recorded as the backup description.
func (m *Manager) BackupOne(worldID string) (*backupstore.Backup, error) {
	return m.backupMain(worldID, "")
}

func (m *Manager) backupMain(worldID, description string) (*backupstore.Backup, error) {
	group, err := saves.Find(m.saveDir, worldID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, operr.New("backup", worldID, m.saveDir, operr.ErrPathNotFound, nil)
	}
	main := group.Main()
	if main == nil {
		return nil, operr.New("backup", worldID, m.saveDir, operr.ErrPathNotFound,
			fmt.Errorf("no main save file"))
	}
	if description == "" {
		description = group.DisplayName
	}
	return m.store.WriteBackup(worldID, []string{main.Path}, description)
}

// Result reports the outcome of one world's backup within a batch.
type Result struct {
	WorldID     string
	DisplayName string
	Backup      *backupstore.Backup
	Err         error
}

// Progress reports batch completion after each finished backup.
type Progress struct {
	Completed int64
	Total     int64
}

// BackupAll backs up every group with a main save file, concurrently.
// It calls onProgress after each completed backup. Results keep the
// scan order of the groups.
func (m *Manager) BackupAll(ctx context.Context, concurrency int, onProgress func(Progress)) ([]Result, error) {
	if concurrency < 1 {
		concurrency = 4
	}

	groups, err := m.Worlds()
	if err != nil {
		return nil, err
	}
	var targets []saves.Group
	for _, g := range groups {
		if g.Main() != nil {
			targets = append(targets, g)
		}
	}

	total := int64(len(targets))
	var completed atomic.Int64

	results := make([]Result, len(targets))
	work := make(chan int, len(targets))

	for i := range targets {
		work <- i
	}
	close(work)

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				g := targets[i]
				res := Result{WorldID: g.BaseName, DisplayName: g.DisplayName}
				if err := ctx.Err(); err != nil {
					res.Err = err
				} else {
					res.Backup, res.Err = m.store.WriteBackup(g.BaseName, []string{g.Main().Path}, g.DisplayName)
				}
				results[i] = res

				n := completed.Add(1)
				if onProgress != nil {
					onProgress(Progress{Completed: n, Total: total})
				}
			}
		}()
	}

	wg.Wait()
	return results, nil
}

// Restore copies a backup set's files back into the live save directory.
// The stored files are verified against the manifest before anything is
// overwritten, then every file is staged beside its target and the
// replacements happen rename by rename.
func (m *Manager) Restore(worldID, stamp string, backupCurrent bool) error {
	backup, err := m.store.GetBackup(worldID, stamp)
	if err != nil {
		return err
	}

	dir := m.store.BackupDir(worldID, stamp)
	for _, f := range backup.Files {
		info, err := os.Stat(filepath.Join(dir, f.Name))
		if err != nil {
			return operr.New("restore", worldID, filepath.Join(dir, f.Name), operr.ErrIntegrityCheckFailed, err)
		}
		if info.Size() == 0 || info.Size() != f.Size {
			return operr.New("restore", worldID, filepath.Join(dir, f.Name), operr.ErrIntegrityCheckFailed,
				fmt.Errorf("size %d, manifest says %d", info.Size(), f.Size))
		}
	}

	if backupCurrent || m.AutoBackupBeforeRestore {
		if _, err := m.backupMain(worldID, "auto-backup before restore"); err != nil && !errors.Is(err, operr.ErrPathNotFound) {
			return fmt.Errorf("backing up current save before restore: %w", err)
		}
	}

	// Stage every copy first so a failure leaves the live files untouched.
	type step struct{ staged, dst string }
	steps := make([]step, 0, len(backup.Files))
	cleanup := func() {
		for _, st := range steps {
			_ = os.Remove(st.staged)
		}
	}
	for _, f := range backup.Files {
		src := filepath.Join(dir, f.Name)
		dst := filepath.Join(m.saveDir, f.Name)
		staged := dst + ".restore"
		if err := fsops.CopyFile(src, staged); err != nil {
			cleanup()
			return operr.New("restore", worldID, src, operr.ErrIOFailure, err)
		}
		if err := fsops.VerifySize(src, staged); err != nil {
			cleanup()
			return operr.New("restore", worldID, staged, operr.ErrIntegrityCheckFailed, err)
		}
		steps = append(steps, step{staged: staged, dst: dst})
	}
	// Each live file is parked beside its replacement before the swap, so a
	// failed rename can put every already-replaced file back.
	type swapped struct {
		dst, parked string
		hadLive     bool
	}
	var done []swapped
	undo := func() {
		for i := len(done) - 1; i >= 0; i-- {
			sw := done[i]
			if sw.hadLive {
				_ = os.Rename(sw.parked, sw.dst)
			} else {
				_ = os.Remove(sw.dst)
			}
		}
		cleanup()
	}
	for _, st := range steps {
		sw := swapped{dst: st.dst, parked: st.dst + ".prev"}
		if _, err := os.Stat(st.dst); err == nil {
			if err := os.Rename(st.dst, sw.parked); err != nil {
				undo()
				return operr.New("restore", worldID, st.dst, operr.ErrIOFailure, err)
			}
			sw.hadLive = true
		}
		if err := os.Rename(st.staged, st.dst); err != nil {
			if sw.hadLive {
				_ = os.Rename(sw.parked, sw.dst)
			}
			undo()
			return operr.New("restore", worldID, st.dst, operr.ErrIOFailure, err)
		}
		done = append(done, sw)
	}
	for _, sw := range done {
		if sw.hadLive {
			_ = os.Remove(sw.parked)
		}
	}
	logging.Infof("Restored %s from backup %s (%d files)\n", worldID, stamp, len(steps))
	return nil
}

// DeleteBackup removes one backup set.
func (m *Manager) DeleteBackup(worldID, stamp string) error {
	return m.store.DeleteBackup(worldID, stamp)
}

// DeleteWorld removes every backup of a world and, when purgeLive is set,
// its live save files too (main, fresh, rotation and bad copies alike).
func (m *Manager) DeleteWorld(worldID string, purgeLive bool) error {
	if err := m.store.DeleteWorldBackups(worldID); err != nil && !errors.Is(err, operr.ErrPathNotFound) {
		return err
	}
	if !purgeLive {
		return nil
	}
	group, err := saves.Find(m.saveDir, worldID)
	if err != nil {
		return err
	}
	if group == nil {
		return nil
	}
	for _, v := range group.Versions {
		if err := os.Remove(v.Path); err != nil && !os.IsNotExist(err) {
			return operr.New("delete world", worldID, v.Path, operr.ErrIOFailure, err)
		}
	}
	logging.Infof("Deleted %d live files for %s\n", len(group.Versions), worldID)
	return nil
}
