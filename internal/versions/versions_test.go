package versions

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/moria-tools/moria-manager/internal/backupstore"
	"github.com/moria-tools/moria-manager/internal/operr"
)

func newManager(t *testing.T) (*Manager, string) {
	t.Helper()
	tmp := t.TempDir()
	store, err := backupstore.New(filepath.Join(tmp, "GameBackups"))
	if err != nil {
		t.Fatalf("backupstore.New failed: %v", err)
	}
	saveDir := filepath.Join(tmp, "SaveGamesSteam")
	if err := os.MkdirAll(saveDir, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	return New(saveDir, store), saveDir
}

func writeSave(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestBackupOne(t *testing.T) {
	t.Parallel()

	m, saveDir := newManager(t)
	writeSave(t, saveDir, "MW_AAA111.sav", "world bytes v1")

	b, err := m.BackupOne("MW_AAA111")
	if err != nil {
		t.Fatalf("BackupOne failed: %v", err)
	}
	if b.WorldID != "MW_AAA111" {
		t.Fatalf("WorldID=%q", b.WorldID)
	}
	if len(b.Files) != 1 || b.Files[0].Name != "MW_AAA111.sav" {
		t.Fatalf("Files=%+v", b.Files)
	}
	stored := filepath.Join(m.store.BackupDir(b.WorldID, b.Stamp), "MW_AAA111.sav")
	data, err := os.ReadFile(stored)
	if err != nil || string(data) != "world bytes v1" {
		t.Fatalf("stored copy wrong: %q err=%v", data, err)
	}
}

func TestBackupOneUnknownWorld(t *testing.T) {
	t.Parallel()

	m, _ := newManager(t)
	_, err := m.BackupOne("MW_FFFFFF")
	if !errors.Is(err, operr.ErrPathNotFound) {
		t.Fatalf("err=%v want ErrPathNotFound", err)
	}
}

func TestBackupOneNoMainVersion(t *testing.T) {
	t.Parallel()

	m, saveDir := newManager(t)
	writeSave(t, saveDir, "MW_BBB222.01.bak", "rotation only")

	_, err := m.BackupOne("MW_BBB222")
	if !errors.Is(err, operr.ErrPathNotFound) {
		t.Fatalf("err=%v want ErrPathNotFound", err)
	}
}

func TestBackupAll(t *testing.T) {
	t.Parallel()

	m, saveDir := newManager(t)
	writeSave(t, saveDir, "MW_AAA111.sav", "world one")
	writeSave(t, saveDir, "MW_BBB222.sav", "world two")
	writeSave(t, saveDir, "MC_CCC333.sav", "a dwarf")
	writeSave(t, saveDir, "MW_DDD444.01.bak", "no main, skipped")

	var calls atomic.Int64
	var last Progress
	results, err := m.BackupAll(context.Background(), 2, func(p Progress) {
		calls.Add(1)
		last = p
	})
	if err != nil {
		t.Fatalf("BackupAll failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results=%d want 3", len(results))
	}
	for _, r := range results {
		if r.Err != nil {
			t.Fatalf("backup of %s failed: %v", r.WorldID, r.Err)
		}
		if r.Backup == nil {
			t.Fatalf("backup of %s returned no record", r.WorldID)
		}
	}
	if calls.Load() != 3 || last.Total != 3 {
		t.Fatalf("progress calls=%d last=%+v", calls.Load(), last)
	}
}

func TestBackupAllEmptyDir(t *testing.T) {
	t.Parallel()

	m, _ := newManager(t)
	results, err := m.BackupAll(context.Background(), 4, nil)
	if err != nil {
		t.Fatalf("BackupAll failed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("results=%+v want none", results)
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	t.Parallel()

	m, saveDir := newManager(t)
	live := writeSave(t, saveDir, "MW_AAA111.sav", "good state")

	b, err := m.BackupOne("MW_AAA111")
	if err != nil {
		t.Fatalf("BackupOne failed: %v", err)
	}

	// The live file gets corrupted, then restored.
	if err := os.WriteFile(live, []byte("corrupted"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := m.Restore("MW_AAA111", b.Stamp, false); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	data, err := os.ReadFile(live)
	if err != nil || string(data) != "good state" {
		t.Fatalf("restored file wrong: %q err=%v", data, err)
	}
}

func TestRestoreEarlierBackupKeepsLater(t *testing.T) {
	t.Parallel()

	m, saveDir := newManager(t)
	live := writeSave(t, saveDir, "MW_AAA111.sav", "v1")

	b1, err := m.BackupOne("MW_AAA111")
	if err != nil {
		t.Fatalf("BackupOne failed: %v", err)
	}
	if err := os.WriteFile(live, []byte("v2"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	b2, err := m.BackupOne("MW_AAA111")
	if err != nil {
		t.Fatalf("BackupOne failed: %v", err)
	}
	if err := os.WriteFile(live, []byte("v3"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if err := m.Restore("MW_AAA111", b1.Stamp, false); err != nil {
		t.Fatalf("Restore of first backup failed: %v", err)
	}
	data, err := os.ReadFile(live)
	if err != nil || string(data) != "v1" {
		t.Fatalf("live file=%q err=%v want v1", data, err)
	}

	// The second backup stays intact and restorable.
	stored := filepath.Join(m.store.BackupDir("MW_AAA111", b2.Stamp), "MW_AAA111.sav")
	data, err = os.ReadFile(stored)
	if err != nil || string(data) != "v2" {
		t.Fatalf("second backup copy=%q err=%v want v2", data, err)
	}
	if err := m.Restore("MW_AAA111", b2.Stamp, false); err != nil {
		t.Fatalf("Restore of second backup failed: %v", err)
	}
	data, err = os.ReadFile(live)
	if err != nil || string(data) != "v2" {
		t.Fatalf("live file=%q err=%v want v2", data, err)
	}
}

func TestRestoreMultiFileReplacesAllCleanly(t *testing.T) {
	t.Parallel()

	m, saveDir := newManager(t)
	main := writeSave(t, saveDir, "MW_AAA111.sav", "main v1")
	fresh := writeSave(t, saveDir, "MW_AAA111.sav.fresh", "fresh v1")

	b, err := m.store.WriteBackup("MW_AAA111", []string{main, fresh}, "both versions")
	if err != nil {
		t.Fatalf("WriteBackup failed: %v", err)
	}

	if err := os.WriteFile(main, []byte("main v2"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := os.WriteFile(fresh, []byte("fresh v2"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if err := m.Restore("MW_AAA111", b.Stamp, false); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	data, err := os.ReadFile(main)
	if err != nil || string(data) != "main v1" {
		t.Fatalf("main file=%q err=%v want main v1", data, err)
	}
	data, err = os.ReadFile(fresh)
	if err != nil || string(data) != "fresh v1" {
		t.Fatalf("fresh file=%q err=%v want fresh v1", data, err)
	}

	// No staging or parked files survive a successful swap.
	entries, err := os.ReadDir(saveDir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".restore") || strings.HasSuffix(e.Name(), ".prev") {
			t.Fatalf("leftover work file %s", e.Name())
		}
	}
	if len(entries) != 2 {
		t.Fatalf("entries=%v want the two save files", entries)
	}
}

func TestRestoreBacksUpCurrentFirst(t *testing.T) {
	t.Parallel()

	m, saveDir := newManager(t)
	live := writeSave(t, saveDir, "MW_AAA111.sav", "v1")

	b, err := m.BackupOne("MW_AAA111")
	if err != nil {
		t.Fatalf("BackupOne failed: %v", err)
	}
	if err := os.WriteFile(live, []byte("v2"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if err := m.Restore("MW_AAA111", b.Stamp, true); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	backups, err := m.store.ListBackups("MW_AAA111")
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != 2 {
		t.Fatalf("backups=%d want 2 (original plus pre-restore)", len(backups))
	}
	if backups[0].Description != "auto-backup before restore" {
		t.Fatalf("newest backup description=%q", backups[0].Description)
	}
}

func TestRestoreFailsIntegrityCheck(t *testing.T) {
	t.Parallel()

	m, saveDir := newManager(t)
	live := writeSave(t, saveDir, "MW_AAA111.sav", "intact live copy")

	b, err := m.BackupOne("MW_AAA111")
	if err != nil {
		t.Fatalf("BackupOne failed: %v", err)
	}

	// Truncate the stored file behind the manifest's back.
	stored := filepath.Join(m.store.BackupDir(b.WorldID, b.Stamp), "MW_AAA111.sav")
	if err := os.WriteFile(stored, nil, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	err = m.Restore("MW_AAA111", b.Stamp, false)
	if !errors.Is(err, operr.ErrIntegrityCheckFailed) {
		t.Fatalf("err=%v want ErrIntegrityCheckFailed", err)
	}
	data, readErr := os.ReadFile(live)
	if readErr != nil || string(data) != "intact live copy" {
		t.Fatalf("live file must be untouched: %q err=%v", data, readErr)
	}
}

func TestRestoreUnknownBackup(t *testing.T) {
	t.Parallel()

	m, _ := newManager(t)
	err := m.Restore("MW_AAA111", "20260101_000000", false)
	if !errors.Is(err, operr.ErrPathNotFound) {
		t.Fatalf("err=%v want ErrPathNotFound", err)
	}
}

func TestDeleteWorld(t *testing.T) {
	t.Parallel()

	m, saveDir := newManager(t)
	writeSave(t, saveDir, "MW_AAA111.sav", "main")
	writeSave(t, saveDir, "MW_AAA111.sav.fresh", "fresh")
	writeSave(t, saveDir, "MW_AAA111.01.bak", "rotation")

	if _, err := m.BackupOne("MW_AAA111"); err != nil {
		t.Fatalf("BackupOne failed: %v", err)
	}

	if err := m.DeleteWorld("MW_AAA111", false); err != nil {
		t.Fatalf("DeleteWorld failed: %v", err)
	}
	backups, err := m.store.ListBackups("MW_AAA111")
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != 0 {
		t.Fatalf("backups remain: %+v", backups)
	}
	// Live files survive without purgeLive.
	if _, err := os.Stat(filepath.Join(saveDir, "MW_AAA111.sav")); err != nil {
		t.Fatalf("live save should survive: %v", err)
	}
}

func TestDeleteWorldPurgeLive(t *testing.T) {
	t.Parallel()

	m, saveDir := newManager(t)
	writeSave(t, saveDir, "MW_AAA111.sav", "main")
	writeSave(t, saveDir, "MW_AAA111.sav.fresh", "fresh")
	writeSave(t, saveDir, "MW_AAA111.01.bak", "rotation")
	writeSave(t, saveDir, "MW_AAA111.sav.01.bad", "bad copy")
	writeSave(t, saveDir, "MW_BBB222.sav", "other world")

	if err := m.DeleteWorld("MW_AAA111", true); err != nil {
		t.Fatalf("DeleteWorld failed: %v", err)
	}
	entries, err := os.ReadDir(saveDir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "MW_BBB222.sav" {
		t.Fatalf("entries=%v want only MW_BBB222.sav", entries)
	}
}
