package backupstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/moria-tools/moria-manager/internal/operr"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "GameBackups"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func writeSource(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestNewCreatesLayout(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	for _, dir := range []string{s.AvailableDir(), filepath.Join(s.Root(), "Backups")} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("layout dir %s missing: %v", dir, err)
		}
	}
}

func TestWriteAndListBackups(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	src := t.TempDir()
	save := writeSource(t, src, "MW_AB12.sav", []byte("savegame bytes"))

	b, err := s.WriteBackup("MW_AB12", []string{save}, "Dwarrowdelf")
	if err != nil {
		t.Fatalf("WriteBackup failed: %v", err)
	}
	if b.ID == "" || b.Stamp == "" {
		t.Fatalf("backup missing identity: %+v", b)
	}
	if len(b.Files) != 1 || b.Files[0].Name != "MW_AB12.sav" {
		t.Fatalf("unexpected files: %+v", b.Files)
	}

	listed, err := s.ListBackups("MW_AB12")
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != b.ID {
		t.Fatalf("ListBackups=%+v", listed)
	}
	if listed[0].Description != "Dwarrowdelf" {
		t.Fatalf("description=%q", listed[0].Description)
	}

	// Stored file is a copy: removing the source must not touch the backup.
	if err := os.Remove(save); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	stored := filepath.Join(s.BackupDir("MW_AB12", b.Stamp), "MW_AB12.sav")
	got, err := os.ReadFile(stored)
	if err != nil || string(got) != "savegame bytes" {
		t.Fatalf("stored copy bad: %q err=%v", got, err)
	}
}

func TestWriteBackupSameSecondGetsUniqueStamp(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	save := writeSource(t, t.TempDir(), "MW_0001.sav", []byte("x"))

	a, err := s.WriteBackup("MW_0001", []string{save}, "")
	if err != nil {
		t.Fatalf("WriteBackup failed: %v", err)
	}
	b, err := s.WriteBackup("MW_0001", []string{save}, "")
	if err != nil {
		t.Fatalf("WriteBackup failed: %v", err)
	}
	if a.Stamp == b.Stamp {
		t.Fatalf("stamps collided: %s", a.Stamp)
	}
}

func TestWriteBackupMissingSource(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	_, err := s.WriteBackup("MW_0002", []string{filepath.Join(t.TempDir(), "gone.sav")}, "")
	if !errors.Is(err, operr.ErrPathNotFound) {
		t.Fatalf("err=%v want ErrPathNotFound", err)
	}
	// Nothing half-written left visible.
	backups, err := s.ListBackups("MW_0002")
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != 0 {
		t.Fatalf("expected no backups, got %+v", backups)
	}
}

func TestListBackupsIgnoresIncompleteSets(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	// A directory with data but no manifest: an interrupted write.
	dir := s.BackupDir("MW_0003", "20260101_120000")
	writeSource(t, dir, "MW_0003.sav", []byte("half"))
	// And a leftover staging directory.
	if err := os.MkdirAll(filepath.Join(filepath.Dir(dir), ".tmp-20260101_130000"), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	backups, err := s.ListBackups("MW_0003")
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != 0 {
		t.Fatalf("incomplete sets must be invisible, got %+v", backups)
	}
}

func TestListBackupsNewestFirst(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	save := writeSource(t, t.TempDir(), "MW_0004.sav", []byte("x"))

	first, err := s.WriteBackup("MW_0004", []string{save}, "")
	if err != nil {
		t.Fatalf("WriteBackup failed: %v", err)
	}
	second, err := s.WriteBackup("MW_0004", []string{save}, "")
	if err != nil {
		t.Fatalf("WriteBackup failed: %v", err)
	}

	backups, err := s.ListBackups("MW_0004")
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != 2 {
		t.Fatalf("got %d backups", len(backups))
	}
	if backups[0].ID != second.ID || backups[1].ID != first.ID {
		t.Fatalf("not newest first: %+v", backups)
	}
}

func TestDeleteBackup(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	save := writeSource(t, t.TempDir(), "MW_0005.sav", []byte("x"))
	b, err := s.WriteBackup("MW_0005", []string{save}, "")
	if err != nil {
		t.Fatalf("WriteBackup failed: %v", err)
	}

	if err := s.DeleteBackup("MW_0005", b.Stamp); err != nil {
		t.Fatalf("DeleteBackup failed: %v", err)
	}
	backups, _ := s.ListBackups("MW_0005")
	if len(backups) != 0 {
		t.Fatalf("backup still listed after delete")
	}

	err = s.DeleteBackup("MW_0005", b.Stamp)
	if !errors.Is(err, operr.ErrPathNotFound) {
		t.Fatalf("second delete err=%v want ErrPathNotFound", err)
	}
}

func TestDeleteWorldBackups(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	save := writeSource(t, t.TempDir(), "MW_0006.sav", []byte("x"))
	if _, err := s.WriteBackup("MW_0006", []string{save}, ""); err != nil {
		t.Fatalf("WriteBackup failed: %v", err)
	}
	if _, err := s.WriteBackup("MW_0006", []string{save}, ""); err != nil {
		t.Fatalf("WriteBackup failed: %v", err)
	}

	if err := s.DeleteWorldBackups("MW_0006"); err != nil {
		t.Fatalf("DeleteWorldBackups failed: %v", err)
	}
	worlds, err := s.ListWorlds()
	if err != nil {
		t.Fatalf("ListWorlds failed: %v", err)
	}
	for _, w := range worlds {
		if w == "MW_0006" {
			t.Fatalf("world still listed after delete")
		}
	}
}

func TestDeleteAvailableMod(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	sub := filepath.Join(s.AvailableDir(), "weapons")
	for _, ext := range []string{".pak", ".ucas", ".utoc"} {
		writeSource(t, sub, "sword"+ext, []byte(ext))
	}

	if err := s.DeleteAvailableMod("sword"); err != nil {
		t.Fatalf("DeleteAvailableMod failed: %v", err)
	}
	mods, err := s.ListAvailableMods()
	if err != nil {
		t.Fatalf("ListAvailableMods failed: %v", err)
	}
	if len(mods) != 0 {
		t.Fatalf("mod still listed: %+v", mods)
	}
	// Emptied subfolder is cleaned up.
	if _, err := os.Stat(sub); !os.IsNotExist(err) {
		t.Fatalf("empty subfolder should be removed")
	}

	err = s.DeleteAvailableMod("sword")
	if !errors.Is(err, operr.ErrPathNotFound) {
		t.Fatalf("err=%v want ErrPathNotFound", err)
	}
}

func TestFolders(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	dir, err := s.CreateFolder(`ui: "dark"`)
	if err != nil {
		t.Fatalf("CreateFolder failed: %v", err)
	}
	if filepath.Base(dir) != "ui_ _dark_" {
		t.Fatalf("sanitized folder name=%q", filepath.Base(dir))
	}

	writeSource(t, dir, "theme.pak", []byte("x"))

	err = s.DeleteFolder(`ui: "dark"`, false)
	if !errors.Is(err, operr.ErrNameCollision) {
		t.Fatalf("non-empty folder delete err=%v", err)
	}
	if err := s.DeleteFolder(`ui: "dark"`, true); err != nil {
		t.Fatalf("DeleteFolder with contents failed: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("folder should be gone")
	}
}

func TestSanitizeDirName(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{"My World", "My World"},
		{`a<b>c:d"e/f\g|h?i*j`, "a_b_c_d_e_f_g_h_i_j"},
		{"  .dots. ", "dots"},
		{"", "Unknown"},
		{"...", "Unknown"},
	}
	for _, c := range cases {
		if got := SanitizeDirName(c.in); got != c.want {
			t.Fatalf("SanitizeDirName(%q)=%q want %q", c.in, got, c.want)
		}
	}
}
