package saves

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile %s: %v", name, err)
	}
	return path
}

func TestScanGroupsRelatedFiles(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	writeFile(t, tmp, "MW_AB12.sav", []byte("main"))
	writeFile(t, tmp, "MW_AB12.sav.fresh", []byte("fresh"))
	writeFile(t, tmp, "MW_AB12.00.bak", []byte("bak0"))
	writeFile(t, tmp, "MW_AB12.01.bak", []byte("bak1"))
	writeFile(t, tmp, "MW_AB12.sav.00.bad", []byte("bad"))
	writeFile(t, tmp, "MC_FF00.sav", []byte("char"))
	writeFile(t, tmp, "notes.txt", []byte("ignored"))

	groups, err := Scan(tmp)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}

	var world *Group
	for i := range groups {
		if groups[i].BaseName == "MW_AB12" {
			world = &groups[i]
		}
	}
	if world == nil {
		t.Fatalf("world group missing: %+v", groups)
	}
	if world.Kind != World {
		t.Fatalf("Kind=%v want world", world.Kind)
	}
	if len(world.Versions) != 5 {
		t.Fatalf("got %d versions, want 5", len(world.Versions))
	}

	// main first, then fresh, then backups by number, then bad.
	want := []VersionType{VersionMain, VersionFresh, VersionBackup, VersionBackup, VersionBad}
	for i, v := range world.Versions {
		if v.Type != want[i] {
			t.Fatalf("version %d type=%v want %v", i, v.Type, want[i])
		}
	}
	if world.Versions[2].Number != 0 || world.Versions[3].Number != 1 {
		t.Fatalf("backup numbers out of order: %+v", world.Versions)
	}

	// Unparseable contents fall back to the base name.
	if world.DisplayName != "MW_AB12" {
		t.Fatalf("DisplayName=%q want base name", world.DisplayName)
	}
	if world.Main() == nil {
		t.Fatalf("Main() should find the .sav version")
	}
}

func TestScanReportsOrphanBackups(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	writeFile(t, tmp, "MW_DEAD.01.bak", []byte("only backup left"))

	groups, err := Scan(tmp)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	if groups[0].BaseName != "MW_DEAD" {
		t.Fatalf("BaseName=%q", groups[0].BaseName)
	}
	if groups[0].Main() != nil {
		t.Fatalf("orphan group should have no main version")
	}
}

func TestScanRejectsNonHexBaseNames(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	// The game names saves with hex ids. A stray file that merely wears the
	// prefix is classified by none of the version rules, main included.
	writeFile(t, tmp, "MW_NOTHEX.sav", []byte("x"))
	writeFile(t, tmp, "MW_NOTHEX.sav.fresh", []byte("y"))
	writeFile(t, tmp, "MW_NOTHEX.01.bak", []byte("z"))
	writeFile(t, tmp, "MW_CAFE.sav", []byte("ok"))

	groups, err := Scan(tmp)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(groups) != 1 || groups[0].BaseName != "MW_CAFE" {
		t.Fatalf("groups=%+v want only MW_CAFE", groups)
	}
}

func TestScanMissingDirectory(t *testing.T) {
	t.Parallel()

	groups, err := Scan(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("missing directory should not error: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("got %d groups, want 0", len(groups))
	}
}

func TestScanSortsNewestFirst(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	older := writeFile(t, tmp, "MW_0001.sav", []byte("a"))
	newer := writeFile(t, tmp, "MW_0002.sav", []byte("b"))

	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}
	now := time.Now()
	if err := os.Chtimes(newer, now, now); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	groups, err := Scan(tmp)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if groups[0].BaseName != "MW_0002" || groups[1].BaseName != "MW_0001" {
		t.Fatalf("unexpected order: %s, %s", groups[0].BaseName, groups[1].BaseName)
	}
}

func TestFind(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	writeFile(t, tmp, "MW_BEEF.sav", []byte("x"))

	g, err := Find(tmp, "MW_BEEF")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if g == nil || g.BaseName != "MW_BEEF" {
		t.Fatalf("Find returned %+v", g)
	}

	missing, err := Find(tmp, "MW_FEED")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown base name, got %+v", missing)
	}
}
