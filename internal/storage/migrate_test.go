// ABOUTME: Tests for data migration between storage backends.
// ABOUTME: Covers sqlite-to-badger, badger-to-sqlite, and directory checks.
package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMigrateDataSQLiteToBadger(t *testing.T) {
	src := setupTestDB(t)
	s := seedExportData(t, src)
	dst := setupTestKV(t)

	summary, err := MigrateData(src, dst)
	if err != nil {
		t.Fatalf("MigrateData failed: %v", err)
	}

	if summary.Subjects != 2 || summary.HeartRates != 2 || summary.Observations != 2 || summary.Activities != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}

	hrs, err := dst.ListHeartRates(s.ID, nil, 0)
	if err != nil {
		t.Fatalf("ListHeartRates from dst failed: %v", err)
	}
	if len(hrs) != 2 || hrs[0].HeartRate != 100 || hrs[1].HeartRate != 110 {
		t.Errorf("heart rates not preserved: %v", heartRates(hrs))
	}
}

func TestMigrateDataBadgerToSQLite(t *testing.T) {
	src := setupTestKV(t)
	s := seedExportData(t, src)
	dst := setupTestDB(t)

	if _, err := MigrateData(src, dst); err != nil {
		t.Fatalf("MigrateData failed: %v", err)
	}

	got, err := dst.GetSubject(s.ID.String())
	if err != nil {
		t.Fatalf("GetSubject from dst failed: %v", err)
	}
	if got.LastUpdate == nil || got.WExp != 40 {
		t.Errorf("subject state not preserved: %+v", got)
	}

	acts, err := dst.ListActivities(nil, 0)
	if err != nil {
		t.Fatalf("ListActivities from dst failed: %v", err)
	}
	if len(acts) != 1 || acts[0].PeerID != s.ID {
		t.Errorf("activities not preserved: %+v", acts)
	}
}

func TestMigrateDataIntoNonEmptyFails(t *testing.T) {
	src := setupTestDB(t)
	seedExportData(t, src)
	dst := setupTestDB(t)

	if _, err := MigrateData(src, dst); err != nil {
		t.Fatalf("first MigrateData failed: %v", err)
	}
	if _, err := MigrateData(src, dst); err == nil {
		t.Error("expected duplicate subjects to fail the second migration")
	}
}

func TestIsDirNonEmpty(t *testing.T) {
	emptyDir := t.TempDir()

	nonEmpty, err := IsDirNonEmpty(emptyDir)
	if err != nil {
		t.Fatalf("IsDirNonEmpty failed: %v", err)
	}
	if nonEmpty {
		t.Error("Expected empty directory to return false")
	}

	if err := os.WriteFile(filepath.Join(emptyDir, "test.txt"), []byte("hello"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	nonEmpty, err = IsDirNonEmpty(emptyDir)
	if err != nil {
		t.Fatalf("IsDirNonEmpty failed: %v", err)
	}
	if !nonEmpty {
		t.Error("Expected non-empty directory to return true")
	}

	nonEmpty, err = IsDirNonEmpty("/nonexistent/path")
	if err != nil {
		t.Fatalf("IsDirNonEmpty for nonexistent should not error: %v", err)
	}
	if nonEmpty {
		t.Error("Expected non-existent directory to return false")
	}
}
