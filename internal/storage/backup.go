package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Backup errors.
var (
	ErrBackupExists   = errors.New("backup already exists")
	ErrBackupNotFound = errors.New("backup not found")
	ErrInvalidTag     = errors.New("invalid backup tag")
	ErrInMemoryDB     = errors.New("in-memory databases cannot be backed up")
)

// BackupInfo describes one database snapshot.
type BackupInfo struct {
	CreatedAt     time.Time      `json:"created_at"`
	RowCounts     map[string]int `json:"row_counts"`
	ID            string         `json:"id"`
	Description   string         `json:"description"`
	FileSize      int64          `json:"file_size"`
	SchemaVersion int            `json:"schema_version"`
	IsAuto        bool           `json:"is_auto"`
}

const maxAutoBackups = 5

// BackupDir returns the directory snapshots are written to.
func (s *SQLiteStorage) BackupDir() string {
	return filepath.Join(filepath.Dir(s.dbPath), "backups")
}

// CreateBackup snapshots the database with VACUUM INTO. An empty tag is
// generated from the current time.
func (s *SQLiteStorage) CreateBackup(ctx context.Context, tag, description string) (*BackupInfo, error) {
	return s.createBackup(ctx, tag, description, false)
}

// AutoBackup snapshots the database before an operation named by prefix and
// keeps only the most recent automatic snapshots.
func (s *SQLiteStorage) AutoBackup(ctx context.Context, prefix string) (*BackupInfo, error) {
	tag := fmt.Sprintf("auto-%s-%s", prefix, time.Now().Format("2006-01-02-150405"))
	info, err := s.createBackup(ctx, tag, "Automatic backup before "+prefix, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create automatic backup: %w", err)
	}

	if err := s.pruneAutoBackups(); err != nil {
		slog.Warn("failed to prune automatic backups", "error", err)
	}
	return info, nil
}

func (s *SQLiteStorage) createBackup(ctx context.Context, tag, description string, auto bool) (*BackupInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if s.dbPath == ":memory:" {
		return nil, ErrInMemoryDB
	}
	if tag == "" {
		tag = "backup-" + time.Now().Format("2006-01-02-150405")
	}
	if strings.ContainsAny(tag, `/\'";`) || strings.Contains(tag, "..") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTag, tag)
	}

	dir := s.BackupDir()
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	dest, err := filepath.Abs(filepath.Join(dir, tag+".db"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve backup path: %w", err)
	}
	if _, err := os.Stat(dest); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrBackupExists, tag)
	}
	if strings.ContainsAny(dest, `'";`) {
		return nil, fmt.Errorf("%w: path %q", ErrInvalidTag, dest)
	}

	version, err := s.SchemaVersion(ctx)
	if err != nil {
		return nil, err
	}
	counts := s.rowCounts(ctx)

	// #nosec G201 - dest is checked for quote and separator characters above
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", dest)); err != nil {
		return nil, fmt.Errorf("failed to snapshot database: %w", err)
	}

	stat, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to stat backup: %w", err)
	}

	info := &BackupInfo{
		ID:            tag,
		CreatedAt:     time.Now(),
		Description:   description,
		FileSize:      stat.Size(),
		RowCounts:     counts,
		SchemaVersion: version,
		IsAuto:        auto,
	}
	if err := writeBackupMeta(filepath.Join(dir, tag+".meta.json"), info); err != nil {
		if rmErr := os.Remove(dest); rmErr != nil {
			slog.Error("failed to remove backup after metadata failure", "error", rmErr)
		}
		return nil, fmt.Errorf("failed to save backup metadata: %w", err)
	}
	return info, nil
}

// ListBackups returns the known snapshots, newest first.
func (s *SQLiteStorage) ListBackups() ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.BackupDir())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []BackupInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".meta.json") {
			continue
		}
		info, err := readBackupMeta(filepath.Join(s.BackupDir(), e.Name()))
		if err != nil {
			slog.Debug("skipping unreadable backup metadata", "file", e.Name(), "error", err)
			continue
		}
		backups = append(backups, *info)
	}

	slices.SortFunc(backups, func(a, b BackupInfo) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return backups, nil
}

// DeleteBackup removes a snapshot and its metadata.
func (s *SQLiteStorage) DeleteBackup(id string) error {
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidTag, id)
	}
	path := filepath.Join(s.BackupDir(), id+".db")
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrBackupNotFound, id)
		}
		return fmt.Errorf("failed to remove backup: %w", err)
	}
	if err := os.Remove(filepath.Join(s.BackupDir(), id+".meta.json")); err != nil {
		slog.Debug("failed to remove backup metadata", "id", id, "error", err)
	}
	return nil
}

func (s *SQLiteStorage) pruneAutoBackups() error {
	backups, err := s.ListBackups()
	if err != nil {
		return err
	}

	auto := 0
	for _, b := range backups {
		if !b.IsAuto {
			continue
		}
		auto++
		if auto > maxAutoBackups {
			if err := s.DeleteBackup(b.ID); err != nil {
				slog.Debug("failed to delete old automatic backup", "id", b.ID, "error", err)
			}
		}
	}
	return nil
}

func (s *SQLiteStorage) rowCounts(ctx context.Context) map[string]int {
	// Explicit queries per table; table names are never interpolated.
	queries := map[string]string{
		"parcel_attributes":   "SELECT COUNT(*) FROM parcel_attributes",
		"variety_colors":      "SELECT COUNT(*) FROM variety_colors",
		"weather_credentials": "SELECT COUNT(*) FROM weather_credentials",
		"varieties":           "SELECT COUNT(*) FROM varieties",
	}

	counts := make(map[string]int, len(queries))
	for table, q := range queries {
		var n int
		if err := s.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
			// Older schemas may lack the table.
			n = 0
		}
		counts[table] = n
	}
	return counts
}

func writeBackupMeta(path string, info *BackupInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readBackupMeta(path string) (*BackupInfo, error) {
	// #nosec G304 - path is built from the backup directory listing
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var info BackupInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// TotalRows sums the row counts of a backup.
func (b BackupInfo) TotalRows() int {
	total := 0
	for _, n := range b.RowCounts {
		total += n
	}
	return total
}
