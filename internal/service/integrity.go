package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/saadjs/kcaldebt/internal/ledger"
	"github.com/saadjs/kcaldebt/internal/model"
)

type BackupInfo struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
	SizeBytes int64     `json:"size_bytes"`
}

type DoctorReport struct {
	ArchiveOverlaps      int `json:"archive_overlaps"`
	ArchiveTotalMismatch int `json:"archive_total_mismatch"`
	StrandedEntries      int `json:"stranded_entries"`
	DuplicateCheckIns    int `json:"duplicate_check_ins"`
	StaleCredits         int `json:"stale_credits"`
	FixedArchives        int `json:"fixed_archives,omitempty"`
	FixedCredits         int `json:"fixed_credits,omitempty"`
}

func (r DoctorReport) Healthy() bool {
	return r.ArchiveOverlaps == 0 && r.ArchiveTotalMismatch == 0 && r.StrandedEntries == 0 && r.DuplicateCheckIns == 0 && r.StaleCredits == 0
}

// CreateBackup writes a consistent copy of the open database to outPath with
// a .sha256 sidecar.
func CreateBackup(ctx context.Context, sqldb *sql.DB, outPath string) (BackupInfo, error) {
	if strings.TrimSpace(outPath) == "" {
		return BackupInfo{}, fmt.Errorf("backup output path is required")
	}
	if _, err := os.Stat(outPath); err == nil {
		return BackupInfo{}, fmt.Errorf("backup %s already exists", outPath)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return BackupInfo{}, fmt.Errorf("create backup directory: %w", err)
	}
	if _, err := sqldb.ExecContext(ctx, `VACUUM INTO ?`, outPath); err != nil {
		return BackupInfo{}, fmt.Errorf("write backup: %w", err)
	}
	checksum, err := fileSHA256(outPath)
	if err != nil {
		return BackupInfo{}, err
	}
	if err := os.WriteFile(outPath+".sha256", []byte(checksum+"\n"), 0o644); err != nil {
		return BackupInfo{}, fmt.Errorf("write checksum file: %w", err)
	}
	st, err := os.Stat(outPath)
	if err != nil {
		return BackupInfo{}, fmt.Errorf("stat backup: %w", err)
	}
	return BackupInfo{Path: outPath, Checksum: checksum, CreatedAt: st.ModTime(), SizeBytes: st.Size()}, nil
}

// RestoreBackup verifies the sidecar checksum when present and copies the
// backup over dbPath.
func RestoreBackup(backupPath, dbPath string, force bool) error {
	if strings.TrimSpace(backupPath) == "" || strings.TrimSpace(dbPath) == "" {
		return fmt.Errorf("backup path and db path are required")
	}
	if !force {
		if _, err := os.Stat(dbPath); err == nil {
			return fmt.Errorf("target db already exists; use --force to overwrite")
		}
	}
	if expected, err := os.ReadFile(backupPath + ".sha256"); err == nil {
		actual, err := fileSHA256(backupPath)
		if err != nil {
			return err
		}
		if strings.TrimSpace(string(expected)) != actual {
			return fmt.Errorf("backup checksum mismatch")
		}
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}
	return copyFile(backupPath, dbPath)
}

func ListBackups(dir string) ([]BackupInfo, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}
	out := make([]BackupInfo, 0)
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".db") {
			continue
		}
		full := filepath.Join(dir, f.Name())
		st, err := os.Stat(full)
		if err != nil {
			continue
		}
		checksum := ""
		if b, err := os.ReadFile(full + ".sha256"); err == nil {
			checksum = strings.TrimSpace(string(b))
		}
		out = append(out, BackupInfo{Path: full, Checksum: checksum, CreatedAt: st.ModTime(), SizeBytes: st.Size()})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// RunDoctor checks the ledger invariants. With fix it reruns the cascade
// over the whole history, which absorbs stranded entries, recomputes archive
// totals and reprices stale credits. Overlaps and duplicate check-ins are
// only reported.
func (e *Engine) RunDoctor(ctx context.Context, fix bool) (DoctorReport, error) {
	h, err := loadHistory(ctx, e.store)
	if err != nil {
		return DoctorReport{}, storageErr(err)
	}
	report := DoctorReport{}

	for i, a := range h.archives {
		for _, b := range h.archives[i+1:] {
			if a.Overlaps(b.StartDate, b.EndDate) {
				report.ArchiveOverlaps++
			}
		}
		if sumKCal(a.Entries) != a.TotalBalance {
			report.ArchiveTotalMismatch++
		}
		for _, entry := range h.live {
			if a.Contains(entry.Timestamp) {
				report.StrandedEntries++
			}
		}
	}

	savedPerDay := map[ledger.DayKey]int{}
	for _, c := range h.checkIns {
		if c.IsSaved {
			savedPerDay[e.day(c.Timestamp)]++
		}
	}
	for _, n := range savedPerDay {
		if n > 1 {
			report.DuplicateCheckIns += n - 1
		}
	}

	stale, err := e.staleCredits(h)
	if err != nil {
		return report, err
	}
	report.StaleCredits = stale

	if fix && (report.ArchiveTotalMismatch > 0 || report.StrandedEntries > 0 || report.StaleCredits > 0) {
		cr, err := e.RecalculateAll(ctx)
		if err != nil {
			return report, err
		}
		report.FixedArchives = cr.ArchivesUpdated
		report.FixedCredits = len(cr.Corrections)
	}
	return report, nil
}

// staleCredits counts credits whose stored amount or tag disagrees with a
// fresh pricing. It settles every credit day in memory without writing.
func (e *Engine) staleCredits(h history) (int, error) {
	agg := e.aggregate(h)
	entries := h.entries()
	byDay := make(map[ledger.DayKey][]*model.LogEntry)
	for i := range entries {
		if entries[i].IsCredit() {
			d := e.day(entries[i].Timestamp)
			byDay[d] = append(byDay[d], &entries[i])
		}
	}
	days := make([]ledger.DayKey, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	stale := 0
	for _, day := range days {
		credits := byDay[day]
		multiplier, amounts, err := e.settleDay(agg, day, credits)
		if errors.Is(err, ledger.ErrWalkLimit) {
			return 0, err
		}
		if err != nil {
			stale += len(credits)
			continue
		}
		for i, c := range credits {
			delta := amounts[i] - c.KCal
			if delta > correctionThreshold || delta < -correctionThreshold || ledger.Annotate(c.Workout.Annotation, multiplier) != c.Workout.Annotation {
				stale++
			}
		}
	}
	return stale, nil
}

func earliestTimestamp(h history, fallback time.Time) time.Time {
	out := fallback
	for _, entry := range h.entries() {
		if entry.Timestamp.Before(out) {
			out = entry.Timestamp
		}
	}
	for _, c := range h.checkIns {
		if c.Timestamp.Before(out) {
			out = c.Timestamp
		}
	}
	return out
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source file: %w", err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create destination file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy file: %w", err)
	}
	if err := out.Sync(); err != nil {
		return fmt.Errorf("sync destination file: %w", err)
	}
	return nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file for checksum: %w", err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

