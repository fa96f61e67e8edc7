package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lcalzada-xor/netsentry/internal/core/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StatCSVMigrated marks a completed legacy import in the stats table.
const StatCSVMigrated = "csv_migrated"

// legacyKindLabels maps the labels written by the old CSV logger to the
// canonical threat kinds. Unknown labels are imported verbatim.
var legacyKindLabels = map[string]domain.ThreatKind{
	"Possible DDoS":            domain.ThreatDDoS,
	"Port Scanning":            domain.ThreatPortScan,
	"SQL Injection":            domain.ThreatSQLInjection,
	"XSS Attack":               domain.ThreatXSS,
	"Malicious IP (OSINT)":     domain.ThreatMaliciousIP,
	"Malicious Domain (OSINT)": domain.ThreatMaliciousDomain,
	"SYN Flood":                domain.ThreatSYNFlood,
}

func mapLegacyKind(label string) string {
	if kind, ok := legacyKindLabels[label]; ok {
		return string(kind)
	}
	return label
}

// ImportCSV loads the legacy realtime log into the threats table and returns
// the number of rows actually inserted. The uniqueness index makes reruns
// add nothing.
func (s *Store) ImportCSV(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var models []ThreatModel
	var skipped int
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read csv: %w", err)
		}
		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(record[0]), "timestamp") {
				continue
			}
		}
		if len(record) < 5 {
			skipped++
			continue
		}
		models = append(models, ThreatModel{
			Timestamp:     strings.TrimSpace(record[0]),
			ThreatType:    mapLegacyKind(strings.TrimSpace(record[1])),
			SourceIP:      strings.TrimSpace(record[2]),
			DestinationIP: strings.TrimSpace(record[3]),
			Ports:         strings.TrimSpace(record[4]),
		})
	}
	if skipped > 0 {
		slog.Warn("skipped malformed csv rows", "count", skipped)
	}
	if len(models) == 0 {
		return 0, nil
	}

	var inserted int64
	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(models, 100)
		inserted = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, fmt.Errorf("import csv: %w", err)
	}
	return int(inserted), nil
}

// MigrateLegacyCSV runs the one-time startup import: only when the CSV exists
// and no prior run completed. Completion is recorded in the stats table.
func (s *Store) MigrateLegacyCSV(path string) (int, error) {
	value, err := s.GetStat(StatCSVMigrated)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return 0, err
	}
	if value == "1" {
		return 0, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return 0, nil
	}

	count, err := s.ImportCSV(path)
	if err != nil {
		return 0, err
	}
	if err := s.SetStat(StatCSVMigrated, "1"); err != nil {
		return count, err
	}
	slog.Info("legacy csv migrated", "path", path, "rows", count)
	return count, nil
}
