package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/lcalzada-xor/netsentry/internal/core/domain"
	"github.com/lcalzada-xor/netsentry/internal/core/ports"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// ErrNotFound is returned for lookups that match no row.
var ErrNotFound = errors.New("storage: not found")

// Store implements ports.EventLog using GORM and SQLite.
type Store struct {
	db *gorm.DB

	// mu serializes writers. SQLite tolerates one writer at a time and the
	// pipeline has several (engine, alert worker, CSV importer).
	mu sync.Mutex
}

// Open initializes the event log database, migrates the schema and installs
// the tracing plugin.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, fmt.Errorf("install tracing plugin: %w", err)
	}

	if err := db.AutoMigrate(&ThreatModel{}, &AlertModel{}, &StatModel{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	// The uniqueness index makes replays and the CSV importer idempotent.
	db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_threats_unique ON threats(timestamp, threat_type, source_ip, destination_ip, ports)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_alerts_type ON alerts(alert_type)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_alerts_source ON alerts(source_ip)")

	return &Store{db: db}, nil
}

// AppendThreat persists one event. Rows colliding with the uniqueness index
// are swallowed; the event keeps ID 0 in that case.
func (s *Store) AppendThreat(event *domain.ThreatEvent) error {
	model := toThreatModel(*event)

	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&model)
	if res.Error != nil {
		return fmt.Errorf("append threat: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		event.ID = model.ID
	}
	return nil
}

// AppendAlert persists one throttling survivor.
func (s *Store) AppendAlert(record *domain.AlertRecord) error {
	model := toAlertModel(*record)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Create(&model).Error; err != nil {
		return fmt.Errorf("append alert: %w", err)
	}
	record.ID = model.ID
	return nil
}

// MaxThreatID returns the highest assigned threat ID, 0 when the log is empty.
func (s *Store) MaxThreatID() (int64, error) {
	var id int64
	if err := s.db.Raw("SELECT COALESCE(MAX(id), 0) FROM threats").Scan(&id).Error; err != nil {
		return 0, fmt.Errorf("max threat id: %w", err)
	}
	return id, nil
}

// ThreatByID loads a single threat row.
func (s *Store) ThreatByID(id int64) (*domain.ThreatEvent, error) {
	var model ThreatModel
	err := s.db.First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("threat %d: %w", id, err)
	}
	event := threatToDomain(model)
	return &event, nil
}

// ThreatsAfter returns up to limit threats with ID greater than id, in ID
// order. This is the tail-stream cursor read.
func (s *Store) ThreatsAfter(id int64, limit int) ([]domain.ThreatEvent, error) {
	query := s.db.Where("id > ?", id).Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var models []ThreatModel
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("threats after %d: %w", id, err)
	}

	events := make([]domain.ThreatEvent, len(models))
	for i, m := range models {
		events[i] = threatToDomain(m)
	}
	return events, nil
}

// ListThreats returns the threat view in ID order. A limit of 0 means all.
func (s *Store) ListThreats(limit int) ([]domain.ThreatEvent, error) {
	return s.ThreatsAfter(0, limit)
}

// ListAlerts returns alert history, newest first. Type wins over IP when
// both are set; the default page size is 100.
func (s *Store) ListAlerts(filter ports.AlertFilter) ([]domain.AlertRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := s.db.Order("id DESC").Limit(limit)
	switch {
	case filter.Type != "":
		query = query.Where("alert_type = ?", filter.Type)
	case filter.IP != "":
		query = query.Where("source_ip = ?", filter.IP)
	}

	var models []AlertModel
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}

	records := make([]domain.AlertRecord, len(models))
	for i, m := range models {
		records[i] = alertToDomain(m)
	}
	return records, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ensure interface compliance
var _ ports.EventLog = (*Store)(nil)
