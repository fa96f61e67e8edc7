package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lcalzada-xor/netsentry/internal/core/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type kindCount struct {
	Kind  string
	Count int64
}

// CountThreatsSince counts threats stamped at or after the given instant.
func (s *Store) CountThreatsSince(since time.Time) (int64, error) {
	var count int64
	err := s.db.Model(&ThreatModel{}).
		Where("timestamp >= ?", since.Format(domain.ThreatTimestampLayout)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count threats: %w", err)
	}
	return count, nil
}

// ThreatStatsSince aggregates the event log from the given instant: totals by
// kind, the five busiest sources, a 6-hour trend and the average SYN/ACK
// ratio observed by the SYN flood detector.
func (s *Store) ThreatStatsSince(since time.Time) (domain.ThreatStats, error) {
	stats := domain.NewThreatStats()
	cutoff := since.Format(domain.ThreatTimestampLayout)

	if err := s.db.Model(&ThreatModel{}).
		Where("timestamp >= ?", cutoff).
		Count(&stats.Total).Error; err != nil {
		return stats, fmt.Errorf("threat stats total: %w", err)
	}

	var byKind []kindCount
	if err := s.db.Model(&ThreatModel{}).
		Select("threat_type AS kind, COUNT(*) AS count").
		Where("timestamp >= ?", cutoff).
		Group("threat_type").
		Scan(&byKind).Error; err != nil {
		return stats, fmt.Errorf("threat stats by kind: %w", err)
	}
	for _, kc := range byKind {
		stats.ByKind[kc.Kind] = kc.Count
	}

	if err := s.db.Model(&ThreatModel{}).
		Select("source_ip AS ip, COUNT(*) AS count").
		Where("timestamp >= ?", cutoff).
		Group("source_ip").
		Order("count DESC").
		Limit(5).
		Scan(&stats.TopSources).Error; err != nil {
		return stats, fmt.Errorf("threat stats top sources: %w", err)
	}

	trend, err := s.trend(time.Now())
	if err != nil {
		return stats, err
	}
	stats.Trend = trend

	ratio, err := s.avgSynAckRatio(cutoff)
	if err != nil {
		return stats, err
	}
	stats.AvgSynAckRatio = ratio

	return stats, nil
}

// trend compares average hourly threat counts of the last six hours against
// the six hours before that.
func (s *Store) trend(now time.Time) (string, error) {
	recent, err := s.countBetween(now.Add(-6*time.Hour), now)
	if err != nil {
		return "", err
	}
	previous, err := s.countBetween(now.Add(-12*time.Hour), now.Add(-6*time.Hour))
	if err != nil {
		return "", err
	}
	return domain.TrendBetween(float64(recent)/6.0, float64(previous)/6.0), nil
}

func (s *Store) countBetween(from, to time.Time) (int64, error) {
	var count int64
	err := s.db.Model(&ThreatModel{}).
		Where("timestamp >= ? AND timestamp < ?",
			from.Format(domain.ThreatTimestampLayout),
			to.Format(domain.ThreatTimestampLayout)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count threats between: %w", err)
	}
	return count, nil
}

// avgSynAckRatio averages the ratio field from SYNFlood evidence in the
// window. Meta is parsed in Go so the query never depends on the JSON1
// extension being compiled in.
func (s *Store) avgSynAckRatio(cutoff string) (float64, error) {
	var metas []string
	err := s.db.Model(&ThreatModel{}).
		Where("threat_type = ? AND timestamp >= ? AND meta IS NOT NULL",
			string(domain.ThreatSYNFlood), cutoff).
		Pluck("meta", &metas).Error
	if err != nil {
		return 0, fmt.Errorf("syn ack ratios: %w", err)
	}

	var sum float64
	var n int
	for _, raw := range metas {
		var meta map[string]any
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			continue
		}
		if r, ok := meta["ratio"].(float64); ok {
			sum += r
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return domain.RoundRatio(sum / float64(n)), nil
}

// AlertStats summarizes the alert history for the dashboard.
func (s *Store) AlertStats() (domain.AlertStats, error) {
	stats := domain.NewAlertStats()

	if err := s.db.Model(&AlertModel{}).Count(&stats.Total).Error; err != nil {
		return stats, fmt.Errorf("alert stats total: %w", err)
	}

	var byType []kindCount
	if err := s.db.Model(&AlertModel{}).
		Select("alert_type AS kind, COUNT(*) AS count").
		Group("alert_type").
		Scan(&byType).Error; err != nil {
		return stats, fmt.Errorf("alert stats by type: %w", err)
	}
	for _, kc := range byType {
		stats.ByType[kc.Kind] = kc.Count
	}

	var byIP []struct {
		IP    string
		Count int64
	}
	if err := s.db.Model(&AlertModel{}).
		Select("source_ip AS ip, COUNT(*) AS count").
		Group("source_ip").
		Scan(&byIP).Error; err != nil {
		return stats, fmt.Errorf("alert stats by ip: %w", err)
	}
	for _, ic := range byIP {
		stats.ByIP[ic.IP] = ic.Count
	}

	cutoff := time.Now().UTC().Add(-24 * time.Hour).Format(time.RFC3339)
	if err := s.db.Model(&AlertModel{}).
		Where("timestamp >= ?", cutoff).
		Count(&stats.Recent24h).Error; err != nil {
		return stats, fmt.Errorf("alert stats recent: %w", err)
	}

	return stats, nil
}

// GetStat reads a named counter. Missing keys return ErrNotFound.
func (s *Store) GetStat(key string) (string, error) {
	var model StatModel
	if err := s.db.First(&model, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get stat %q: %w", key, err)
	}
	return model.Value, nil
}

// SetStat upserts a named counter.
func (s *Store) SetStat(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&StatModel{Key: key, Value: value}).Error
	if err != nil {
		return fmt.Errorf("set stat %q: %w", key, err)
	}
	return nil
}

// AddToStat adds delta to a numeric counter, creating it at delta. A value
// that does not parse as an integer is treated as zero.
func (s *Store) AddToStat(key string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	var model StatModel
	if err := s.db.First(&model, "key = ?", key).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("add to stat %q: %w", key, err)
		}
	} else if v, perr := strconv.ParseInt(model.Value, 10, 64); perr == nil {
		current = v
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&StatModel{Key: key, Value: strconv.FormatInt(current+delta, 10)}).Error
	if err != nil {
		return fmt.Errorf("add to stat %q: %w", key, err)
	}
	return nil
}
