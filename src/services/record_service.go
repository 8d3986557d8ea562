package services

import (
	"database/sql"
	"fmt"
	"strconv"
	"sync"

	"github.com/pigstyle/records/backend/src/config"
	"github.com/pigstyle/records/backend/src/logger"
	"github.com/pigstyle/records/backend/src/models"
)

// Lifecycle state names seeded by database.InitDB.
const (
	StatusIntake   = "intake"
	StatusPriced   = "priced"
	StatusOnFloor  = "on_floor"
	StatusOnHold   = "on_hold"
	StatusSold     = "sold"
	StatusReturned = "returned"
)

// RecordService wraps inventory SQL with status-name resolution and the
// store settings that live in the config table.
type RecordService struct {
	db *sql.DB

	mu        sync.Mutex
	statusIDs map[string]int64
}

func NewRecordService(db *sql.DB) *RecordService {
	return &RecordService{
		db:        db,
		statusIDs: make(map[string]int64),
	}
}

func (s *RecordService) DB() *sql.DB { return s.db }

// StatusID resolves a lifecycle state name to its row id, cached after the
// first lookup. Statuses are seeded at startup and never deleted.
func (s *RecordService) StatusID(name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.statusIDs[name]; ok {
		return id, nil
	}
	id, err := models.GetStatusIDByName(s.db, name)
	if err != nil {
		return 0, fmt.Errorf("resolving status %q: %w", name, err)
	}
	s.statusIDs[name] = id
	return id, nil
}

// CommissionRate returns the store's consignment commission, preferring the
// runtime config table over the environment default.
func (s *RecordService) CommissionRate() float64 {
	if raw, err := models.GetConfigValue(s.db, models.ConfigCommissionRate); err == nil {
		if rate, err := strconv.ParseFloat(raw, 64); err == nil && rate >= 0 && rate <= 1 {
			return rate
		}
		logger.L.Warn("Invalid commission rate in store config, using default", "value", raw)
	}
	return config.Cfg.CommissionRate
}

// MinStorePrice returns the price floor, preferring the runtime config
// table over the environment default.
func (s *RecordService) MinStorePrice() float64 {
	if raw, err := models.GetConfigValue(s.db, models.ConfigMinStorePrice); err == nil {
		if floor, err := strconv.ParseFloat(raw, 64); err == nil && floor > 0 {
			return floor
		}
		logger.L.Warn("Invalid minimum price in store config, using default", "value", raw)
	}
	return config.Cfg.MinStorePrice
}

// ConsignmentSummaries reports per-consignor inventory and payout totals.
func (s *RecordService) ConsignmentSummaries() ([]models.ConsignorSummary, error) {
	soldID, err := s.StatusID(StatusSold)
	if err != nil {
		return nil, err
	}
	return models.ConsignorSummaries(s.db, soldID)
}

// ResolveGenre maps a Discogs genre string to a store genre id using the
// saved mappings, falling back to a name match. Returns nil when nothing
// matches so the record lands unbinned.
func (s *RecordService) ResolveGenre(discogsGenre string) *int64 {
	if discogsGenre == "" {
		return nil
	}
	if id, err := models.GetGenreMapping(s.db, discogsGenre); err == nil {
		return &id
	}
	if g, err := models.GetGenreByName(s.db, discogsGenre); err == nil {
		return &g.ID
	}
	return nil
}
