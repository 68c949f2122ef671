package storage

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"hexbet_go/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// CandleRecord is a finalized candle.
type CandleRecord struct {
	Market    string `gorm:"primaryKey"`
	Bucket    int64  `gorm:"primaryKey;autoIncrement:false"`
	Open      float64
	High      float64
	Low       float64
	Close     float64
	CreatedAt time.Time
}

// SettlementRecord is one bet outcome.
type SettlementRecord struct {
	BetID     string `gorm:"primaryKey"`
	Market    string `gorm:"index"`
	Col       int
	Row       int
	CellPrice float64
	Amount    decimal.Decimal `gorm:"type:varchar(40)"`
	Leverage  int
	Payout    decimal.Decimal `gorm:"type:varchar(40)"`
	Outcome   string          `gorm:"index"`
	AtMs      int64           `gorm:"index"`
	CreatedAt time.Time
}

// Archive is a write-only session journal. Records are queued and written by
// a background goroutine so the engine never waits on disk. Nothing is read
// back into game state.
type Archive struct {
	db     *gorm.DB
	market string

	queue   chan any
	wg      sync.WaitGroup
	mu      sync.RWMutex // guards closed against sends on a closed queue
	closed  bool
	dropped atomic.Int64
}

// flushMarker is queued by Flush and closed by the writer when reached.
type flushMarker chan struct{}

// NewArchive opens (or creates) the database at path and starts the writer.
// An empty path resolves to the user config directory.
func NewArchive(path, market string, buffer int) (*Archive, error) {
	if path == "" {
		var err error
		if path, err = getDBPath(); err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return newArchive(db, market, buffer)
}

func newArchive(db *gorm.DB, market string, buffer int) (*Archive, error) {
	if err := db.AutoMigrate(&CandleRecord{}, &SettlementRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if buffer <= 0 {
		buffer = 1024
	}

	a := &Archive{
		db:     db,
		market: market,
		queue:  make(chan any, buffer),
	}
	a.wg.Add(1)
	go a.writer()
	return a, nil
}

// getDBPath resolves the database file path based on OS
func getDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "hexbet", "data", "hexbet.db"), nil
}

func (a *Archive) writer() {
	defer a.wg.Done()
	for rec := range a.queue {
		if m, ok := rec.(flushMarker); ok {
			close(m)
			continue
		}
		if err := a.db.Save(rec).Error; err != nil {
			slog.Error("Archive write failed", slog.Any("error", err))
		}
	}
}

func (a *Archive) enqueue(rec any) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.queue <- rec:
	default: // DROP
		a.dropped.Add(1)
		slog.Warn("Archive queue full, record dropped")
	}
}

// ======================================================================================
// Journal (called from the engine goroutine)
// ======================================================================================

// RecordCandle queues a finalized candle.
func (a *Archive) RecordCandle(c domain.Candle) {
	a.enqueue(&CandleRecord{
		Market: a.market,
		Bucket: c.Bucket,
		Open:   c.Open,
		High:   c.High,
		Low:    c.Low,
		Close:  c.Close,
	})
}

// RecordSettlement queues a bet outcome.
func (a *Archive) RecordSettlement(s domain.Settlement) {
	a.enqueue(&SettlementRecord{
		BetID:     s.BetID.String(),
		Market:    a.market,
		Col:       s.Cell.Col,
		Row:       s.Cell.Row,
		CellPrice: s.CellPrice,
		Amount:    s.Amount,
		Leverage:  s.Leverage,
		Payout:    s.Payout,
		Outcome:   string(s.Outcome),
		AtMs:      s.AtMs,
	})
}

// ======================================================================================
// Queries (API only)
// ======================================================================================

// RecentSettlements returns the newest settlements first.
func (a *Archive) RecentSettlements(limit int) ([]SettlementRecord, error) {
	var out []SettlementRecord
	err := a.db.Order("at_ms desc").Limit(limit).Find(&out).Error
	return out, err
}

// RecentCandles returns the newest candles of this market, oldest first.
func (a *Archive) RecentCandles(limit int) ([]CandleRecord, error) {
	var out []CandleRecord
	err := a.db.Where("market = ?", a.market).Order("bucket desc").Limit(limit).Find(&out).Error
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, err
}

// GetSettlement retrieves one settlement by bet id.
func (a *Archive) GetSettlement(betID string) (*SettlementRecord, error) {
	var rec SettlementRecord
	err := a.db.First(&rec, "bet_id = ?", betID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	return &rec, err
}

// OutcomeCounts tallies settlements by outcome.
func (a *Archive) OutcomeCounts() (map[string]int64, error) {
	var rows []struct {
		Outcome string
		N       int64
	}
	err := a.db.Model(&SettlementRecord{}).Select("outcome, count(*) as n").Group("outcome").Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[string]int64, len(rows))
	for _, r := range rows {
		result[r.Outcome] = r.N
	}
	return result, nil
}

// Dropped reports how many records were lost to a full queue.
func (a *Archive) Dropped() int64 {
	return a.dropped.Load()
}

// Flush blocks until every record queued before the call is written.
func (a *Archive) Flush() {
	done := make(flushMarker)
	a.mu.RLock()
	if a.closed {
		a.mu.RUnlock()
		return
	}
	a.queue <- done
	a.mu.RUnlock()
	<-done
}

// Close drains the queue, stops the writer and closes the database.
func (a *Archive) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	a.wg.Wait()

	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
