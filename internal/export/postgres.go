package export

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/DoyleJ11/draft-bot/pkg/types"
)

// DraftRecord is one finished draft.
type DraftRecord struct {
	ID         string `gorm:"primaryKey;size:36"`
	Scope      string `gorm:"size:255;not null;index"`
	Owner      string `gorm:"size:255;not null"`
	State      string `gorm:"size:16;not null"`
	Policy     string `gorm:"size:16;not null"`
	Rounds     int    `gorm:"not null"`
	PoolSize   int    `gorm:"not null"`
	CreatedAt  time.Time
	FinishedAt time.Time
	Picks      []PickRecord `gorm:"foreignKey:DraftID;constraint:OnDelete:CASCADE"`
}

// PickRecord is one claimed item. Seq is the pick's position within the
// participant's list; Seat is the participant's position in the draft order.
type PickRecord struct {
	ID              uint   `gorm:"primaryKey"`
	DraftID         string `gorm:"size:36;not null;index"`
	Seat            int    `gorm:"not null"`
	ParticipantID   string `gorm:"size:255;not null"`
	ParticipantName string `gorm:"size:255"`
	Seq             int    `gorm:"not null"`
	Item            string `gorm:"size:255;not null"`
}

// toRecords flattens a snapshot into rows.
func toRecords(snap types.Snapshot) DraftRecord {
	rec := DraftRecord{
		ID:         snap.SessionID,
		Scope:      snap.Scope,
		Owner:      snap.Owner,
		State:      snap.State,
		Policy:     snap.Policy,
		Rounds:     snap.Rounds,
		PoolSize:   snap.PoolSize,
		CreatedAt:  snap.CreatedAt,
		FinishedAt: snap.FinishedAt,
	}
	for seat, team := range snap.Teams {
		for seq, item := range team.Picks {
			rec.Picks = append(rec.Picks, PickRecord{
				DraftID:         snap.SessionID,
				Seat:            seat,
				ParticipantID:   team.ID,
				ParticipantName: team.Name,
				Seq:             seq,
				Item:            item,
			})
		}
	}
	return rec
}

// PostgresExporter stores snapshots through gorm on top of a pgx pool.
type PostgresExporter struct {
	pool  *pgxpool.Pool
	sqlDB *sql.DB
	db    *gorm.DB
	log   *zap.Logger
}

func NewPostgresExporter(ctx context.Context, dsn string, log *zap.Logger) (*PostgresExporter, error) {
	if log == nil {
		log = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	if err != nil {
		sqlDB.Close()
		pool.Close()
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	if err := db.WithContext(ctx).AutoMigrate(&DraftRecord{}, &PickRecord{}); err != nil {
		sqlDB.Close()
		pool.Close()
		return nil, fmt.Errorf("migrate export tables: %w", err)
	}
	return &PostgresExporter{pool: pool, sqlDB: sqlDB, db: db, log: log}, nil
}

// Export upserts the draft row and replaces its picks.
func (e *PostgresExporter) Export(ctx context.Context, snap types.Snapshot) error {
	rec := toRecords(snap)
	picks := rec.Picks
	rec.Picks = nil

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error; err != nil {
			return fmt.Errorf("upsert draft: %w", err)
		}
		if err := tx.Where("draft_id = ?", rec.ID).Delete(&PickRecord{}).Error; err != nil {
			return fmt.Errorf("clear picks: %w", err)
		}
		if len(picks) == 0 {
			return nil
		}
		if err := tx.Create(&picks).Error; err != nil {
			return fmt.Errorf("insert picks: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.log.Info("draft stored", zap.String("scope", snap.Scope), zap.String("session", snap.SessionID), zap.Int("picks", len(picks)))
	return nil
}

func (e *PostgresExporter) Close() error {
	err := e.sqlDB.Close()
	e.pool.Close()
	if err != nil {
		return fmt.Errorf("close export db: %w", err)
	}
	return nil
}
