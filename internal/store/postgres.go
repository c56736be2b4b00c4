package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type gameStateRow struct {
	ID         uint   `gorm:"primaryKey"`
	GameID     string `gorm:"size:64;not null;uniqueIndex:idx_game_version,priority:1"`
	Version    int    `gorm:"not null;uniqueIndex:idx_game_version,priority:2"`
	State      []byte `gorm:"type:jsonb;not null"`
	Projection []byte `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time
}

func (gameStateRow) TableName() string { return "game_states" }

type gameSummaryRow struct {
	ID            uint    `gorm:"primaryKey"`
	GameID        string  `gorm:"size:64;not null;uniqueIndex"`
	LatestVersion int     `gorm:"not null"`
	SeatColors    []byte  `gorm:"type:jsonb;not null"`
	CurrentColor  *string `gorm:"size:16"`
	WinningColor  *string `gorm:"size:16"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (gameSummaryRow) TableName() string { return "game_summaries" }

type gameEventRow struct {
	ID        int64  `gorm:"primaryKey"`
	GameID    string `gorm:"size:64;not null;index"`
	Version   *int
	EventType string    `gorm:"size:64;not null"`
	Payload   []byte    `gorm:"type:jsonb"`
	CreatedAt time.Time `gorm:"index"`
}

func (gameEventRow) TableName() string { return "game_events" }

type roomRow struct {
	ID            uint    `gorm:"primaryKey"`
	RoomID        string  `gorm:"size:64;not null;uniqueIndex"`
	Name          string  `gorm:"size:128;not null"`
	Seats         []byte  `gorm:"type:jsonb;not null"`
	Started       bool    `gorm:"not null;default:false"`
	GameID        *string `gorm:"size:64"`
	LatestVersion *int
	BoardSeed     int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (roomRow) TableName() string { return "rooms" }

// Postgres is the production Store backed by gorm.
type Postgres struct {
	db *gorm.DB
}

func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&gameStateRow{}, &gameSummaryRow{}, &gameEventRow{}, &roomRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) AppendSnapshot(ctx context.Context, snap *Snapshot, sum *Summary) (int, error) {
	var version int
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var latest gameStateRow
		err := tx.Where("game_id = ?", snap.GameID).
			Order("version DESC").
			Limit(1).
			Take(&latest).Error
		switch {
		case err == nil:
			version = latest.Version + 1
		case errors.Is(err, gorm.ErrRecordNotFound):
			version = 0
		default:
			return err
		}

		row := gameStateRow{
			GameID:     snap.GameID,
			Version:    version,
			State:      snap.State,
			Projection: snap.Projection,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		colors, err := json.Marshal(sum.SeatColors)
		if err != nil {
			return err
		}
		var existing gameSummaryRow
		err = tx.Where("game_id = ?", snap.GameID).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&gameSummaryRow{
				GameID:        snap.GameID,
				LatestVersion: version,
				SeatColors:    colors,
				CurrentColor:  sum.CurrentColor,
				WinningColor:  sum.WinningColor,
			}).Error
		case err != nil:
			return err
		}
		existing.LatestVersion = version
		existing.SeatColors = colors
		existing.CurrentColor = sum.CurrentColor
		existing.WinningColor = sum.WinningColor
		return tx.Save(&existing).Error
	})
	if err != nil {
		return 0, fmt.Errorf("append snapshot: %w", err)
	}
	snap.Version = version
	sum.GameID = snap.GameID
	sum.LatestVersion = version
	return version, nil
}

func (p *Postgres) GetSnapshot(ctx context.Context, gameID string, version int) (*Snapshot, error) {
	q := p.db.WithContext(ctx).Where("game_id = ?", gameID)
	if version == Latest {
		q = q.Order("version DESC")
	} else {
		q = q.Where("version = ?", version)
	}
	var row gameStateRow
	if err := q.Limit(1).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &Snapshot{
		GameID:     row.GameID,
		Version:    row.Version,
		State:      row.State,
		Projection: row.Projection,
		CreatedAt:  row.CreatedAt,
	}, nil
}

func (p *Postgres) GetSummary(ctx context.Context, gameID string) (*Summary, error) {
	var row gameSummaryRow
	if err := p.db.WithContext(ctx).Where("game_id = ?", gameID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return summaryFromRow(row)
}

func (p *Postgres) ListSummaries(ctx context.Context, limit int) ([]Summary, error) {
	var rows []gameSummaryRow
	q := p.db.WithContext(ctx).Order("updated_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(rows))
	for _, row := range rows {
		s, err := summaryFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, nil
}

func (p *Postgres) DeleteGame(ctx context.Context, gameID string) (int64, error) {
	var removed int64
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&gameStateRow{}, &gameSummaryRow{}, &gameEventRow{}} {
			res := tx.Where("game_id = ?", gameID).Delete(model)
			if res.Error != nil {
				return res.Error
			}
			removed += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete game: %w", err)
	}
	return removed, nil
}

func (p *Postgres) AppendEvent(ctx context.Context, ev *Event) error {
	row := gameEventRow{
		GameID:    ev.GameID,
		Version:   ev.Version,
		EventType: ev.Type,
		Payload:   ev.Payload,
	}
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	ev.ID = row.ID
	ev.CreatedAt = row.CreatedAt
	return nil
}

func (p *Postgres) ListEvents(ctx context.Context, gameID, eventType string) ([]Event, error) {
	q := p.db.WithContext(ctx).Where("game_id = ?", gameID)
	if eventType != "" {
		q = q.Where("event_type = ?", eventType)
	}
	var rows []gameEventRow
	if err := q.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, Event{
			ID:        row.ID,
			GameID:    row.GameID,
			Version:   row.Version,
			Type:      row.EventType,
			Payload:   row.Payload,
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}

func (p *Postgres) CreateRoom(ctx context.Context, room *Room) error {
	seats, err := json.Marshal(room.Seats)
	if err != nil {
		return err
	}
	row := roomRow{
		RoomID:    room.RoomID,
		Name:      room.Name,
		Seats:     seats,
		Started:   room.Started,
		GameID:    room.GameID,
		BoardSeed: room.BoardSeed,
	}
	if err := p.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	room.CreatedAt = row.CreatedAt
	room.UpdatedAt = row.UpdatedAt
	return nil
}

func (p *Postgres) GetRoom(ctx context.Context, roomID string) (*Room, error) {
	var row roomRow
	if err := p.db.WithContext(ctx).Where("room_id = ?", roomID).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return roomFromRow(row)
}

func (p *Postgres) SaveRoom(ctx context.Context, room *Room) error {
	seats, err := json.Marshal(room.Seats)
	if err != nil {
		return err
	}
	res := p.db.WithContext(ctx).Model(&roomRow{}).
		Where("room_id = ?", room.RoomID).
		Updates(map[string]any{
			"seats":          seats,
			"started":        room.Started,
			"game_id":        room.GameID,
			"latest_version": room.LatestVersion,
			"board_seed":     room.BoardSeed,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("save room: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListRooms(ctx context.Context, limit int) ([]Room, error) {
	var rows []roomRow
	q := p.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Room, 0, len(rows))
	for _, row := range rows {
		r, err := roomFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}

func summaryFromRow(row gameSummaryRow) (*Summary, error) {
	var colors []string
	if err := json.Unmarshal(row.SeatColors, &colors); err != nil {
		return nil, fmt.Errorf("summary seat colors: %w", err)
	}
	return &Summary{
		GameID:        row.GameID,
		LatestVersion: row.LatestVersion,
		SeatColors:    colors,
		CurrentColor:  row.CurrentColor,
		WinningColor:  row.WinningColor,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}

func roomFromRow(row roomRow) (*Room, error) {
	var seats []Seat
	if err := json.Unmarshal(row.Seats, &seats); err != nil {
		return nil, fmt.Errorf("room seats: %w", err)
	}
	return &Room{
		RoomID:        row.RoomID,
		Name:          row.Name,
		Seats:         seats,
		Started:       row.Started,
		GameID:        row.GameID,
		LatestVersion: row.LatestVersion,
		BoardSeed:     row.BoardSeed,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}
