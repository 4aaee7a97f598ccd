// workers/match_archive_worker.go
package workers

import (
	"context"
	"encoding/json"
	"time"

	"cue-club-system/models"
	"cue-club-system/utils"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const archiveBatchSize = 50

// Archiver stores a JSON document under key.
type Archiver interface {
	PutJSON(ctx context.Context, key string, body []byte) error
}

// MatchArchiveWorker uploads completed matches to object storage and stamps
// archived_at. Failed uploads stay unstamped and are retried next tick.
type MatchArchiveWorker struct {
	db       *gorm.DB
	archiver Archiver
	interval time.Duration
	logger   zerolog.Logger
}

func NewMatchArchiveWorker(db *gorm.DB, archiver Archiver, interval time.Duration) *MatchArchiveWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &MatchArchiveWorker{
		db:       db,
		archiver: archiver,
		interval: interval,
		logger:   log.With().Str("component", "archive").Logger(),
	}
}

func (w *MatchArchiveWorker) Start(ctx context.Context) {
	w.logger.Info().Dur("interval", w.interval).Msg("🔁 starting match archive worker")
	go w.run(ctx)
}

func (w *MatchArchiveWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.ArchiveBatch(ctx); err != nil {
				w.logger.Error().Err(err).Msg(eris.ToString(err, true))
			}
		case <-ctx.Done():
			w.logger.Info().Msg("⏹️ match archive worker stopped")
			return
		}
	}
}

// ArchiveBatch archives up to one batch and returns how many were stored.
func (w *MatchArchiveWorker) ArchiveBatch(ctx context.Context) (int, error) {
	var matches []models.Match
	err := w.db.WithContext(ctx).
		Where("status = ? AND archived_at IS NULL", models.MatchCompleted).
		Order("end_time").
		Limit(archiveBatchSize).
		Find(&matches).Error
	if err != nil {
		return 0, eris.Wrap(err, "failed to load completed matches")
	}
	if len(matches) == 0 {
		return 0, nil
	}

	clubNames := make(map[string]string)
	archived := 0
	for i := range matches {
		m := &matches[i]
		name, ok := clubNames[m.ClubID]
		if !ok {
			var club models.Club
			if err := w.db.WithContext(ctx).Unscoped().First(&club, "id = ?", m.ClubID).Error; err == nil {
				name = club.Name
			}
			clubNames[m.ClubID] = name
		}

		day := m.UpdatedAt
		if m.EndTime != nil {
			day = *m.EndTime
		}
		key := utils.ArchiveKey(name, day.UTC().Format("2006-01-02"), m.MatchCode)
		body, err := json.Marshal(m.Snapshot())
		if err != nil {
			w.logger.Error().Err(err).Str("match_id", m.MatchID).Msg("failed to encode match")
			continue
		}
		if err := w.archiver.PutJSON(ctx, key, body); err != nil {
			w.logger.Warn().Err(err).Str("match_id", m.MatchID).Msg("archive upload failed, will retry")
			continue
		}
		now := time.Now()
		if err := w.db.WithContext(ctx).Model(&models.Match{}).
			Where("match_id = ?", m.MatchID).
			UpdateColumn("archived_at", now).Error; err != nil {
			w.logger.Error().Err(err).Str("match_id", m.MatchID).Msg("failed to stamp archived_at")
			continue
		}
		archived++
	}
	w.logger.Info().Int("archived", archived).Int("candidates", len(matches)).Msg("✅ archive batch done")
	return archived, nil
}
