package inmemdb

import (
	"context"

	"github.com/reelbingo/promo/core"
	"github.com/reelbingo/promo/core/board"
	"github.com/reelbingo/promo/core/progress"
)

type progressRepository struct {
	db *DB
}

func NewProgressRepository(db *DB) progress.Repository {
	return &progressRepository{db: db}
}

func (repo *progressRepository) CreateProgress(ctx context.Context, p board.Progress) (board.Progress, error) {
	err := repo.db.write(ctx, func() error {
		if _, ok := repo.db.participants[p.ParticipantID]; !ok {
			return core.NewNotFoundError("participant")
		}
		if _, ok := repo.db.progress[p.ParticipantID]; ok {
			return core.NewConflictError("progress already exists")
		}
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = repo.db.now()
		}
		repo.db.progress[p.ParticipantID] = p
		return nil
	})
	if err != nil {
		return board.Progress{}, err
	}
	return p, nil
}

// GetProgress ignores lock: a transaction already holds the writer lock.
func (repo *progressRepository) GetProgress(ctx context.Context, participantID string, _ core.LockMode) (board.Progress, error) {
	var p board.Progress
	err := repo.db.read(ctx, func() error {
		var ok bool
		if p, ok = repo.db.progress[participantID]; !ok {
			return core.NewNotFoundError("progress")
		}
		return nil
	})
	return p, err
}

func (repo *progressRepository) UpdateProgress(ctx context.Context, p board.Progress) (board.Progress, error) {
	err := repo.db.write(ctx, func() error {
		if _, ok := repo.db.progress[p.ParticipantID]; !ok {
			return core.NewNotFoundError("progress")
		}
		repo.db.progress[p.ParticipantID] = p
		return nil
	})
	if err != nil {
		return board.Progress{}, err
	}
	return p, nil
}

func (repo *progressRepository) AppendLog(ctx context.Context, entry progress.LogEntry) (progress.LogEntry, error) {
	err := repo.db.write(ctx, func() error {
		if _, ok := repo.db.participants[entry.ParticipantID]; !ok {
			return core.NewNotFoundError("participant")
		}
		entry.CreatedAt = repo.db.now()
		entry.ManagerEmail = ""
		repo.db.logs = append(repo.db.logs, entry)
		return nil
	})
	if err != nil {
		return progress.LogEntry{}, err
	}
	return entry, nil
}

func (repo *progressRepository) LatestLog(ctx context.Context, participantID string) (*progress.LogEntry, error) {
	var latest *progress.LogEntry
	err := repo.db.read(ctx, func() error {
		for i := len(repo.db.logs) - 1; i >= 0; i-- {
			if e := repo.db.logs[i]; e.ParticipantID == participantID {
				latest = &e
				break
			}
		}
		return nil
	})
	return latest, err
}

func (repo *progressRepository) QueryLogs(ctx context.Context, participantID string, limit int) ([]progress.LogEntry, error) {
	logs := make([]progress.LogEntry, 0)
	err := repo.db.read(ctx, func() error {
		for i := len(repo.db.logs) - 1; i >= 0 && (limit <= 0 || len(logs) < limit); i-- {
			e := repo.db.logs[i]
			if e.ParticipantID != participantID {
				continue
			}
			if mgr, ok := repo.db.participants[e.ManagerID]; ok {
				e.ManagerEmail = mgr.Email
			}
			logs = append(logs, e)
		}
		return nil
	})
	return logs, err
}
