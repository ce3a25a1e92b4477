package sqlxrepos

import (
	"context"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/reelbingo/promo/core"
	"github.com/reelbingo/promo/core/board"
	"github.com/reelbingo/promo/core/progress"
	"github.com/reelbingo/promo/storage/database"
)

var (
	squareColumns   = makeSquareColumns()
	progressColumns = "participant_id, " + strings.Join(squareColumns, ", ") + ", updated_at"
)

const logColumns = `l.id, l.participant_id, l.manager_id, COALESCE(m.email, '') AS manager_email,
	l.square_field, l.action, l.created_at`

func makeSquareColumns() []string {
	cols := make([]string, board.NumSquares)
	for i := range cols {
		cols[i] = board.ChallengeID(i + 1).String()
	}
	return cols
}

// progressDest lists scan destinations in progressColumns order.
func progressDest(p *board.Progress) []interface{} {
	dest := make([]interface{}, 0, board.NumSquares+2)
	dest = append(dest, &p.ParticipantID)
	for i := range p.Squares {
		dest = append(dest, &p.Squares[i])
	}
	return append(dest, &p.UpdatedAt)
}

func progressArgs(p board.Progress) []interface{} {
	args := make([]interface{}, 0, board.NumSquares+2)
	args = append(args, p.ParticipantID)
	for _, checked := range p.Squares {
		args = append(args, checked)
	}
	return append(args, p.UpdatedAt)
}

type progressRepository struct {
	db *sqlx.DB
}

func NewProgressRepository(db *sqlx.DB) progress.Repository {
	return &progressRepository{db: db}
}

func (repo *progressRepository) CreateProgress(ctx context.Context, p board.Progress) (board.Progress, error) {
	placeholders := make([]string, board.NumSquares+2)
	for i := range placeholders {
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}
	q := `INSERT INTO progress (` + progressColumns + `) VALUES (` + strings.Join(placeholders, ", ") + `)`
	if _, err := database.Executor(ctx, repo.db).ExecContext(ctx, q, progressArgs(p)...); err != nil {
		return board.Progress{}, wrapWriteErr(err, "inserting progress", "progress already exists")
	}
	return p, nil
}

func (repo *progressRepository) GetProgress(ctx context.Context, participantID string, lock core.LockMode) (board.Progress, error) {
	q := `SELECT ` + progressColumns + ` FROM progress WHERE participant_id = $1`
	if lock == core.ForUpdate {
		q += ` FOR UPDATE`
	}
	var p board.Progress
	err := database.Executor(ctx, repo.db).QueryRowxContext(ctx, q, participantID).Scan(progressDest(&p)...)
	if err != nil {
		return board.Progress{}, wrapGetErr(err, "progress")
	}
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func (repo *progressRepository) UpdateProgress(ctx context.Context, p board.Progress) (board.Progress, error) {
	sets := make([]string, 0, board.NumSquares+1)
	for i, col := range squareColumns {
		sets = append(sets, col+" = $"+strconv.Itoa(i+2))
	}
	sets = append(sets, "updated_at = $"+strconv.Itoa(board.NumSquares+2))
	q := `UPDATE progress SET ` + strings.Join(sets, ", ") + ` WHERE participant_id = $1`

	res, err := database.Executor(ctx, repo.db).ExecContext(ctx, q, progressArgs(p)...)
	if err != nil {
		return board.Progress{}, errors.Wrap(err, "updating progress")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return board.Progress{}, core.NewNotFoundError("progress")
	}
	return p, nil
}

func (repo *progressRepository) AppendLog(ctx context.Context, entry progress.LogEntry) (progress.LogEntry, error) {
	q := `INSERT INTO progress_log (id, participant_id, manager_id, square_field, action)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`
	err := database.Executor(ctx, repo.db).
		QueryRowxContext(ctx, q, entry.ID, entry.ParticipantID, entry.ManagerID, entry.SquareField, entry.Action).
		Scan(&entry.CreatedAt)
	if err != nil {
		return progress.LogEntry{}, errors.Wrap(err, "inserting progress log")
	}
	entry.CreatedAt = entry.CreatedAt.UTC()
	return entry, nil
}

func (repo *progressRepository) LatestLog(ctx context.Context, participantID string) (*progress.LogEntry, error) {
	logs, err := repo.QueryLogs(ctx, participantID, 1)
	if err != nil || len(logs) == 0 {
		return nil, err
	}
	return &logs[0], nil
}

func (repo *progressRepository) QueryLogs(ctx context.Context, participantID string, limit int) ([]progress.LogEntry, error) {
	q := `SELECT ` + logColumns + `
		FROM progress_log l LEFT JOIN participant m ON m.id = l.manager_id
		WHERE l.participant_id = $1
		ORDER BY l.created_at DESC
		LIMIT $2`
	logs := make([]progress.LogEntry, 0)
	if err := sqlx.SelectContext(ctx, database.Executor(ctx, repo.db), &logs, q, participantID, limit); err != nil {
		if core.IsNotFound(wrapGetErr(err, "progress log")) {
			return logs, nil
		}
		return nil, errors.Wrap(err, "querying progress logs")
	}
	for i := range logs {
		logs[i].CreatedAt = logs[i].CreatedAt.UTC()
	}
	return logs, nil
}
