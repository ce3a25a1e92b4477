package sqlxrepos

import (
	"context"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/reelbingo/promo/core"
	"github.com/reelbingo/promo/core/board"
	"github.com/reelbingo/promo/core/proof"
	"github.com/reelbingo/promo/storage/database"
)

const (
	submissionColumns = `id, participant_id, task_field, task_label, message, receipt_number,
	image_url, image_path, status, reviewed_by, reviewed_at, created_at`
	activeConflict = "an active submission already exists for this task"
)

type submissionRepository struct {
	db *sqlx.DB
}

func NewSubmissionRepository(db *sqlx.DB) proof.Repository {
	return &submissionRepository{db: db}
}

func (repo *submissionRepository) CreateSubmission(ctx context.Context, s proof.Submission) (proof.Submission, error) {
	q := `INSERT INTO proof_submission (
			id, participant_id, task_field, task_label, message, receipt_number, image_url, image_path, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`
	err := database.Executor(ctx, repo.db).QueryRowxContext(
		ctx, q,
		s.ID, s.ParticipantID, s.TaskField, s.TaskLabel, s.Message, s.ReceiptNumber, s.ImageURL, s.ImagePath, s.Status,
	).Scan(&s.CreatedAt)
	if err != nil {
		return proof.Submission{}, wrapWriteErr(err, "inserting submission", activeConflict)
	}
	s.CreatedAt = s.CreatedAt.UTC()
	return s, nil
}

func (repo *submissionRepository) GetSubmission(ctx context.Context, id string, lock core.LockMode) (proof.Submission, error) {
	q := `SELECT ` + submissionColumns + ` FROM proof_submission WHERE id = $1`
	if lock == core.ForUpdate {
		q += ` FOR UPDATE`
	}
	var s proof.Submission
	if err := sqlx.GetContext(ctx, database.Executor(ctx, repo.db), &s, q, id); err != nil {
		return proof.Submission{}, wrapGetErr(err, "submission")
	}
	return s, nil
}

func (repo *submissionRepository) UpdateSubmission(ctx context.Context, s proof.Submission) (proof.Submission, error) {
	q := `UPDATE proof_submission
		SET status = $2, reviewed_by = $3, reviewed_at = $4, message = $5, receipt_number = $6
		WHERE id = $1`
	res, err := database.Executor(ctx, repo.db).ExecContext(
		ctx, q, s.ID, s.Status, s.ReviewedBy, s.ReviewedAt, s.Message, s.ReceiptNumber,
	)
	if err != nil {
		return proof.Submission{}, wrapWriteErr(err, "updating submission", activeConflict)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return proof.Submission{}, core.NewNotFoundError("submission")
	}
	return s, nil
}

func (repo *submissionRepository) GetActiveSubmission(ctx context.Context, participantID string, task board.ChallengeID) (*proof.Submission, error) {
	subs, err := repo.query(ctx, proof.QueryFilter{
		ParticipantID: participantID,
		Statuses:      []proof.Status{proof.StatusPending, proof.StatusApproved},
	}, task, 1)
	if err != nil || len(subs) == 0 {
		return nil, err
	}
	return &subs[0], nil
}

func (repo *submissionRepository) QuerySubmissions(ctx context.Context, filter proof.QueryFilter) ([]proof.Submission, error) {
	return repo.query(ctx, filter, board.NoChallenge, 0)
}

func (repo *submissionRepository) query(ctx context.Context, filter proof.QueryFilter, task board.ChallengeID, limit int) ([]proof.Submission, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.ParticipantID != "" {
		where = append(where, "participant_id = "+arg(filter.ParticipantID))
	}
	if task.IsValid() {
		where = append(where, "task_field = "+arg(task))
	}
	if len(filter.Statuses) > 0 {
		in := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			in = append(in, arg(st))
		}
		where = append(where, "status IN ("+strings.Join(in, ", ")+")")
	}

	q := `SELECT ` + submissionColumns + ` FROM proof_submission`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	if filter.NewestFirst {
		q += ` ORDER BY created_at DESC`
	} else {
		q += ` ORDER BY created_at ASC`
	}
	if limit > 0 {
		q += ` LIMIT ` + arg(limit)
	}

	subs := make([]proof.Submission, 0)
	if err := sqlx.SelectContext(ctx, database.Executor(ctx, repo.db), &subs, q, args...); err != nil {
		if core.IsNotFound(wrapGetErr(err, "submission")) {
			return subs, nil
		}
		return nil, errors.Wrap(err, "querying submissions")
	}
	for i := range subs {
		subs[i].CreatedAt = subs[i].CreatedAt.UTC()
	}
	return subs, nil
}
