package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/reelbingo/promo/core"
	"github.com/reelbingo/promo/core/participant"
	"github.com/reelbingo/promo/storage/database"
)

const (
	participantColumns = "id, email, is_manager, password_hash, created_at, updated_at, last_login"
	emailConflict      = "a participant with this email already exists"
)

type participantRepository struct {
	db *sqlx.DB
}

func NewParticipantRepository(db *sqlx.DB) participant.Repository {
	return &participantRepository{db: db}
}

func (repo *participantRepository) CreateParticipant(ctx context.Context, p participant.Participant) (participant.Participant, error) {
	q := `INSERT INTO participant (` + participantColumns + `)
		VALUES (:id, :email, :is_manager, :password_hash, :created_at, :updated_at, :last_login)`
	_, err := sqlx.NamedExecContext(ctx, database.Executor(ctx, repo.db), q, p)
	if err != nil {
		return participant.Participant{}, wrapWriteErr(err, "inserting participant", emailConflict)
	}
	return p, nil
}

func (repo *participantRepository) GetParticipantByID(ctx context.Context, id string) (participant.Participant, error) {
	var p participant.Participant
	q := `SELECT ` + participantColumns + ` FROM participant WHERE id = $1`
	err := sqlx.GetContext(ctx, database.Executor(ctx, repo.db), &p, q, id)
	return p, wrapGetErr(err, "participant")
}

func (repo *participantRepository) GetParticipantByEmail(ctx context.Context, email string) (participant.Participant, error) {
	if email == "" {
		return participant.Participant{}, core.NewNotFoundError("participant")
	}
	var p participant.Participant
	q := `SELECT ` + participantColumns + ` FROM participant WHERE lower(email) = lower($1)`
	err := sqlx.GetContext(ctx, database.Executor(ctx, repo.db), &p, q, email)
	return p, wrapGetErr(err, "participant")
}

func (repo *participantRepository) UpdateParticipant(ctx context.Context, p participant.Participant) (participant.Participant, error) {
	q := `UPDATE participant
		SET email = :email, is_manager = :is_manager, password_hash = :password_hash,
			updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, database.Executor(ctx, repo.db), q, p)
	if err != nil {
		return participant.Participant{}, wrapWriteErr(err, "updating participant", emailConflict)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return participant.Participant{}, core.NewNotFoundError("participant")
	}
	return repo.GetParticipantByID(ctx, p.ID)
}
