package inmemdb

import (
	"context"
	"strings"

	"github.com/reelbingo/promo/core"
	"github.com/reelbingo/promo/core/participant"
)

type participantRepository struct {
	db *DB
}

func NewParticipantRepository(db *DB) participant.Repository {
	return &participantRepository{db: db}
}

func (repo *participantRepository) emailTaken(email, exceptID string) bool {
	for _, p := range repo.db.participants {
		if p.ID != exceptID && strings.EqualFold(p.Email, email) {
			return true
		}
	}
	return false
}

func (repo *participantRepository) CreateParticipant(ctx context.Context, p participant.Participant) (participant.Participant, error) {
	err := repo.db.write(ctx, func() error {
		if repo.emailTaken(p.Email, "") {
			return core.NewConflictError("a participant with this email already exists")
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = repo.db.now()
			p.UpdatedAt = p.CreatedAt
		}
		repo.db.participants[p.ID] = p
		return nil
	})
	if err != nil {
		return participant.Participant{}, err
	}
	return p, nil
}

func (repo *participantRepository) GetParticipantByID(ctx context.Context, id string) (participant.Participant, error) {
	var p participant.Participant
	err := repo.db.read(ctx, func() error {
		var ok bool
		if p, ok = repo.db.participants[id]; !ok {
			return core.NewNotFoundError("participant")
		}
		return nil
	})
	return p, err
}

func (repo *participantRepository) GetParticipantByEmail(ctx context.Context, email string) (participant.Participant, error) {
	var found participant.Participant
	err := repo.db.read(ctx, func() error {
		for _, p := range repo.db.participants {
			if email != "" && strings.EqualFold(p.Email, email) {
				found = p
				return nil
			}
		}
		return core.NewNotFoundError("participant")
	})
	return found, err
}

func (repo *participantRepository) UpdateParticipant(ctx context.Context, p participant.Participant) (participant.Participant, error) {
	err := repo.db.write(ctx, func() error {
		orig, ok := repo.db.participants[p.ID]
		if !ok {
			return core.NewNotFoundError("participant")
		}
		if repo.emailTaken(p.Email, p.ID) {
			return core.NewConflictError("a participant with this email already exists")
		}
		p.CreatedAt = orig.CreatedAt
		repo.db.participants[p.ID] = p
		return nil
	})
	if err != nil {
		return participant.Participant{}, err
	}
	return p, nil
}
