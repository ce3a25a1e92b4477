package inmemdb

import (
	"context"
	"sort"

	"github.com/reelbingo/promo/core"
	"github.com/reelbingo/promo/core/board"
	"github.com/reelbingo/promo/core/proof"
)

type submissionRepository struct {
	db *DB
}

func NewSubmissionRepository(db *DB) proof.Repository {
	return &submissionRepository{db: db}
}

func (repo *submissionRepository) active(participantID string, task board.ChallengeID, exceptID string) *proof.Submission {
	var found *proof.Submission
	for _, s := range repo.db.submissions {
		if s.ID != exceptID && s.ParticipantID == participantID && s.TaskField == task && s.Status.IsActive() {
			if found == nil || s.CreatedAt.Before(found.CreatedAt) {
				s := s
				found = &s
			}
		}
	}
	return found
}

func (repo *submissionRepository) CreateSubmission(ctx context.Context, s proof.Submission) (proof.Submission, error) {
	err := repo.db.write(ctx, func() error {
		if _, ok := repo.db.participants[s.ParticipantID]; !ok {
			return core.NewNotFoundError("participant")
		}
		if s.Status.IsActive() && repo.active(s.ParticipantID, s.TaskField, s.ID) != nil {
			return core.NewConflictError("an active submission already exists for this task")
		}
		s.CreatedAt = repo.db.now()
		repo.db.submissions[s.ID] = s
		return nil
	})
	if err != nil {
		return proof.Submission{}, err
	}
	return s, nil
}

func (repo *submissionRepository) GetSubmission(ctx context.Context, id string, _ core.LockMode) (proof.Submission, error) {
	var s proof.Submission
	err := repo.db.read(ctx, func() error {
		var ok bool
		if s, ok = repo.db.submissions[id]; !ok {
			return core.NewNotFoundError("submission")
		}
		return nil
	})
	return s, err
}

func (repo *submissionRepository) UpdateSubmission(ctx context.Context, s proof.Submission) (proof.Submission, error) {
	err := repo.db.write(ctx, func() error {
		orig, ok := repo.db.submissions[s.ID]
		if !ok {
			return core.NewNotFoundError("submission")
		}
		if s.Status.IsActive() && repo.active(s.ParticipantID, s.TaskField, s.ID) != nil {
			return core.NewConflictError("an active submission already exists for this task")
		}
		s.CreatedAt = orig.CreatedAt
		repo.db.submissions[s.ID] = s
		return nil
	})
	if err != nil {
		return proof.Submission{}, err
	}
	return s, nil
}

func (repo *submissionRepository) GetActiveSubmission(ctx context.Context, participantID string, task board.ChallengeID) (*proof.Submission, error) {
	var found *proof.Submission
	err := repo.db.read(ctx, func() error {
		found = repo.active(participantID, task, "")
		return nil
	})
	return found, err
}

func (repo *submissionRepository) QuerySubmissions(ctx context.Context, filter proof.QueryFilter) ([]proof.Submission, error) {
	subs := make([]proof.Submission, 0)
	err := repo.db.read(ctx, func() error {
		for _, s := range repo.db.submissions {
			if filter.ParticipantID != "" && s.ParticipantID != filter.ParticipantID {
				continue
			}
			if len(filter.Statuses) > 0 && !hasStatus(filter.Statuses, s.Status) {
				continue
			}
			subs = append(subs, s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(subs, func(i, j int) bool {
		if filter.NewestFirst {
			return subs[i].CreatedAt.After(subs[j].CreatedAt)
		}
		return subs[i].CreatedAt.Before(subs[j].CreatedAt)
	})
	return subs, nil
}

func hasStatus(statuses []proof.Status, status proof.Status) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
