package progress

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/reelbingo/promo/core"
	"github.com/reelbingo/promo/core/board"
)

var nowFunc = time.Now // mockable

type (
	Repository interface {
		CreateProgress(ctx context.Context, p board.Progress) (board.Progress, error)
		// GetProgress returns a core.NotFoundError when the participant has no board.
		GetProgress(ctx context.Context, participantID string, lock core.LockMode) (board.Progress, error)
		UpdateProgress(ctx context.Context, p board.Progress) (board.Progress, error)
		// AppendLog stores the entry; the store assigns CreatedAt.
		AppendLog(ctx context.Context, entry LogEntry) (LogEntry, error)
		// LatestLog returns the newest entry of a participant, or nil if none.
		LatestLog(ctx context.Context, participantID string) (*LogEntry, error)
		// QueryLogs returns at most limit entries, newest first.
		QueryLogs(ctx context.Context, participantID string, limit int) ([]LogEntry, error)
	}

	// Managers tells whether a participant may act on other participants' boards.
	Managers interface {
		IsManager(ctx context.Context, participantID string) (bool, error)
	}

	// Mutator is the single write path to a board: the review engine and manual toggles both go through it.
	Mutator interface {
		ApplyBoardMutation(ctx context.Context, m Mutation) (board.Progress, error)
	}

	Service interface {
		Mutator
		Get(ctx context.Context, participantID string) (board.Progress, error)
		// Board renders the participant's card. withHistory annotates cells with their last check time.
		Board(ctx context.Context, participantID string, columns int, withHistory bool) (board.Board, error)
		Lock(ctx context.Context, participantID string) (VisitLock, error)
		IsLocked(ctx context.Context, participantID string) (bool, error)
		ReleaseLock(ctx context.Context, participantID, managerID string) (VisitLock, error)
		Logs(ctx context.Context, participantID string, limit int) ([]LogEntry, error)
		Toggle(ctx context.Context, req ToggleRequest) (board.Progress, error)
	}

	service struct {
		tx       core.Transactor
		repo     Repository
		managers Managers
		logger   core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(tx core.Transactor, repo Repository, managers Managers, logger core.Logger) Service {
	return &service{
		tx:       tx,
		repo:     repo,
		managers: managers,
		logger:   logger,
	}
}

func (svc *service) Get(ctx context.Context, participantID string) (board.Progress, error) {
	return svc.repo.GetProgress(ctx, participantID, core.NoLock)
}

func (svc *service) Board(ctx context.Context, participantID string, columns int, withHistory bool) (board.Board, error) {
	p, err := svc.repo.GetProgress(ctx, participantID, core.NoLock)
	if err != nil {
		return board.Board{}, errors.Wrap(err, "getting progress")
	}
	b := board.NewBoard(&p, columns)
	if withHistory {
		logs, err := svc.repo.QueryLogs(ctx, participantID, MaxLogLimit)
		if err != nil {
			return board.Board{}, errors.Wrap(err, "querying logs")
		}
		b.Cells = board.WithLastChecked(b.Cells, LastChecked(logs))
	}
	return b, nil
}

func (svc *service) Lock(ctx context.Context, participantID string) (VisitLock, error) {
	latest, err := svc.repo.LatestLog(ctx, participantID)
	if err != nil {
		return VisitLock{}, errors.Wrap(err, "getting latest log")
	}
	return lockFrom(latest), nil
}

func (svc *service) IsLocked(ctx context.Context, participantID string) (bool, error) {
	lock, err := svc.Lock(ctx, participantID)
	return lock.Locked, err
}

// ReleaseLock is the manager's "start next visit". Nothing is written: the returned lock is a
// transient view, the next mutation sent with NextVisit skips the throttle once.
func (svc *service) ReleaseLock(ctx context.Context, participantID, managerID string) (VisitLock, error) {
	if err := svc.authorize(ctx, managerID); err != nil {
		return VisitLock{}, err
	}
	if _, err := svc.repo.GetProgress(ctx, participantID, core.NoLock); err != nil {
		return VisitLock{}, errors.Wrap(err, "getting progress")
	}
	lock, err := svc.Lock(ctx, participantID)
	if err != nil {
		return VisitLock{}, err
	}
	lock.Locked = false
	lock.Released = true
	return lock, nil
}

func (svc *service) Logs(ctx context.Context, participantID string, limit int) ([]LogEntry, error) {
	switch {
	case limit <= 0:
		limit = DefaultLogLimit
	case limit > MaxLogLimit:
		limit = MaxLogLimit
	}
	return svc.repo.QueryLogs(ctx, participantID, limit)
}

func (svc *service) Toggle(ctx context.Context, req ToggleRequest) (board.Progress, error) {
	field, err := req.field()
	if err != nil {
		return board.Progress{}, err
	}
	if err = svc.authorize(ctx, req.ManagerID); err != nil {
		return board.Progress{}, err
	}

	var prog board.Progress
	err = svc.tx.InTx(ctx, func(ctx context.Context) error {
		current, err := svc.repo.GetProgress(ctx, req.ParticipantID, core.ForUpdate)
		if err != nil {
			return errors.Wrap(err, "getting progress")
		}
		prog, err = svc.ApplyBoardMutation(ctx, Mutation{
			ParticipantID: req.ParticipantID,
			Field:         field,
			Value:         !current.Squares.Checked(field),
			ManagerID:     req.ManagerID,
			Source:        SourceToggle,
			NextVisit:     req.NextVisit,
		})
		return err
	})
	if err != nil {
		return board.Progress{}, err
	}
	return prog, nil
}

// ApplyBoardMutation locks the participant's board, enforces the one-tile-per-visit rule on any
// false->true change, writes the board and appends exactly one log entry. All in one transaction.
// Setting an already checked square to true is not throttled but is still logged as a check.
func (svc *service) ApplyBoardMutation(ctx context.Context, m Mutation) (board.Progress, error) {
	if !m.Field.IsValid() {
		return board.Progress{}, core.NewValidationError(nil, core.FieldError{Field: "field_key", Error: "unknown challenge"})
	}

	var prog board.Progress
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := svc.repo.GetProgress(ctx, m.ParticipantID, core.ForUpdate)
		if err != nil {
			return errors.Wrap(err, "getting progress")
		}

		if m.Value && !p.Squares.Checked(m.Field) && !m.NextVisit {
			lock, err := svc.Lock(ctx, m.ParticipantID)
			if err != nil {
				return err
			}
			if lock.Locked {
				return core.NewThrottleError(m.ParticipantID, *lock.Since)
			}
		}

		p.Squares.Set(m.Field, m.Value)
		p.UpdatedAt = nowFunc().UTC()
		if p, err = svc.repo.UpdateProgress(ctx, p); err != nil {
			return errors.Wrap(err, "updating progress")
		}

		action := ActionUncheck
		if m.Value {
			action = ActionCheck
		}
		if _, err = svc.repo.AppendLog(ctx, LogEntry{
			ID:            uuid.NewString(),
			ParticipantID: m.ParticipantID,
			ManagerID:     m.ManagerID,
			SquareField:   m.Field,
			Action:        action,
		}); err != nil {
			return errors.Wrap(err, "appending log")
		}
		prog = p
		return nil
	})
	if err != nil {
		return board.Progress{}, err
	}

	svc.logger.Debug("board mutated", map[string]interface{}{
		"participant": m.ParticipantID,
		"manager":     m.ManagerID,
		"field":       m.Field.String(),
		"value":       m.Value,
		"source":      string(m.Source),
	})
	return prog, nil
}

func (svc *service) authorize(ctx context.Context, managerID string) error {
	ok, err := svc.managers.IsManager(ctx, managerID)
	if err != nil {
		if core.IsNotFound(err) {
			return core.NewAuthorizationError("manager access required")
		}
		return errors.Wrap(err, "checking manager")
	}
	if !ok {
		return core.NewAuthorizationError("manager access required")
	}
	return nil
}
