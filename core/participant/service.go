package participant

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/reelbingo/promo/core"
	"github.com/reelbingo/promo/core/board"
)

var (
	nowFunc = time.Now // mockable

	errEmailExists        = "a participant with this email already exists"
	errInvalidCredentials = errors.New("invalid credentials")
)

type (
	Repository interface {
		// CreateParticipant returns a core.ConflictError if the email is taken.
		CreateParticipant(ctx context.Context, p Participant) (Participant, error)
		GetParticipantByID(ctx context.Context, id string) (Participant, error)
		// GetParticipantByEmail matches the email case-insensitively.
		GetParticipantByEmail(ctx context.Context, email string) (Participant, error)
		UpdateParticipant(ctx context.Context, p Participant) (Participant, error)
	}

	// ProgressCreator opens the empty board of a new participant.
	ProgressCreator interface {
		CreateProgress(ctx context.Context, p board.Progress) (board.Progress, error)
	}

	Service interface {
		Signup(ctx context.Context, np NewParticipant) (Participant, error)
		// Authenticate checks the credentials and records the login.
		Authenticate(ctx context.Context, email, pwd string) (Participant, error)
		GetByID(ctx context.Context, id string) (Participant, error)
		GetByEmail(ctx context.Context, email string) (Participant, error)
		// FindByEmail is the manager lookup: managers themselves are never returned.
		FindByEmail(ctx context.Context, email string) (Participant, error)
		IsManager(ctx context.Context, id string) (bool, error)
		Email(ctx context.Context, id string) (string, error)
		SetLastLogin(ctx context.Context, p Participant) (Participant, error)
		AddManager(ctx context.Context, email, pwd string) (Participant, error)
		ResetPassword(ctx context.Context, email, pwd string) error
	}

	service struct {
		tx       core.Transactor
		repo     Repository
		progress ProgressCreator
	}
)

var _ Service = (*service)(nil)

func NewService(tx core.Transactor, repo Repository, progress ProgressCreator) Service {
	return &service{
		tx:       tx,
		repo:     repo,
		progress: progress,
	}
}

// Signup creates the participant and their empty board together.
func (svc *service) Signup(ctx context.Context, np NewParticipant) (Participant, error) {
	now := nowFunc().UTC()
	p := Participant{
		ID:        uuid.NewString(),
		Email:     core.CleanString(np.Email, true /* lower */),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.SetPassword(np.Password); err != nil {
		return Participant{}, errors.Wrap(err, "setting password")
	}

	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := svc.repo.GetParticipantByEmail(ctx, p.Email); err == nil {
			return emailExistsError()
		} else if !core.IsNotFound(err) {
			return errors.Wrap(err, "checking email")
		}

		var err error
		if p, err = svc.repo.CreateParticipant(ctx, p); err != nil {
			if core.IsConflict(err) {
				return emailExistsError()
			}
			return errors.Wrap(err, "creating participant")
		}
		_, err = svc.progress.CreateProgress(ctx, board.Progress{ParticipantID: p.ID, UpdatedAt: now})
		return errors.Wrap(err, "creating progress")
	})
	if err != nil {
		return Participant{}, err
	}
	return p, nil
}

func emailExistsError() error {
	return core.NewValidationError(nil, core.FieldError{Field: "email", Error: errEmailExists})
}

func (svc *service) Authenticate(ctx context.Context, email, pwd string) (Participant, error) {
	p, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if core.IsNotFound(err) {
			return Participant{}, core.NewValidationError(errInvalidCredentials)
		}
		return Participant{}, errors.Wrap(err, "finding participant by email")
	}
	if err = p.CheckPassword(pwd); err != nil {
		return Participant{}, core.NewValidationError(errInvalidCredentials)
	}
	p, err = svc.SetLastLogin(ctx, p)
	return p, errors.Wrap(err, "setting last login")
}

func (svc *service) GetByID(ctx context.Context, id string) (Participant, error) {
	return svc.repo.GetParticipantByID(ctx, id)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (Participant, error) {
	return svc.repo.GetParticipantByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) FindByEmail(ctx context.Context, email string) (Participant, error) {
	p, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return Participant{}, err
	}
	if p.IsManager {
		return Participant{}, core.NewNotFoundError("participant")
	}
	return p, nil
}

func (svc *service) IsManager(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, nil
	}
	p, err := svc.repo.GetParticipantByID(ctx, id)
	if err != nil {
		return false, err
	}
	return p.IsManager, nil
}

func (svc *service) Email(ctx context.Context, id string) (string, error) {
	p, err := svc.repo.GetParticipantByID(ctx, id)
	if err != nil {
		return "", err
	}
	return p.Email, nil
}

func (svc *service) SetLastLogin(ctx context.Context, p Participant) (Participant, error) {
	p.LastLogin = null.TimeFrom(nowFunc().UTC())
	return svc.repo.UpdateParticipant(ctx, p)
}

// AddManager creates a manager account, or promotes the existing account and resets its password.
func (svc *service) AddManager(ctx context.Context, email, pwd string) (Participant, error) {
	email = core.CleanString(email, true /* lower */)
	var mgr Participant

	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		now := nowFunc().UTC()
		p, err := svc.repo.GetParticipantByEmail(ctx, email)
		if err != nil {
			if !core.IsNotFound(err) {
				return err
			}
			p = Participant{ID: uuid.NewString(), Email: email, IsManager: true, CreatedAt: now, UpdatedAt: now}
			if err = p.SetPassword(pwd); err != nil {
				return err
			}
			mgr, err = svc.repo.CreateParticipant(ctx, p)
			return err
		}

		p.IsManager = true
		p.UpdatedAt = now
		if err = p.SetPassword(pwd); err != nil {
			return err
		}
		mgr, err = svc.repo.UpdateParticipant(ctx, p)
		return err
	})
	if err != nil {
		return Participant{}, err
	}
	return mgr, nil
}

func (svc *service) ResetPassword(ctx context.Context, email, pwd string) error {
	p, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err = p.SetPassword(pwd); err != nil {
		return err
	}
	p.UpdatedAt = nowFunc().UTC()
	_, err = svc.repo.UpdateParticipant(ctx, p)
	return err
}
