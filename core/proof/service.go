package proof

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/reelbingo/promo/core"
	"github.com/reelbingo/promo/core/board"
	"github.com/reelbingo/promo/core/progress"
)

var nowFunc = time.Now // mockable

type (
	Repository interface {
		// CreateSubmission returns a core.ConflictError when the participant already has an
		// active (pending or approved) submission for the task.
		CreateSubmission(ctx context.Context, s Submission) (Submission, error)
		GetSubmission(ctx context.Context, id string, lock core.LockMode) (Submission, error)
		UpdateSubmission(ctx context.Context, s Submission) (Submission, error)
		// GetActiveSubmission returns the active submission of a participant for a task, or nil.
		GetActiveSubmission(ctx context.Context, participantID string, task board.ChallengeID) (*Submission, error)
		// QuerySubmissions orders by creation time, oldest first unless filter.NewestFirst.
		QuerySubmissions(ctx context.Context, filter QueryFilter) ([]Submission, error)
	}

	Managers interface {
		IsManager(ctx context.Context, participantID string) (bool, error)
	}

	// Directory resolves a participant's email for notifications.
	Directory interface {
		Email(ctx context.Context, participantID string) (string, error)
	}

	Service interface {
		Create(ctx context.Context, ns NewSubmission) (Submission, error)
		HasActive(ctx context.Context, participantID string, task board.ChallengeID) (*Submission, error)
		ListPending(ctx context.Context) ([]Submission, error)
		ListForParticipant(ctx context.Context, participantID string) ([]Submission, error)
		Get(ctx context.Context, id string) (Submission, error)
		Review(ctx context.Context, req ReviewRequest) (Submission, error)
		Notice(ctx context.Context, s Submission) (Notice, error)
	}

	Options struct {
		MaxImageBytes int64
		PathPrefix    string
	}

	service struct {
		tx        core.Transactor
		repo      Repository
		blobs     core.BlobStore
		mutator   progress.Mutator
		managers  Managers
		directory Directory
		logger    core.Logger
		opts      Options
	}
)

var _ Service = (*service)(nil)

func NewService(
	tx core.Transactor,
	repo Repository,
	blobs core.BlobStore,
	mutator progress.Mutator,
	managers Managers,
	directory Directory,
	logger core.Logger,
	opts Options,
) Service {
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = DefaultMaxImageBytes
	}
	return &service{
		tx:        tx,
		repo:      repo,
		blobs:     blobs,
		mutator:   mutator,
		managers:  managers,
		directory: directory,
		logger:    logger,
		opts:      opts,
	}
}

// Create stores the image then the submission row. A failed upload leaves nothing behind;
// a failed insert leaves at most an orphaned image, which is removed best-effort.
func (svc *service) Create(ctx context.Context, ns NewSubmission) (Submission, error) {
	if ns.ParticipantID == "" {
		return Submission{}, core.NewValidationError(nil, core.FieldError{Field: "participant_id", Error: "this field is required"})
	}
	task, err := board.ParseChallengeID(ns.TaskField)
	if err != nil {
		return Submission{}, core.NewValidationError(err, core.FieldError{Field: "task_field", Error: err.Error()})
	}
	challenge, _ := board.Lookup(task)

	contentType, ext, err := ValidateImage(ns.Image, svc.opts.MaxImageBytes)
	if err != nil {
		return Submission{}, err
	}

	active, err := svc.repo.GetActiveSubmission(ctx, ns.ParticipantID, task)
	if err != nil {
		return Submission{}, errors.Wrap(err, "checking active submission")
	}
	if active != nil {
		return Submission{}, activeConflict(active.Status)
	}

	id := uuid.NewString()
	hint := path.Join(svc.opts.PathPrefix, ns.ParticipantID, id+ext)
	obj, err := svc.blobs.Store(ctx, ns.Image, contentType, hint)
	if err != nil {
		return Submission{}, core.NewDependencyError("storing proof image", err)
	}

	// the client may have gone away during the upload
	if err = ctx.Err(); err != nil {
		svc.deleteImage(obj.Path)
		return Submission{}, errors.Wrap(err, "creating submission")
	}

	sub := Submission{
		ID:            id,
		ParticipantID: ns.ParticipantID,
		TaskField:     task,
		TaskLabel:     challenge.Label,
		ImageURL:      obj.PublicURL,
		ImagePath:     obj.Path,
		Status:        StatusPending,
	}
	if ns.Message != "" {
		sub.Message = null.StringFrom(ns.Message)
	}
	if ns.ReceiptNumber != "" {
		sub.ReceiptNumber = null.StringFrom(ns.ReceiptNumber)
	}

	created, err := svc.repo.CreateSubmission(ctx, sub)
	if err != nil {
		svc.deleteImage(obj.Path)
		if core.IsConflict(err) {
			return Submission{}, activeConflict(StatusPending)
		}
		return Submission{}, errors.Wrap(err, "creating submission")
	}
	return created, nil
}

func activeConflict(status Status) error {
	if status == StatusApproved {
		return core.NewConflictError("this task has already been approved")
	}
	return core.NewConflictError("a submission for this task is already pending review")
}

func (svc *service) HasActive(ctx context.Context, participantID string, task board.ChallengeID) (*Submission, error) {
	return svc.repo.GetActiveSubmission(ctx, participantID, task)
}

func (svc *service) ListPending(ctx context.Context) ([]Submission, error) {
	return svc.repo.QuerySubmissions(ctx, QueryFilter{Statuses: []Status{StatusPending}})
}

func (svc *service) ListForParticipant(ctx context.Context, participantID string) ([]Submission, error) {
	return svc.repo.QuerySubmissions(ctx, QueryFilter{ParticipantID: participantID, NewestFirst: true})
}

func (svc *service) Get(ctx context.Context, id string) (Submission, error) {
	return svc.repo.GetSubmission(ctx, id, core.NoLock)
}

// Review decides a pending submission. The status change and, on approval, the board change and
// its log entry commit together. The proof image is released after commit, best-effort.
func (svc *service) Review(ctx context.Context, req ReviewRequest) (Submission, error) {
	if req.Decision != StatusApproved && req.Decision != StatusRejected {
		return Submission{}, core.NewValidationError(nil, core.FieldError{Field: "decision", Error: "must be one of approved, rejected"})
	}
	ok, err := svc.managers.IsManager(ctx, req.ManagerID)
	if err != nil && !core.IsNotFound(err) {
		return Submission{}, errors.Wrap(err, "checking manager")
	}
	if !ok {
		return Submission{}, core.NewAuthorizationError("manager access required")
	}

	var reviewed Submission
	err = svc.tx.InTx(ctx, func(ctx context.Context) error {
		sub, err := svc.repo.GetSubmission(ctx, req.SubmissionID, core.ForUpdate)
		if err != nil {
			return errors.Wrap(err, "getting submission")
		}
		if sub.Status != StatusPending {
			return core.NewInvalidStateError("submission has already been %s", sub.Status)
		}

		sub.Status = req.Decision
		sub.ReviewedBy = null.StringFrom(req.ManagerID)
		sub.ReviewedAt = null.TimeFrom(nowFunc().UTC())
		if sub, err = svc.repo.UpdateSubmission(ctx, sub); err != nil {
			return errors.Wrap(err, "updating submission")
		}

		if sub.Status == StatusApproved {
			if _, err = svc.mutator.ApplyBoardMutation(ctx, progress.Mutation{
				ParticipantID: sub.ParticipantID,
				Field:         sub.TaskField,
				Value:         true,
				ManagerID:     req.ManagerID,
				Source:        progress.SourceReview,
				NextVisit:     req.NextVisit,
			}); err != nil {
				return errors.Wrap(err, "checking square")
			}
		}
		reviewed = sub
		return nil
	})
	if err != nil {
		return Submission{}, err
	}

	if reviewed.Status == StatusApproved {
		svc.deleteImage(reviewed.ImagePath)
	}
	return reviewed, nil
}

func (svc *service) Notice(ctx context.Context, s Submission) (Notice, error) {
	email, err := svc.directory.Email(ctx, s.ParticipantID)
	if err != nil {
		return Notice{}, errors.Wrap(err, "getting participant email")
	}
	return Notice{ParticipantEmail: email, TaskLabel: s.TaskLabel, Status: s.Status}, nil
}

// deleteImage releases a stored proof. Failures are logged, never returned.
func (svc *service) deleteImage(imagePath string) {
	if imagePath == "" {
		return
	}
	// the request context may already be done; deletion must not depend on it
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ok, err := svc.blobs.Delete(ctx, imagePath)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("deleting proof image %q: %v", imagePath, err), err)
	} else if !ok {
		svc.logger.Warn(fmt.Sprintf("deleting proof image %q: not found", imagePath))
	}
}
