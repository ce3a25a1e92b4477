package proof

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/reelbingo/promo/core"
	"github.com/reelbingo/promo/core/board"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// IsActive tells whether a submission with this status blocks another one for the same task.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusApproved
}

// Submission is a participant's photographic proof that a task was completed.
// pending -> approved | rejected; both decisions are terminal.
type Submission struct {
	ID            string            `json:"id" db:"id"`
	ParticipantID string            `json:"participant_id" db:"participant_id"`
	TaskField     board.ChallengeID `json:"task_field" db:"task_field"`
	TaskLabel     string            `json:"task_label" db:"task_label"`
	Message       null.String       `json:"message" db:"message"`
	ReceiptNumber null.String       `json:"receipt_number" db:"receipt_number"`
	ImageURL      string            `json:"image_url" db:"image_url"`
	ImagePath     string            `json:"-" db:"image_path"`
	Status        Status            `json:"status" db:"status"`
	ReviewedBy    null.String       `json:"reviewed_by" db:"reviewed_by"`
	ReviewedAt    null.Time         `json:"reviewed_at" db:"reviewed_at"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"` // UTC, assigned by the store
}

// NewSubmission contains information needed to submit a proof.
type NewSubmission struct {
	ParticipantID string `json:"participant_id" form:"-" validate:"required"`
	TaskField     string `json:"task_field" form:"task_field" validate:"required"`
	Message       string `json:"message" form:"message" validate:"max=1000"`
	ReceiptNumber string `json:"receipt_number" form:"receipt_number" validate:"max=100"`
	Image         []byte `json:"-" form:"-"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate) error {
	ns.TaskField = core.CleanString(ns.TaskField, true /* lower */)
	ns.Message = core.CleanString(ns.Message)
	ns.ReceiptNumber = core.CleanString(ns.ReceiptNumber)
	return validate.Struct(ns)
}

// ReviewRequest is a manager's decision on a pending submission.
// NextVisit carries "start next visit" when approving.
type ReviewRequest struct {
	SubmissionID string `json:"-"`
	ManagerID    string `json:"-"`
	Decision     Status `json:"decision" validate:"required,oneof=approved rejected"`
	NextVisit    bool   `json:"next_visit"`
}

func (rr *ReviewRequest) Validate(validate *validator.Validate) error {
	rr.Decision = Status(core.CleanString(string(rr.Decision), true /* lower */))
	return validate.Struct(rr)
}

// QueryFilter applies AND on set fields.
type QueryFilter struct {
	ParticipantID string
	Statuses      []Status
	NewestFirst   bool
}

// Notice is what the surrounding application needs to email a participant about a submission.
type Notice struct {
	ParticipantEmail string
	TaskLabel        string
	Status           Status
}

func (n Notice) Approved() bool { return n.Status == StatusApproved }
