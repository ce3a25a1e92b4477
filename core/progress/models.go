package progress

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/reelbingo/promo/core"
	"github.com/reelbingo/promo/core/board"
)

// Action is what a manager did to a square.
type Action string

const (
	ActionCheck   Action = "check"
	ActionUncheck Action = "uncheck"
)

// Source tells which path asked for a board mutation.
type Source string

const (
	SourceToggle Source = "toggle"
	SourceReview Source = "review"
)

const (
	DefaultLogLimit = 50
	MaxLogLimit     = 200
)

// LogEntry is one append-only audit record of a board change.
type LogEntry struct {
	ID            string            `json:"id" db:"id"`
	ParticipantID string            `json:"participant_id" db:"participant_id"`
	ManagerID     string            `json:"manager_id" db:"manager_id"`
	ManagerEmail  string            `json:"manager_email,omitempty" db:"manager_email"`
	SquareField   board.ChallengeID `json:"square_field" db:"square_field"`
	Action        Action            `json:"action" db:"action"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"` // UTC, assigned by the store
}

// VisitLock is the one-tile-per-visit state of a participant.
// It is derived from the newest log entry: locked iff that entry is a check.
type VisitLock struct {
	Locked   bool              `json:"locked"`
	Since    *time.Time        `json:"since"`
	Field    board.ChallengeID `json:"field"`
	Released bool              `json:"released,omitempty"`
}

func lockFrom(latest *LogEntry) VisitLock {
	if latest == nil || latest.Action != ActionCheck {
		return VisitLock{}
	}
	since := latest.CreatedAt
	return VisitLock{Locked: true, Since: &since, Field: latest.SquareField}
}

// Mutation sets one square of a participant's board.
// NextVisit carries a manager's "start next visit": the throttle is skipped once.
type Mutation struct {
	ParticipantID string
	Field         board.ChallengeID
	Value         bool
	ManagerID     string
	Source        Source
	NextVisit     bool
}

// ToggleRequest flips one square of a participant's board.
type ToggleRequest struct {
	ParticipantID string `json:"-"`
	ManagerID     string `json:"-"`
	FieldKey      string `json:"field_key" validate:"required"`
	NextVisit     bool   `json:"next_visit"`
}

func (r *ToggleRequest) Validate(validate *validator.Validate) error {
	r.FieldKey = core.CleanString(r.FieldKey, true /* lower */)
	return validate.Struct(r)
}

func (r ToggleRequest) field() (board.ChallengeID, error) {
	id, err := board.ParseChallengeID(r.FieldKey)
	if err != nil {
		return board.NoChallenge, core.NewValidationError(err, core.FieldError{Field: "field_key", Error: err.Error()})
	}
	return id, nil
}

// LastChecked maps each square to the time of its newest log entry when that entry is a check.
// logs must be ordered newest first.
func LastChecked(logs []LogEntry) map[board.ChallengeID]time.Time {
	seen := make(map[board.ChallengeID]bool, board.NumSquares)
	checked := make(map[board.ChallengeID]time.Time, board.NumSquares)
	for _, l := range logs {
		if seen[l.SquareField] {
			continue
		}
		seen[l.SquareField] = true
		if l.Action == ActionCheck {
			checked[l.SquareField] = l.CreatedAt
		}
	}
	return checked
}
