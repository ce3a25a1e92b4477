package participant

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/reelbingo/promo/core"
)

type Participant struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	IsManager    bool      `json:"is_manager" db:"is_manager"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"` // UTC
	LastLogin    null.Time `json:"last_login" db:"last_login"` // UTC
}

func (p *Participant) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.PasswordHash = hash
	return nil
}

func (p *Participant) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(p.PasswordHash, []byte(pwd))
}

// NewParticipant contains information needed to sign up.
type NewParticipant struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (np *NewParticipant) Validate(validate *validator.Validate) error {
	np.Email = core.CleanString(np.Email, true /* lower */)
	return validate.Struct(np)
}

// Summary is what a manager sees when looking a participant up.
type Summary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (p Participant) Summary() Summary {
	return Summary{ID: p.ID, Email: p.Email}
}
