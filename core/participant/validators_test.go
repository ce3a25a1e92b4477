package participant

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelbingo/promo/core"
)

func TestPasswordPolicyViolation(t *testing.T) {
	tests := []struct {
		name  string
		pwd   string
		email string
		want  string
	}{
		{name: "ok", pwd: "Passw0rd!", email: "jane@test.test", want: ""},
		{name: "too short", pwd: "Pw0rd!", email: "jane@test.test", want: pwdMinLenTag},
		{name: "whitespace", pwd: "Pass w0rd!", email: "jane@test.test", want: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", email: "jane@test.test", want: pwdNotAllNumTag},
		{name: "similar to local part", pwd: "JohnSmith1", email: "johnsmith@test.test", want: pwdAttrSimTag},
		{name: "similar to email", pwd: "tom@test.test", email: "tom@test.test", want: pwdAttrSimTag},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, passwordPolicyViolation(tt.pwd, tt.email))
		})
	}
}

func TestNewParticipant_Validate(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	tests := []struct {
		name    string
		np      NewParticipant
		wantErr map[string]string
	}{
		{
			name: "valid",
			np:   NewParticipant{Email: " Jane@Test.test ", Password: "Passw0rd!", PasswordConfirm: "Passw0rd!"},
		},
		{
			name: "missing fields",
			np:   NewParticipant{},
			wantErr: map[string]string{
				"email":            "this field is required",
				"password":         "this field is required",
				"password_confirm": "this field is required",
			},
		},
		{
			name:    "bad email",
			np:      NewParticipant{Email: "jane", Password: "Passw0rd!", PasswordConfirm: "Passw0rd!"},
			wantErr: map[string]string{"email": "email must be a valid email address"},
		},
		{
			name:    "weak password",
			np:      NewParticipant{Email: "jane@test.test", Password: "12345678", PasswordConfirm: "12345678"},
			wantErr: map[string]string{"password": pwdNotAllNumText},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.np.Validate(validate)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, "jane@test.test", tt.np.Email)
				return
			}
			var vErrs validator.ValidationErrors
			require.ErrorAs(t, err, &vErrs)
			assert.Equal(t, tt.wantErr, core.TranslateFieldErrors(vErrs, translator))
		})
	}
}
