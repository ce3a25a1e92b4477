package participant

import (
	"fmt"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/reelbingo/promo/core"
)

var (
	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password is too similar to the email address"
)

// InitValidators registers the participant validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(newParticipantStructValidation, NewParticipant{})
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

// newParticipantStructValidation applies the password policy on sign up.
func newParticipantStructValidation(sl validator.StructLevel) {
	if np, ok := sl.Current().Interface().(NewParticipant); ok && np.Password != "" {
		validatePassword(np.Password, np.Email, sl)
	}
}

// validatePassword applies the password policy to provided password:
// - minLen: 8
// - no whitespace
// - no all numeric
// - not similar to the email or its local part
func validatePassword(pwd, email string, sl validator.StructLevel) {
	if tag := passwordPolicyViolation(pwd, email); tag != "" {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}
}

func passwordPolicyViolation(pwd, email string) string {
	pwdLen := len([]rune(pwd))
	if pwdLen < pwdMinLen {
		return pwdMinLenTag
	}

	var digitCount int
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			return pwdNoSpaceTag
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == pwdLen {
		return pwdNotAllNumTag
	}

	getRatio := func(pass, attr string) float64 {
		if attr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(strings.ToLower(pass), ""), strings.Split(attr, "")).QuickRatio()
	}
	localPart := strings.SplitN(email, "@", 2)[0]
	if getRatio(pwd, email) >= pwdMaxSim || getRatio(pwd, localPart) >= pwdMaxSim {
		return pwdAttrSimTag
	}
	return ""
}
