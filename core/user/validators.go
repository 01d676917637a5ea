package user

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/jamii/core"
)

var (
	roleTag  = "role"
	roleText = "invalid role"

	selfRoleTag  = "selfrole"
	selfRoleText = fmt.Sprintf("role must be one of %v", RegularRoles)

	// password policy
	pwdMinLen     = 6
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"

	ErrPasswordTooSimilar = errors.New(pwdAttrSimText)
)

// RegisterValidators adds the user validation tags to validate.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(validate, translator, roleTag, roleText)

	_ = validate.RegisterValidation(selfRoleTag, selfRoleValidation)
	core.RegisterCustomTranslation(validate, translator, selfRoleTag, selfRoleText)

	_ = validate.RegisterValidation(pwdMinLenTag, pwdMinLenValidation)
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)

	_ = validate.RegisterValidation(pwdNoSpaceTag, pwdNoSpaceValidation)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)

	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

// ValidatePasswordSimilarity is a struct level check reporting fieldName when pwd
// is too close to one of the user attributes. Passwords already too short are left
// to the pwdminlen rule.
func ValidatePasswordSimilarity(sl validator.StructLevel, pwd, fieldName, structFieldName string, attrs ...string) {
	if len([]rune(pwd)) >= pwdMinLen && PasswordTooSimilar(pwd, attrs...) {
		sl.ReportError(pwd, fieldName, structFieldName, pwdAttrSimTag, "")
	}
}

// PasswordTooSimilar compares pwd with each non-empty attribute, case-insensitively.
func PasswordTooSimilar(pwd string, attrs ...string) bool {
	pwd = strings.ToLower(pwd)
	for _, attr := range attrs {
		if attr == "" || pwd == "" {
			continue
		}
		matcher := difflib.NewMatcher(strings.Split(pwd, ""), strings.Split(strings.ToLower(attr), ""))
		if matcher.QuickRatio() >= pwdMaxSim {
			return true
		}
	}
	return false
}

// Custom Validators

// roleValidation checks that the role belongs to a known family.
// Empty values pass; combine with `required` when needed.
func roleValidation(fl validator.FieldLevel) bool {
	role, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return role == "" || Classify(role) != FamilyNone
}

// selfRoleValidation limits self-service role changes to the regular family.
func selfRoleValidation(fl validator.FieldLevel) bool {
	role, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return role == "" || Classify(role) == FamilyRegular
}

func pwdMinLenValidation(fl validator.FieldLevel) bool {
	pwd, ok := fl.Field().Interface().(string)
	return ok && len([]rune(pwd)) >= pwdMinLen
}

func pwdNoSpaceValidation(fl validator.FieldLevel) bool {
	pwd, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			return false
		}
	}
	return true
}
