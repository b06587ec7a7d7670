// Package validate checks request structs and reports failures as
// InvalidArgument statuses carrying one field violation per bad field.
package validate

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"appointment-portal/internal/model"
)

var (
	requiredTag  = "required"
	requiredText = "{0} is required"

	eqfieldTag  = "eqfield"
	eqfieldText = "Passwords do not match"

	signupRoleTag  = "signup_role"
	signupRoleText = "Please select a valid role"

	slotKindTag  = "slot_kind"
	slotKindText = "{0} must be individual, group or group_appointment"
)

type Validator struct {
	v     *validator.Validate
	trans ut.Translator
}

func New() *Validator {
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")

	v := validator.New()
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	// report json names, not Go names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(signupRoleTag, func(fl validator.FieldLevel) bool {
		r := model.Role(fl.Field().Int())
		return r == model.RoleInstructor || r == model.RoleTA || r == model.RoleStudent
	})
	_ = v.RegisterValidation(slotKindTag, func(fl validator.FieldLevel) bool {
		return model.SlotKind(fl.Field().String()).Valid()
	})

	register(v, trans, requiredTag, requiredText, true)
	register(v, trans, eqfieldTag, eqfieldText, true)
	register(v, trans, signupRoleTag, signupRoleText, false)
	register(v, trans, slotKindTag, slotKindText, false)

	return &Validator{v: v, trans: trans}
}

func register(v *validator.Validate, trans ut.Translator, tag, text string, override bool) {
	_ = v.RegisterTranslation(
		tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, override) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Struct validates s. The returned error is nil or an InvalidArgument status.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	violations := make([]*errdetails.BadRequest_FieldViolation, 0, len(verrs))
	for _, fe := range verrs {
		violations = append(violations, &errdetails.BadRequest_FieldViolation{
			Field:       fe.Field(),
			Description: fe.Translate(v.trans),
		})
	}
	return Invalid(violations...)
}

// Field builds a one-violation InvalidArgument error for checks the tags
// cannot express.
func Field(field, msg string) error {
	return Invalid(&errdetails.BadRequest_FieldViolation{Field: field, Description: msg})
}

// Invalid folds violations into a status whose message is the first one.
func Invalid(violations ...*errdetails.BadRequest_FieldViolation) error {
	msg := "invalid request"
	if len(violations) > 0 {
		msg = violations[0].Description
	}
	st := status.New(codes.InvalidArgument, msg)
	if d, err := st.WithDetails(&errdetails.BadRequest{FieldViolations: violations}); err == nil {
		st = d
	}
	return st.Err()
}

// Fields extracts field -> message from an error built by this package.
func Fields(err error) map[string]string {
	st, ok := status.FromError(err)
	if !ok {
		return nil
	}
	var out map[string]string
	for _, d := range st.Details() {
		br, ok := d.(*errdetails.BadRequest)
		if !ok {
			continue
		}
		for _, fv := range br.GetFieldViolations() {
			if out == nil {
				out = make(map[string]string)
			}
			if _, dup := out[fv.GetField()]; !dup {
				out[fv.GetField()] = fv.GetDescription()
			}
		}
	}
	return out
}
