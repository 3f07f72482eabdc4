package services

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/hasker/internal/common"
	"github.com/go-playground/validator/v10"
)

var (
	userNameRe = regexp.MustCompile(`^[\w.@+-]+$`)
	tagNameRe  = regexp.MustCompile(`^[\w@.+-]+$`)
)

// TagNameMaxLength bounds a single tag name.
const TagNameMaxLength = 50

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	mustRegister(v, "username", func(fl validator.FieldLevel) bool {
		return userNameRe.MatchString(fl.Field().String())
	})
	mustRegister(v, "tagname", func(fl validator.FieldLevel) bool {
		return tagNameRe.MatchString(fl.Field().String())
	})

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return strings.ToLower(f.Name)
		}
		return name
	})

	return v
}

// mustRegister panics if the rule cannot be registered, like regexp.MustCompile.
func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// Validate checks s against its `validate` struct tags. Failures wrap
// common.ErrorValidation and name every offending field.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", common.ErrorValidation, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "email":
		return fe.Field() + " must be a valid e-mail address"
	case "username":
		return fe.Field() + " may contain only letters, numbers and @/./+/-/_ characters"
	case "tagname":
		return "tag value may contain only English letters, numbers and @/./+/-/_ characters"
	default:
		return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
	}
}

// validationError builds a common.ErrorValidation with msg.
func validationError(msg string) error {
	return fmt.Errorf("%w: %s", common.ErrorValidation, msg)
}

type tagList struct {
	Names []string `json:"tags" validate:"dive,max=50,tagname"`
}

// ParseTags splits a comma-separated tag string. Names are trimmed; empty
// entries and duplicates are dropped. More than maxTags names or a name
// outside the allowed alphabet is a validation error.
func ParseTags(raw string, maxTags int) ([]string, error) {
	seen := make(map[string]struct{})
	names := []string{}
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	if len(names) > maxTags {
		return nil, validationError(fmt.Sprintf("the maximum number of tags is %d", maxTags))
	}
	if err := Validate(tagList{Names: names}); err != nil {
		return nil, err
	}
	return names, nil
}
