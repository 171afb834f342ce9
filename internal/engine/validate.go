// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/pdiddy/evidence-engine/internal/query"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator returns the shared validator. Field names in errors use the
// json tag names callers see.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

var messages = map[string]string{
	"required": "is required",
	"oneof":    "must be one of: %s",
	"gte":      "must be greater than or equal to %s",
	"lte":      "must be less than or equal to %s",
	"max":      "must be at most %s characters",
	"gtefield": "must not be before %s",
}

// validateRequest checks req and returns the first problem as a
// *types.ValidationError. Well-formed terms are then screened for queries
// that are not supplement searches.
func validateRequest(req types.RankRequest) error {
	if strings.TrimSpace(req.Term) == "" {
		return &types.ValidationError{Field: "term", Reason: "is required"}
	}

	err := getValidator().Struct(req)
	if err == nil {
		if err := query.Screen("term", req.Term); err != nil {
			return err
		}
		return query.Screen("benefit_term", req.BenefitTerm)
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &types.ValidationError{Field: "request", Reason: err.Error()}
	}

	fe := verrs[0]
	return &types.ValidationError{Field: fieldPath(fe), Reason: translate(fe)}
}

// fieldPath drops the struct name from the namespace:
// "RankRequest.filters.year_to" becomes "filters.year_to".
func fieldPath(fe validator.FieldError) string {
	_, path, ok := strings.Cut(fe.Namespace(), ".")
	if !ok {
		return fe.Field()
	}
	return path
}

func translate(fe validator.FieldError) string {
	msg, ok := messages[fe.Tag()]
	if !ok {
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
	if strings.Contains(msg, "%s") {
		param := fe.Param()
		if fe.Tag() == "gtefield" {
			param = "year_from"
		}
		return fmt.Sprintf(msg, param)
	}
	return msg
}
