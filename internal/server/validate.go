// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// newValidator returns a validator that reports JSON field names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationMessage turns validator errors into one client-facing sentence.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return msgInvalidBody
	}

	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "ChatRequest.")
	switch {
	case fe.Field() == "message" && fe.Tag() == "required":
		return msgMessageRequired
	case fe.Field() == "history" && fe.Tag() == "max":
		return fmt.Sprintf("Too many history turns: maximum is %s", fe.Param())
	case fe.Tag() == "max":
		return fmt.Sprintf("%s exceeds maximum length of %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
