package hasface

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// TagName is the struct tag registered by RegisterTag.
const TagName = "has_face"

// RegisterTag registers the has_face tag on validate, backed by fv. A field
// fails when fv reports an error on it or when the detection call fails; the
// latter is logged since tag validators cannot return errors.
//
// Custom tags only run on non-struct kinds, so tag fields should be FilePath,
// string-kinded ImageRef types or pointers to them.
func RegisterTag(validate *validator.Validate, fv *Validator) error {
	return validate.RegisterValidationCtx(TagName, func(ctx context.Context, fl validator.FieldLevel) bool {
		var value any
		if field := fl.Field(); field.IsValid() && field.CanInterface() {
			value = field.Interface()
		}

		errs := &Errors{}
		if err := fv.Validate(ctx, errs, fl.FieldName(), value); err != nil {
			fv.logger.Error("has_face tag validation failed", zap.String("field", fl.StructFieldName()), zap.Error(err))
			return false
		}
		return errs.Empty()
	}, true)
}
