package handler

import (
	"errors"
	"reflect"

	"github.com/go-playground/validator/v10"

	"linkhub-go/internal/apperrors"
)

// bindError 把绑定校验错误映射成业务错误。
// 校验失败的字段带有 msg 标签时使用标签里的消息 ID，否则退回默认提示。
func bindError(obj any, err error) *apperrors.AppError {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		t := reflect.TypeOf(obj)
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		for _, e := range validationErrs {
			field, ok := t.FieldByName(e.Field())
			if !ok {
				continue
			}
			if msg := field.Tag.Get("msg"); msg != "" {
				return apperrors.InvalidRequestError(msg)
			}
		}
	}
	return apperrors.InvalidRequestErrorDefault()
}
