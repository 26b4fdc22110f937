// Package validation проверяет входные данные сервисов через go-playground/validator.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/ignatzorin/easytransact-backend/internal/pkg/apperror"
)

// Ограничения входных данных.
const (
	MaxProjectNameLength      = 200
	MaxOfferTitleLength       = 200
	MaxOfferDescriptionLength = 5000
	MaxMessageLength          = 5000
	MaxOfferAmount            = 100000000.0
	MaxSearchQueryLength      = 100
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = validate.RegisterValidation("cents", validateCents)
	})
	return validate
}

// validateCents пропускает суммы не больше чем с двумя знаками после запятой:
// amount хранится как NUMERIC(12,2).
func validateCents(fl validator.FieldLevel) bool {
	f := fl.Field()
	bits := 64
	switch f.Kind() {
	case reflect.Float64:
	case reflect.Float32:
		bits = 32
	default:
		return false
	}
	s := strconv.FormatFloat(f.Float(), 'f', -1, bits)
	dot := strings.IndexByte(s, '.')
	return dot < 0 || len(s)-dot-1 <= 2
}

// Struct проверяет структуру по тегам validate и возвращает ошибку валидации apperror.
func Struct(v any) error {
	return translate(instance().Struct(v))
}

// Var проверяет одно значение по тегу, field используется в тексте ошибки.
func Var(field string, value any, tag string) error {
	err := instance().Var(value, tag)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return apperror.New(apperror.ErrCodeValidation, describe(field, ve[0].Tag(), ve[0].Param()))
	}
	return apperror.Wrap(err, apperror.ErrCodeValidation, "некорректное значение "+field)
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return apperror.Wrap(err, apperror.ErrCodeValidation, "некорректные данные")
	}

	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, describe(fe.Field(), fe.Tag(), fe.Param()))
	}
	return apperror.New(apperror.ErrCodeValidation, strings.Join(msgs, "; "))
}

// describe превращает сработавший тег в понятное сообщение.
func describe(field, tag, param string) string {
	switch tag {
	case "required":
		return field + " обязательно"
	case "email":
		return field + " должно быть корректным email"
	case "url", "http_url":
		return field + " должно быть корректной ссылкой"
	case "eth_addr":
		return field + " должно быть адресом Ethereum"
	case "gt":
		return fmt.Sprintf("%s должно быть больше %s", field, param)
	case "lte":
		return fmt.Sprintf("%s должно быть не больше %s", field, param)
	case "max":
		return fmt.Sprintf("%s должно быть не длиннее %s символов", field, param)
	case "cents":
		return field + " должно содержать не больше двух знаков после запятой"
	case "oneof":
		return fmt.Sprintf("%s должно быть одним из: %s", field, param)
	default:
		return fmt.Sprintf("%s не прошло проверку (%s)", field, tag)
	}
}
