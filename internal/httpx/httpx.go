// Package httpx holds echo glue shared by the handler packages.
package httpx

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/staybook/internal/apperrors"
	"github.com/sudo-init-do/staybook/internal/domain"
)

// Validator adapts go-playground/validator to echo, reporting json field names.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i interface{}) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperrors.Validation(fe.Field(), errors.New(describe(fe)))
	}
	return apperrors.Validation("", err)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min", "gte":
		return fe.Field() + " must be at least " + fe.Param()
	case "max", "lte":
		return fe.Field() + " must be at most " + fe.Param()
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "email":
		return fe.Field() + " must be a valid email"
	case "uuid", "uuid4":
		return fe.Field() + " must be a valid id"
	}
	return fe.Field() + " is invalid"
}

// Bind decodes the request into req and runs struct validation.
func Bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperrors.Validation("", errors.New("invalid request body"))
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}

// DomainError converts store and validation sentinels to AppErrors.
func DomainError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case errors.Is(err, domain.ErrListingNotFound),
		errors.Is(err, domain.ErrBookingNotFound),
		errors.Is(err, domain.ErrReviewNotFound),
		errors.Is(err, domain.ErrPaymentNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		return apperrors.NotFound(err)
	case errors.Is(err, domain.ErrDuplicateReview),
		errors.Is(err, domain.ErrDuplicateEmail),
		errors.Is(err, domain.ErrStaleVersion),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrPaymentSettled):
		return apperrors.Conflict(err.Error(), err)
	}
	var fe *domain.FieldError
	if errors.As(err, &fe) {
		return apperrors.Validation(fe.Field, fe.Err)
	}
	if errors.Is(err, domain.ErrInvalidStatus) {
		return apperrors.Validation("status", err)
	}
	return apperrors.Internal("unexpected error", err)
}

// UserID returns the authenticated user set by the JWT middleware.
func UserID(c echo.Context) string {
	id, _ := c.Get("user_id").(string)
	return id
}

func Role(c echo.Context) string {
	role, _ := c.Get("role").(string)
	return role
}

func IsAdmin(c echo.Context) bool {
	return Role(c) == domain.RoleAdmin
}

// Page reads limit/offset query parameters, capping limit at 100.
func Page(c echo.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	offset, _ = strconv.Atoi(c.QueryParam("offset"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
