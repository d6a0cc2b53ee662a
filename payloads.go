package auth

import (
	stderrors "errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// LoginRequest is the password login payload.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validationFailure(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	), "Invalid login request payload")
}

// CreateUserRequest is the payload for creating an identity.
type CreateUserRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	RoleID    int64  `json:"roleId"`
}

// Validate will run validation rules
func (r CreateUserRequest) Validate() error {
	return validationFailure(validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(3, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(3, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Password, validation.Length(10, 100)),
		validation.Field(&r.RoleID, validation.Required),
	), "Invalid user payload")
}

// UpdateUserRequest is the payload for updating an identity. Omitted fields
// are left untouched.
type UpdateUserRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	RoleID    *int64  `json:"roleId"`
}

// Validate will run validation rules
func (r UpdateUserRequest) Validate() error {
	return validationFailure(validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.NilOrNotEmpty, validation.Length(3, 200)),
		validation.Field(&r.LastName, validation.NilOrNotEmpty, validation.Length(3, 200)),
		validation.Field(&r.Email, validation.NilOrNotEmpty, validation.Length(3, 254), is.Email),
		validation.Field(&r.Password, validation.NilOrNotEmpty, validation.Length(10, 100)),
		validation.Field(&r.RoleID, validation.NilOrNotEmpty),
	), "Invalid user payload")
}

// validationFailure converts ozzo errors into a ValidationError carrying
// the per field messages.
func validationFailure(err error, msg string) error {
	if err == nil {
		return nil
	}

	fields := map[string]string{}
	var verrs validation.Errors
	if stderrors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				fields[field] = ferr.Error()
			}
		}
	} else {
		fields["_"] = err.Error()
	}

	return NewError(KindValidation, msg).WithMetadata(map[string]any{"fields": fields})
}
