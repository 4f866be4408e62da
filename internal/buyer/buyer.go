// Package buyer holds the contact block shared by the raffle, donation and
// transfer flows, and the checks every flow applies to it.
package buyer

import (
	"strings"

	cerrors "github.com/rifasite/checkout/internal/errors"
	"github.com/rifasite/checkout/internal/gateway"
)

// Field names one input of the buyer form.
type Field string

const (
	FieldName  Field = "name"
	FieldEmail Field = "email"
	FieldPhone Field = "phone"
)

// Info is the buyer contact block. Phone is optional.
type Info struct {
	Name  string
	Email string
	Phone string
}

// Set stores a trimmed value for field. Unknown fields are ignored.
func (i *Info) Set(field Field, value string) {
	value = strings.TrimSpace(value)
	switch field {
	case FieldName:
		i.Name = value
	case FieldEmail:
		i.Email = value
	case FieldPhone:
		i.Phone = value
	}
}

// Complete reports whether the block is good enough to request a payment:
// a name, and an email containing "@". Nothing beyond that is checked here.
func (i Info) Complete() bool {
	return i.Name != "" && HasEmailShape(i.Email)
}

// HasEmailShape is the only email check done on the page.
func HasEmailShape(email string) bool {
	return email != "" && strings.Contains(email, "@")
}

// Validate returns the first problem with the block as a validation error.
func (i Info) Validate() error {
	if i.Name == "" {
		return cerrors.New(cerrors.ErrCodeMissingName, "Debes ingresar tu nombre.")
	}
	if !HasEmailShape(i.Email) {
		return cerrors.New(cerrors.ErrCodeInvalidEmail, "Debes ingresar un correo válido.")
	}
	return nil
}

// Gateway converts the block to its wire form.
func (i Info) Gateway() gateway.Buyer {
	return gateway.Buyer{Name: i.Name, Email: i.Email, Phone: i.Phone}
}
