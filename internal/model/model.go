package model

import (
	"regexp"
	"strings"
	"time"
)

// Contact is a single entry in a user's personal address book. Every
// contact belongs to exactly one user, and ownership never changes
// after creation.
type Contact struct {
	Id        int64     `json:"id"         db:"id"`
	FirstName string    `json:"firstname"  db:"first_name"`
	LastName  string    `json:"lastname"   db:"last_name"`
	Phone     string    `json:"phone"      db:"phone"`
	UserId    int64     `json:"user_id"    db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ContactParams holds the fields a caller is allowed to submit when
// creating or updating a contact. Anything else in the request body is
// ignored; in particular the id and the owning user can never be set
// from the outside. The fields are pointers so that an update can tell
// an omitted field apart from one submitted as blank.
type ContactParams struct {
	FirstName *string `json:"firstname"`
	LastName  *string `json:"lastname"`
	Phone     *string `json:"phone"`
}

// FieldError describes a validation failure on a single input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// phonePattern is the only accepted phone format, e.g. "555-123-4567".
var phonePattern = regexp.MustCompile(`^\d{3}-\d{3}-\d{4}$`)

// Validate checks the given field values and returns one error per
// violated rule. An empty result means the values may be persisted.
// The same rules apply on create and update, and validation never
// consults the database.
func Validate(firstName, lastName, phone string) []FieldError {
	var errs []FieldError
	if strings.TrimSpace(firstName) == "" {
		errs = append(errs, FieldError{Field: "firstname", Message: "can't be blank"})
	}
	if strings.TrimSpace(lastName) == "" {
		errs = append(errs, FieldError{Field: "lastname", Message: "can't be blank"})
	}
	if strings.TrimSpace(phone) == "" {
		errs = append(errs, FieldError{Field: "phone", Message: "can't be blank"})
	} else if !phonePattern.MatchString(phone) {
		errs = append(errs, FieldError{Field: "phone", Message: "must be in format: 555-123-4567"})
	}
	return errs
}
