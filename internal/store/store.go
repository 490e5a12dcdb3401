// Package store provides persistence access for contacts. Every query
// is scoped to the owning user; there is no way to read or write
// another user's records through this package.
package store

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/mfiedler/contactbook/internal/logger"
	"github.com/mfiedler/contactbook/internal/model"
)

// ErrNotFound is returned when a contact does not exist or belongs to
// a different owner. The two cases are indistinguishable on purpose,
// so a caller can never probe for the existence of someone else's
// records.
var ErrNotFound = errors.New("store: contact not found")

// ContactStore gives access to the contacts of one owner at a time.
type ContactStore struct {
	db  *sqlx.DB
	log *logger.Logger

	// Prepared statements offer a significant speed increase if executed many times.
	insert         *sqlx.NamedStmt
	selectForOwner *sqlx.Stmt
	listForOwner   *sqlx.Stmt
	update         *sqlx.Stmt
	deleteById     *sqlx.Stmt
}

// NewContactStore initializes the sqlx database wrapper with the
// specified sql database and prepares all statements. The database
// argument can be a real database for production use or a mock
// database within unit tests.
func NewContactStore(sqlDB *sql.DB, baseLog *logger.Logger) (*ContactStore, error) {
	s := &ContactStore{
		db:  sqlx.NewDb(sqlDB, "mysql"),
		log: baseLog.With("component", "ContactStore"),
	}
	var err error
	s.insert, err = s.db.PrepareNamed(`
		INSERT INTO contacts (first_name, last_name, phone, user_id)
		VALUES (:first_name, :last_name, :phone, :user_id)
	`)
	if err != nil {
		return nil, err
	}
	s.listForOwner, err = s.db.Preparex(`
		SELECT * FROM contacts WHERE user_id = ? ORDER BY last_name ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	s.selectForOwner, err = s.db.Preparex(`
		SELECT * FROM contacts WHERE user_id = ? AND id = ?
	`)
	if err != nil {
		return nil, err
	}
	s.update, err = s.db.Preparex(`
		UPDATE contacts SET first_name = ?, last_name = ?, phone = ? WHERE id = ? AND user_id = ?
	`)
	if err != nil {
		return nil, err
	}
	s.deleteById, err = s.db.Preparex(`
		DELETE FROM contacts WHERE id = ? AND user_id = ?
	`)
	if err != nil {
		return nil, err
	}
	s.log.Debug("prepared contact statements")
	return s, nil
}

// ListForOwner returns all contacts owned by ownerId, sorted by last
// name; contacts with the same last name keep their insertion order.
// An owner without contacts gets an empty slice, never an error.
func (s *ContactStore) ListForOwner(ownerId int64) ([]model.Contact, error) {
	contacts := []model.Contact{}
	if err := s.listForOwner.Select(&contacts, ownerId); err != nil {
		return nil, err
	}
	return contacts, nil
}

// FindForOwner returns the contact with the given id if and only if it
// is owned by ownerId. It returns ErrNotFound otherwise.
func (s *ContactStore) FindForOwner(ownerId int64, id int64) (model.Contact, error) {
	var contacts []model.Contact
	if err := s.selectForOwner.Select(&contacts, ownerId, id); err != nil {
		return model.Contact{}, err
	}
	if len(contacts) == 0 {
		return model.Contact{}, ErrNotFound
	}
	return contacts[0], nil
}

// Create inserts a new contact with the given field values, owned by
// ownerId. The owner always comes from this argument, never from the
// submitted fields. It returns the stored row including the freshly
// assigned id and timestamps.
func (s *ContactStore) Create(ownerId int64, firstName, lastName, phone string) (model.Contact, error) {
	contact := model.Contact{
		FirstName: firstName,
		LastName:  lastName,
		Phone:     phone,
		UserId:    ownerId,
	}
	result, err := s.insert.Exec(&contact)
	if err != nil {
		return model.Contact{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.Contact{}, err
	}
	return s.FindForOwner(ownerId, id)
}

// Update writes the given field values to the given contact, which the
// caller must already have resolved through FindForOwner. It returns
// the new state of the row.
func (s *ContactStore) Update(contact model.Contact, firstName, lastName, phone string) (model.Contact, error) {
	if _, err := s.update.Exec(firstName, lastName, phone, contact.Id, contact.UserId); err != nil {
		return model.Contact{}, err
	}
	return s.FindForOwner(contact.UserId, contact.Id)
}

// Delete removes the given contact, which the caller must already have
// resolved through FindForOwner. A later lookup of the same id fails
// with ErrNotFound.
func (s *ContactStore) Delete(contact model.Contact) error {
	_, err := s.deleteById.Exec(contact.Id, contact.UserId)
	return err
}
