// Package service wires the REST API of the contacts manager: it owns
// the HTTP router and the handlers that translate requests into
// owner-scoped store operations.
package service

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/mfiedler/contactbook/internal/auth"
	"github.com/mfiedler/contactbook/internal/logger"
	"github.com/mfiedler/contactbook/internal/model"
	"github.com/mfiedler/contactbook/internal/store"
)

// contacts is the persistence backend for all handlers.
var contacts *store.ContactStore

// log is the service-wide structured logger.
var log *logger.Logger

// CreateDatabase initializes and returns a database connection. The connection parameters are
// taken from the system's environment variables.
func CreateDatabase(baseLog *logger.Logger) *sql.DB {
	dsn := fmt.Sprintf("%s:%s@tcp(%s)/contactbook?parseTime=true",
		os.Getenv("DBUSER"), os.Getenv("DBPWD"), os.Getenv("DBHOST"))
	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		baseLog.Fatal("opening database", "error", err)
	}
	return sqlDB
}

// SetupContactStore initializes the contact store with the specified sql database. The database
// argument can be a real database for production use or a mock database within unit tests.
func SetupContactStore(sqlDB *sql.DB, baseLog *logger.Logger) {
	log = baseLog.With("component", "service")
	var err error
	contacts, err = store.NewContactStore(sqlDB, baseLog)
	if err != nil {
		log.Fatal("preparing statements", "error", err)
	}
}

// SetupHttpRouter initializes the REST API router and registers all endpoints. Every /contacts
// route sits behind the authentication gate; only the health endpoint is public.
func SetupHttpRouter(authenticator *auth.Authenticator) *gin.Engine {
	var router *gin.Engine
	if strings.EqualFold(os.Getenv("GIN_LOGGING"), "off") {
		router = gin.New()
		router.Use(gin.Recovery())
	} else {
		router = gin.Default()
	}
	router.GET("/healthz", healthcheck)

	authorized := router.Group("/contacts", authenticator.RequireAuth())
	authorized.GET("", findContacts)
	authorized.GET("/new", newContactForm)
	authorized.POST("", createContact)
	authorized.GET("/:id", findContactByID)
	authorized.GET("/:id/edit", editContactForm)
	authorized.PUT("/:id", updateContactByID)
	authorized.PATCH("/:id", updateContactByID)
	authorized.DELETE("/:id", deleteContactByID)
	return router
}

// healthcheck responds with OK as soon as the service is able to answer requests.
func healthcheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// findContacts responds with the list of the current user's contacts as JSON, sorted by last
// name. Other users' contacts are never part of the result.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts --header "Authorization: Bearer $TOKEN"
func findContacts(c *gin.Context) {
	userId := auth.CurrentUserId(c)
	list, err := contacts.ListForOwner(userId)
	if err != nil {
		internalError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, list)
}

// findContactByID locates the contact whose ID value matches the id parameter of the request
// URL, then returns that contact as a response. A contact that does not exist and a contact
// owned by a different user both yield NOT FOUND.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts/56 --header "Authorization: Bearer $TOKEN"
func findContactByID(c *gin.Context) {
	userId := auth.CurrentUserId(c)
	id, ok := parseId(c)
	if !ok {
		return
	}
	contact, err := contacts.FindForOwner(userId, id)
	if errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "contact not found"})
		return
	}
	if err != nil {
		internalError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, contact)
}

// newContactForm responds with a blank set of contact fields, the JSON equivalent of an empty
// form.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts/new --header "Authorization: Bearer $TOKEN"
func newContactForm(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, gin.H{"firstname": "", "lastname": "", "phone": ""})
}

// editContactForm responds with the persisted field values of the contact, the JSON equivalent
// of a populated form. The lookup is scoped to the current user like every other read.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts/56/edit --header "Authorization: Bearer $TOKEN"
func editContactForm(c *gin.Context) {
	userId := auth.CurrentUserId(c)
	id, ok := parseId(c)
	if !ok {
		return
	}
	contact, err := contacts.FindForOwner(userId, id)
	if errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "contact not found"})
		return
	}
	if err != nil {
		internalError(c, err)
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{
		"firstname": contact.FirstName,
		"lastname":  contact.LastName,
		"phone":     contact.Phone,
	})
}

// createContact inserts a new contact for the current user. Only the whitelisted fields of the
// request body are used; a submitted id or user_id is ignored. Invalid field values are answered
// with UNPROCESSABLE ENTITY, the field errors, and the submitted values for re-display; nothing
// is persisted in that case. On success the response redirects to the new contact.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts --request "POST" --header "Authorization: Bearer $TOKEN" --header "Content-Type: application/json" --data '{"firstname": "Erika", "lastname": "Mustermann", "phone": "555-123-4567"}'
func createContact(c *gin.Context) {
	userId := auth.CurrentUserId(c)
	var params model.ContactParams
	if err := c.BindJSON(&params); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	firstName := stringValue(params.FirstName)
	lastName := stringValue(params.LastName)
	phone := stringValue(params.Phone)
	if fieldErrors := model.Validate(firstName, lastName, phone); len(fieldErrors) > 0 {
		unprocessable(c, fieldErrors, params)
		return
	}
	contact, err := contacts.Create(userId, firstName, lastName, phone)
	if err != nil {
		internalError(c, err)
		return
	}
	c.Header("Location", fmt.Sprintf("/contacts/%d", contact.Id))
	c.IndentedJSON(http.StatusSeeOther, gin.H{
		"notice":  "Contact created successfully!",
		"contact": contact,
	})
}

// updateContactByID updates the contact whose ID value matches the id parameter of the request
// URL. Submitted fields are merged over the persisted values and the result is re-validated; a
// validation failure leaves the stored contact untouched and echoes the submitted values back.
//
// Example REST API calls:
//
//	> curl http://localhost:8080/contacts/56 --request "PUT" --header "Authorization: Bearer $TOKEN" --header "Content-Type: application/json" --data '{"phone": "555-987-6543"}'
//	> curl http://localhost:8080/contacts/56 --request "PATCH" --header "Authorization: Bearer $TOKEN" --header "Content-Type: application/json" --data '{"lastname": "Musterfrau"}'
func updateContactByID(c *gin.Context) {
	userId := auth.CurrentUserId(c)
	id, ok := parseId(c)
	if !ok {
		return
	}
	contact, err := contacts.FindForOwner(userId, id)
	if errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "contact not found"})
		return
	}
	if err != nil {
		internalError(c, err)
		return
	}

	var params model.ContactParams
	if errBind := c.BindJSON(&params); errBind != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	firstName := contact.FirstName
	if params.FirstName != nil {
		firstName = *params.FirstName
	}
	lastName := contact.LastName
	if params.LastName != nil {
		lastName = *params.LastName
	}
	phone := contact.Phone
	if params.Phone != nil {
		phone = *params.Phone
	}
	if fieldErrors := model.Validate(firstName, lastName, phone); len(fieldErrors) > 0 {
		unprocessable(c, fieldErrors, params)
		return
	}

	updated, err := contacts.Update(contact, firstName, lastName, phone)
	if err != nil {
		internalError(c, err)
		return
	}
	c.Header("Location", fmt.Sprintf("/contacts/%d", updated.Id))
	c.IndentedJSON(http.StatusSeeOther, gin.H{
		"notice":  "Contact updated successfully!",
		"contact": updated,
	})
}

// deleteContactByID deletes the contact whose ID value matches the id parameter of the request
// URL, provided the current user owns it. On success the response redirects to the contact list.
//
// Example REST API call:
//
//	> curl http://localhost:8080/contacts/56 --request "DELETE" --header "Authorization: Bearer $TOKEN"
func deleteContactByID(c *gin.Context) {
	userId := auth.CurrentUserId(c)
	id, ok := parseId(c)
	if !ok {
		return
	}
	contact, err := contacts.FindForOwner(userId, id)
	if errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "contact not found"})
		return
	}
	if err != nil {
		internalError(c, err)
		return
	}
	if err := contacts.Delete(contact); err != nil {
		internalError(c, err)
		return
	}
	c.Header("Location", "/contacts")
	c.IndentedJSON(http.StatusSeeOther, gin.H{"notice": "Contact deleted!"})
}

// parseId reads the id path parameter. A non-numeric id is answered like an absent contact, so
// the response does not reveal anything about what exists.
func parseId(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "contact not found"})
		return 0, false
	}
	return id, true
}

// unprocessable answers a validation failure with the field errors and the submitted values, so
// the caller can re-display the form.
func unprocessable(c *gin.Context, fieldErrors []model.FieldError, params model.ContactParams) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
		"errors":  fieldErrors,
		"contact": params,
	})
}

// internalError reports an unclassified persistence fault.
func internalError(c *gin.Context, err error) {
	log.Error("database failure", "error", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
}

// stringValue dereferences an optional field, treating an omitted field as blank.
func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
