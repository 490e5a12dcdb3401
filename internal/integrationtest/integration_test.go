package integrationtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfiedler/contactbook/internal/auth"
	"github.com/mfiedler/contactbook/internal/logger"
	"github.com/mfiedler/contactbook/internal/model"
	"github.com/mfiedler/contactbook/internal/service"
)

// These tests run against a real MySQL database and are skipped unless DBHOST is set. Run the
// migration first:
// > DBHOST=localhost DBUSER=dirk DBPWD=bullo92 go test ./internal/integrationtest/...

// testSecret signs the tokens for the integration run.
const testSecret = "integration-secret"

// setupService connects to the real database and returns the router plus a raw handle for
// seeding.
func setupService(t *testing.T) (*gin.Engine, *sqlx.DB) {
	if os.Getenv("DBHOST") == "" {
		t.Skip("DBHOST not set, skipping integration test")
	}
	baseLog, err := logger.New("dev")
	require.NoError(t, err)
	sqlDB := service.CreateDatabase(baseLog)
	service.SetupContactStore(sqlDB, baseLog)
	gin.SetMode(gin.ReleaseMode)
	router := service.SetupHttpRouter(auth.New(testSecret))
	return router, sqlx.NewDb(sqlDB, "mysql")
}

// seedUser makes sure a user with the given email exists and returns its id.
func seedUser(t *testing.T, db *sqlx.DB, email string) int64 {
	result := db.MustExec(
		"INSERT INTO users (email) VALUES (?) ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)",
		email,
	)
	id, err := result.LastInsertId()
	require.NoError(t, err)
	return id
}

// send executes a request against the router with a token for the given user.
func send(t *testing.T, router *gin.Engine, userId int64, method string, url string, body string) *httptest.ResponseRecorder {
	token, err := auth.New(testSecret).IssueToken(userId, time.Hour)
	require.NoError(t, err)
	recorder := httptest.NewRecorder()
	request, _ := http.NewRequest(method, url, strings.NewReader(body))
	request.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(recorder, request)
	return recorder
}

// createContact creates a contact through the API and returns its id.
func createContact(t *testing.T, router *gin.Engine, userId int64, firstName, lastName, phone string) int64 {
	body := fmt.Sprintf(`{"firstname": %q, "lastname": %q, "phone": %q}`, firstName, lastName, phone)
	recorder := send(t, router, userId, "POST", "/contacts", body)
	require.Equal(t, http.StatusSeeOther, recorder.Code, recorder.Body.String())
	var created struct {
		Contact model.Contact `json:"contact"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &created))
	return created.Contact.Id
}

// TestContactHappyPath creates, reads, updates, and deletes a contact with valid data.
func TestContactHappyPath(t *testing.T) {
	router, db := setupService(t)
	userId := seedUser(t, db, "happy-path@contactbook.test")

	id := createContact(t, router, userId, "Erika", "Mustermann", "555-123-4567")
	defer send(t, router, userId, "DELETE", fmt.Sprintf("/contacts/%d", id), "")

	// read it back
	getRecorder := send(t, router, userId, "GET", fmt.Sprintf("/contacts/%d", id), "")
	assert.Equal(t, http.StatusOK, getRecorder.Code)
	var contact model.Contact
	require.NoError(t, json.Unmarshal(getRecorder.Body.Bytes(), &contact))
	assert.Equal(t, "Erika", contact.FirstName)
	assert.Equal(t, "Mustermann", contact.LastName)
	assert.Equal(t, "555-123-4567", contact.Phone)
	assert.Equal(t, userId, contact.UserId)

	// partial update
	putRecorder := send(t, router, userId, "PATCH", fmt.Sprintf("/contacts/%d", id), `{"phone": "555-987-6543"}`)
	assert.Equal(t, http.StatusSeeOther, putRecorder.Code)
	getRecorder = send(t, router, userId, "GET", fmt.Sprintf("/contacts/%d", id), "")
	require.NoError(t, json.Unmarshal(getRecorder.Body.Bytes(), &contact))
	assert.Equal(t, "555-987-6543", contact.Phone)
	assert.Equal(t, "Mustermann", contact.LastName)

	// delete, then the lookup must fail
	deleteRecorder := send(t, router, userId, "DELETE", fmt.Sprintf("/contacts/%d", id), "")
	assert.Equal(t, http.StatusSeeOther, deleteRecorder.Code)
	getRecorder = send(t, router, userId, "GET", fmt.Sprintf("/contacts/%d", id), "")
	assert.Equal(t, http.StatusNotFound, getRecorder.Code)
}

// TestContactListOrder inserts contacts out of order and expects the list sorted by last name.
func TestContactListOrder(t *testing.T) {
	router, db := setupService(t)
	userId := seedUser(t, db, "list-order@contactbook.test")

	zedId := createContact(t, router, userId, "Zoe", "Zed", "555-000-0001")
	defer send(t, router, userId, "DELETE", fmt.Sprintf("/contacts/%d", zedId), "")
	abeId := createContact(t, router, userId, "Amy", "Abe", "555-000-0002")
	defer send(t, router, userId, "DELETE", fmt.Sprintf("/contacts/%d", abeId), "")

	recorder := send(t, router, userId, "GET", "/contacts", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	var contacts []model.Contact
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &contacts))
	require.Equal(t, 2, len(contacts))
	assert.Equal(t, "Abe", contacts[0].LastName)
	assert.Equal(t, "Zed", contacts[1].LastName)
}

// TestContactOwnershipIsolation makes sure one user can never see or touch another user's
// contact, and that the response does not differ from an absent record.
func TestContactOwnershipIsolation(t *testing.T) {
	router, db := setupService(t)
	ownerId := seedUser(t, db, "owner@contactbook.test")
	otherId := seedUser(t, db, "other@contactbook.test")

	id := createContact(t, router, ownerId, "Erika", "Mustermann", "555-123-4567")
	defer send(t, router, ownerId, "DELETE", fmt.Sprintf("/contacts/%d", id), "")

	assert.Equal(t, http.StatusNotFound, send(t, router, otherId, "GET", fmt.Sprintf("/contacts/%d", id), "").Code)
	assert.Equal(t, http.StatusNotFound, send(t, router, otherId, "PUT", fmt.Sprintf("/contacts/%d", id), `{"phone": "555-000-0000"}`).Code)
	assert.Equal(t, http.StatusNotFound, send(t, router, otherId, "DELETE", fmt.Sprintf("/contacts/%d", id), "").Code)

	// the owner still sees the unmodified contact
	getRecorder := send(t, router, ownerId, "GET", fmt.Sprintf("/contacts/%d", id), "")
	assert.Equal(t, http.StatusOK, getRecorder.Code)
	var contact model.Contact
	require.NoError(t, json.Unmarshal(getRecorder.Body.Bytes(), &contact))
	assert.Equal(t, "555-123-4567", contact.Phone)
}

// TestContactValidationRejection submits an invalid contact and expects that nothing was
// persisted.
func TestContactValidationRejection(t *testing.T) {
	router, db := setupService(t)
	userId := seedUser(t, db, "validation@contactbook.test")

	recorder := send(t, router, userId, "POST", "/contacts", `{"firstname": "", "lastname": "Doe", "phone": "555-123-4567"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)

	listRecorder := send(t, router, userId, "GET", "/contacts", "")
	assert.Equal(t, http.StatusOK, listRecorder.Code)
	var contacts []model.Contact
	require.NoError(t, json.Unmarshal(listRecorder.Body.Bytes(), &contacts))
	assert.Equal(t, 0, len(contacts))
}
