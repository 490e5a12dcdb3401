package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mfiedler/contactbook/internal/auth"
)

const serverPort = 8080

// token authenticates every request of the walkthrough.
var token string

// Walks through the whole API once: create, list, show, update, and
// delete a contact, including one rejected create. The secret must
// match the one the service was started with, and the user id must
// exist in the users table.
//
// Usage example on the command line:
// > JWT_SECRET=changeme USER_ID=1 go run main.go
func main() {
	userId, err := strconv.ParseInt(os.Getenv("USER_ID"), 10, 64)
	if err != nil {
		fmt.Println("could not parse USER_ID env variable", err)
		panic(err)
	}
	token, err = auth.New(os.Getenv("JWT_SECRET")).IssueToken(userId, time.Hour)
	if err != nil {
		fmt.Println("could not issue token", err)
		panic(err)
	}

	fmt.Println("--- create with an invalid phone number (rejected)")
	sendRequest(http.MethodPost, "/contacts", `{"firstname": "Erika", "lastname": "Mustermann", "phone": "5551234567"}`)

	fmt.Println("--- create")
	body := sendRequest(http.MethodPost, "/contacts", `{"firstname": "Erika", "lastname": "Mustermann", "phone": "555-123-4567"}`)
	var created struct {
		Contact struct {
			Id int64 `json:"id"`
		} `json:"contact"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		fmt.Println("could not unmarshal JSON", err)
		panic(err)
	}
	id := created.Contact.Id

	fmt.Println("--- list")
	sendRequest(http.MethodGet, "/contacts", "")

	fmt.Println("--- show")
	sendRequest(http.MethodGet, fmt.Sprintf("/contacts/%d", id), "")

	fmt.Println("--- update the phone number only")
	sendRequest(http.MethodPatch, fmt.Sprintf("/contacts/%d", id), `{"phone": "555-987-6543"}`)

	fmt.Println("--- delete")
	sendRequest(http.MethodDelete, fmt.Sprintf("/contacts/%d", id), "")

	fmt.Println("--- show after delete (not found)")
	sendRequest(http.MethodGet, fmt.Sprintf("/contacts/%d", id), "")
}

func sendRequest(method string, path string, body string) []byte {
	requestURL := fmt.Sprintf("http://localhost:%d%s", serverPort, path)
	req, err := http.NewRequest(method, requestURL, strings.NewReader(body))
	if err != nil {
		fmt.Println("could not create request", err)
		panic(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Println("error making http request", err)
		panic(err)
	}
	defer res.Body.Close()
	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		fmt.Println("could not read response body", err)
		panic(err)
	}
	fmt.Println(res.Status)
	fmt.Println(string(resBody))
	return resBody
}
