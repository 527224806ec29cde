// Package httpio has the small JSON helpers shared by every handler.
package httpio

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

type (
	// Detail is the body of every error response
	Detail struct {
		Detail string `json:"detail"`
	}

	Credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	MissingField struct {
		Name string
	}

	InvalidBody struct {
		Cause error
	}
)

const (
	// requests here only carry a username and a password
	maxBodySize = 64 << 10
)

func (m MissingField) Error() string {
	return fmt.Sprintf("field required: %v", m.Name)
}

func (i InvalidBody) Error() string {
	return fmt.Sprintf("invalid request body: %v", i.Cause)
}

func (i InvalidBody) Unwrap() error {
	return i.Cause
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	buf, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "unable to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf)
}

func WriteDetail(w http.ResponseWriter, status int, detail string) {
	WriteJSON(w, status, Detail{Detail: detail})
}

// WriteUnauthorized sends a 401 with the bearer challenge header.
func WriteUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	WriteDetail(w, http.StatusUnauthorized, detail)
}

// WriteDecodeError maps the errors of DecodeCredentials to 422 responses,
// oversized bodies get 413.
func WriteDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		WriteDetail(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	var missing MissingField
	if errors.As(err, &missing) {
		WriteDetail(w, http.StatusUnprocessableEntity, missing.Error())
		return
	}
	WriteDetail(w, http.StatusUnprocessableEntity, err.Error())
}

// DecodeCredentials reads a username/password pair from a JSON body. When
// allowForm is set, form-urlencoded and multipart bodies are accepted too
// (OAuth2 password flow). Bodies over 64KiB are rejected whatever their type.
func DecodeCredentials(w http.ResponseWriter, r *http.Request, allowForm bool) (Credentials, error) {
	var c Credentials
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case allowForm && (mt == "application/x-www-form-urlencoded" || mt == "multipart/form-data"):
		var err error
		if mt == "multipart/form-data" {
			err = r.ParseMultipartForm(maxBodySize)
		} else {
			err = r.ParseForm()
		}
		if err != nil {
			return c, InvalidBody{Cause: err}
		}
		c.Username = r.PostFormValue("username")
		c.Password = r.PostFormValue("password")
	default:
		dec := json.NewDecoder(r.Body)
		var raw struct {
			Username *string `json:"username"`
			Password *string `json:"password"`
		}
		err := dec.Decode(&raw)
		if errors.Is(err, io.EOF) {
			return c, MissingField{Name: "username"}
		} else if err != nil {
			return c, InvalidBody{Cause: err}
		}
		if raw.Username == nil {
			return c, MissingField{Name: "username"}
		}
		if raw.Password == nil {
			return c, MissingField{Name: "password"}
		}
		c.Username, c.Password = *raw.Username, *raw.Password
		return c, nil
	}
	if len(strings.TrimSpace(c.Username)) == 0 {
		return c, MissingField{Name: "username"}
	}
	if len(c.Password) == 0 {
		return c, MissingField{Name: "password"}
	}
	return c, nil
}
