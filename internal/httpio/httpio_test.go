package httpio

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeCredentials(t *testing.T) {
	jsonReq := func(body string) *http.Request {
		r := httptest.NewRequest("POST", "/", strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
		return r
	}
	formReq := func(v url.Values) *http.Request {
		r := httptest.NewRequest("POST", "/", strings.NewReader(v.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return r
	}

	c, err := DecodeCredentials(httptest.NewRecorder(), jsonReq(`{"username":"alice","password":"pw"}`), false)
	require.NoError(t, err)
	require.Equal(t, Credentials{Username: "alice", Password: "pw"}, c)

	_, err = DecodeCredentials(httptest.NewRecorder(), jsonReq(`{"username":"alice"}`), false)
	require.Equal(t, MissingField{Name: "password"}, err)
	_, err = DecodeCredentials(httptest.NewRecorder(), jsonReq(``), false)
	require.Equal(t, MissingField{Name: "username"}, err)
	_, err = DecodeCredentials(httptest.NewRecorder(), jsonReq(`{"username":`), false)
	require.ErrorAs(t, err, &InvalidBody{})

	c, err = DecodeCredentials(httptest.NewRecorder(), formReq(url.Values{"username": {"alice"}, "password": {"pw"}}), true)
	require.NoError(t, err)
	require.Equal(t, "alice", c.Username)

	// form bodies are only read when allowed
	_, err = DecodeCredentials(httptest.NewRecorder(), formReq(url.Values{"username": {"alice"}, "password": {"pw"}}), false)
	require.Error(t, err)
	_, err = DecodeCredentials(httptest.NewRecorder(), formReq(url.Values{"username": {"alice"}}), true)
	require.Equal(t, MissingField{Name: "password"}, err)
}

func TestWriteUnauthorized(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteUnauthorized(rec, "nope")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	require.JSONEq(t, `{"detail":"nope"}`, rec.Body.String())
}

func TestDecodeCredentialsBodyLimit(t *testing.T) {
	huge := strings.Repeat("x", maxBodySize+1)
	requests := map[string]*http.Request{}

	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"username":"alice","password":"`+huge+`"}`))
	r.Header.Set("Content-Type", "application/json")
	requests["json"] = r

	r = httptest.NewRequest("POST", "/", strings.NewReader(url.Values{"username": {"alice"}, "password": {huge}}.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	requests["form"] = r

	for name, r := range requests {
		_, err := DecodeCredentials(httptest.NewRecorder(), r, true)
		var tooLarge *http.MaxBytesError
		require.ErrorAs(t, err, &tooLarge, name)

		rec := httptest.NewRecorder()
		WriteDecodeError(rec, err)
		require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, name)
	}
}

func TestDecodeCredentialsMultipartLimit(t *testing.T) {
	var body strings.Builder
	body.WriteString("--b\r\nContent-Disposition: form-data; name=\"username\"\r\n\r\nalice\r\n")
	body.WriteString("--b\r\nContent-Disposition: form-data; name=\"password\"\r\n\r\n")
	body.WriteString(strings.Repeat("x", 2*maxBodySize))
	body.WriteString("\r\n--b--\r\n")
	r := httptest.NewRequest("POST", "/", strings.NewReader(body.String()))
	r.Header.Set("Content-Type", "multipart/form-data; boundary=b")
	_, err := DecodeCredentials(httptest.NewRecorder(), r, true)
	require.Error(t, err)
}
