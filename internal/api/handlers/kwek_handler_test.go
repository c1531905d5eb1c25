package handlers_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwekker/kwekker-be/internal/api"
	"github.com/kwekker/kwekker-be/internal/auth"
	"github.com/kwekker/kwekker-be/internal/database"
	"github.com/kwekker/kwekker-be/internal/models"
	"github.com/kwekker/kwekker-be/internal/services"
)

const (
	testIssuer   = "https://kwekker-test.eu.auth0.com/"
	testAudience = "https://api.kwekker.test"
)

var testSecret = []byte("test-secret")

type postsAPI struct {
	db     *sql.DB
	server *httptest.Server
}

func setupPostsAPI(t *testing.T) *postsAPI {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "kwekker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	verifier := auth.NewVerifierWithKeyfunc(
		func(*jwt.Token) (any, error) { return testSecret, nil },
		testIssuer, testAudience)

	router := api.NewPostsRouter(services.NewKwekService(db), verifier, nil, []string{"*"})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &postsAPI{db: db, server: server}
}

func (a *postsAPI) addUser(t *testing.T, providerID, username string) {
	t.Helper()

	_, err := a.db.Exec(
		"INSERT INTO users(provider_id, username, email, display_name, avatar_url) VALUES(?, ?, ?, ?, ?)",
		providerID, username, username+"@example.com", "The "+username, "https://example.com/"+username+".png")
	require.NoError(t, err)
}

func bearerToken(t *testing.T, subject string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": testIssuer,
		"aud": testAudience,
		"sub": subject,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

func (a *postsAPI) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeKwek(t *testing.T, body io.Reader) models.Kwek {
	t.Helper()

	var kwek models.Kwek
	require.NoError(t, json.NewDecoder(body).Decode(&kwek))
	return kwek
}

func TestCreateKwekEndpoint(t *testing.T) {
	api := setupPostsAPI(t)
	api.addUser(t, "auth0|alice", "alice")
	alice := bearerToken(t, "auth0|alice")

	t.Run("without token", func(t *testing.T) {
		resp := api.do(t, http.MethodPost, "/kweks", "", models.KwekInput{Text: "hello"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("empty text", func(t *testing.T) {
		resp := api.do(t, http.MethodPost, "/kweks", alice, models.KwekInput{Text: ""})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("text over 256 characters", func(t *testing.T) {
		resp := api.do(t, http.MethodPost, "/kweks", alice, models.KwekInput{Text: strings.Repeat("q", 257)})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("valid kwek is created and retrievable", func(t *testing.T) {
		resp := api.do(t, http.MethodPost, "/kweks", alice, models.KwekInput{Text: "hello pond"})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		created := decodeKwek(t, resp.Body)
		assert.Equal(t, "hello pond", created.Text)
		assert.Equal(t, fmt.Sprintf("/kweks/%d", created.ID), resp.Header.Get("Location"))

		fetch := api.do(t, http.MethodGet, resp.Header.Get("Location"), "", nil)
		require.Equal(t, http.StatusOK, fetch.StatusCode)
		fetched := decodeKwek(t, fetch.Body)
		assert.Equal(t, created.ID, fetched.ID)
		assert.Equal(t, "hello pond", fetched.Text)
		assert.True(t, created.PostedAt.Equal(fetched.PostedAt))
	})

	t.Run("256-character text is accepted", func(t *testing.T) {
		resp := api.do(t, http.MethodPost, "/kweks", alice, models.KwekInput{Text: strings.Repeat("q", 256)})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("valid token without local user is a hard failure", func(t *testing.T) {
		resp := api.do(t, http.MethodPost, "/kweks", bearerToken(t, "auth0|stranger"), models.KwekInput{Text: "hi"})
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestGetKweksEndpoint(t *testing.T) {
	api := setupPostsAPI(t)
	api.addUser(t, "auth0|alice", "alice")
	api.addUser(t, "auth0|bob", "bob")

	for i, post := range []struct{ token, text string }{
		{bearerToken(t, "auth0|alice"), "from alice"},
		{bearerToken(t, "auth0|bob"), "from bob"},
		{bearerToken(t, "auth0|alice"), "alice again"},
	} {
		resp := api.do(t, http.MethodPost, "/kweks", post.token, models.KwekInput{Text: post.text})
		require.Equal(t, http.StatusCreated, resp.StatusCode, "post %d", i)
	}

	t.Run("lists most recent first", func(t *testing.T) {
		resp := api.do(t, http.MethodGet, "/kweks", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var kweks []models.Kwek
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&kweks))
		require.Len(t, kweks, 3)
		assert.Equal(t, "alice again", kweks[0].Text)
		assert.Equal(t, "from bob", kweks[1].Text)
		assert.Equal(t, "from alice", kweks[2].Text)
		for i := 1; i < len(kweks); i++ {
			assert.False(t, kweks[i-1].PostedAt.Before(kweks[i].PostedAt))
		}
	})

	t.Run("filters by username", func(t *testing.T) {
		resp := api.do(t, http.MethodGet, "/kweks?username=bob", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var kweks []models.Kwek
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&kweks))
		require.Len(t, kweks, 1)
		assert.Equal(t, "from bob", kweks[0].Text)
		assert.Equal(t, "bob", kweks[0].User.Username)
	})

	t.Run("nested user view hides internals", func(t *testing.T) {
		resp := api.do(t, http.MethodGet, "/kweks", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var raw []map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
		require.NotEmpty(t, raw)

		var user map[string]any
		require.NoError(t, json.Unmarshal(raw[0]["user"], &user))
		assert.ElementsMatch(t, []string{"username", "displayName", "avatarUrl"},
			mapKeys(user))
	})

	t.Run("unknown id", func(t *testing.T) {
		resp := api.do(t, http.MethodGet, "/kweks/99999", "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func mapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func TestUpdateKwekEndpoint(t *testing.T) {
	api := setupPostsAPI(t)
	api.addUser(t, "auth0|alice", "alice")
	api.addUser(t, "auth0|bob", "bob")
	alice := bearerToken(t, "auth0|alice")
	bob := bearerToken(t, "auth0|bob")

	resp := api.do(t, http.MethodPost, "/kweks", alice, models.KwekInput{Text: "original"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	location := resp.Header.Get("Location")

	t.Run("without token", func(t *testing.T) {
		resp := api.do(t, http.MethodPut, location, "", models.KwekInput{Text: "nope"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("another user's token", func(t *testing.T) {
		resp := api.do(t, http.MethodPut, location, bob, models.KwekInput{Text: "hijack"})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("invalid text", func(t *testing.T) {
		resp := api.do(t, http.MethodPut, location, alice, models.KwekInput{Text: ""})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("owner's token", func(t *testing.T) {
		resp := api.do(t, http.MethodPut, location, alice, models.KwekInput{Text: "revised"})
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		fetch := api.do(t, http.MethodGet, location, "", nil)
		require.Equal(t, http.StatusOK, fetch.StatusCode)
		assert.Equal(t, "revised", decodeKwek(t, fetch.Body).Text)
	})

	t.Run("unknown id", func(t *testing.T) {
		resp := api.do(t, http.MethodPut, "/kweks/99999", alice, models.KwekInput{Text: "x"})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestDeleteKwekEndpoint(t *testing.T) {
	api := setupPostsAPI(t)
	api.addUser(t, "auth0|alice", "alice")
	api.addUser(t, "auth0|bob", "bob")
	alice := bearerToken(t, "auth0|alice")
	bob := bearerToken(t, "auth0|bob")

	resp := api.do(t, http.MethodPost, "/kweks", alice, models.KwekInput{Text: "short-lived"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	location := resp.Header.Get("Location")

	t.Run("without token", func(t *testing.T) {
		resp := api.do(t, http.MethodDelete, location, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("another user's token", func(t *testing.T) {
		resp := api.do(t, http.MethodDelete, location, bob, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("owner's token", func(t *testing.T) {
		resp := api.do(t, http.MethodDelete, location, alice, nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		fetch := api.do(t, http.MethodGet, location, "", nil)
		assert.Equal(t, http.StatusNotFound, fetch.StatusCode)
	})

	t.Run("already deleted", func(t *testing.T) {
		resp := api.do(t, http.MethodDelete, location, alice, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
