package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/quizhive/quizhive/internal/quizhive/access"
	"github.com/quizhive/quizhive/internal/quizhive/account"
	"github.com/quizhive/quizhive/internal/quizhive/analytics"
	"github.com/quizhive/quizhive/internal/quizhive/db"
	"github.com/quizhive/quizhive/internal/quizhive/events"
	"github.com/quizhive/quizhive/internal/quizhive/identity"
	"github.com/quizhive/quizhive/internal/quizhive/membership"
	"github.com/quizhive/quizhive/internal/quizhive/models"
	"github.com/quizhive/quizhive/internal/quizhive/notify"
	"github.com/quizhive/quizhive/internal/quizhive/quiz"
	"github.com/quizhive/quizhive/internal/quizhive/votestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type nopProducer struct{}

func (nopProducer) Produce(events.EventType, *models.Quiz) {}

// newTestServer wires the full API over in-memory backends.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "failed to open test database")
	require.NoError(t, db.Migrate(gdb), "failed to migrate test database")
	repo := db.New(gdb)

	logger := zaptest.NewLogger(t)
	signer := identity.NewSigner("secret", "quizhive", time.Hour)
	gate := access.NewGate(repo)
	mr := miniredis.RunT(t)
	votes := votestore.New(votestore.NewClient(mr.Addr(), "", 0))

	api := &API{
		Users:         account.NewUserService(repo, signer, logger),
		Companies:     account.NewCompanyService(repo, gate, logger),
		Membership:    membership.NewService(repo, gate, logger),
		Quizzes:       quiz.NewService(repo, gate, nopProducer{}, votes, logger),
		Analytics:     analytics.NewService(repo, gate, logger),
		Notifications: notify.NewService(repo, logger),
		Resolver:      identity.NewResolver(repo, signer, identity.ProviderConfig{}, logger),
	}

	server := httptest.NewServer(api.Handler())
	t.Cleanup(server.Close)
	return server
}

type client struct {
	t      *testing.T
	base   string
	token  string
	client *http.Client
}

func (c *client) do(method, path string, body interface{}) (*http.Response, []byte) {
	c.t.Helper()
	var payload *bytes.Buffer = bytes.NewBuffer(nil)
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		payload = bytes.NewBuffer(data)
	}
	req, err := http.NewRequest(method, c.base+path, payload)
	require.NoError(c.t, err)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(c.t, err)
	return resp, buf.Bytes()
}

// signup registers and logs in, returning an authenticated client.
func signup(t *testing.T, server *httptest.Server, email string) *client {
	t.Helper()
	c := &client{t: t, base: server.URL, client: server.Client()}

	resp, _ := c.do(http.MethodPost, "/v1/users", map[string]interface{}{
		"email":    email,
		"password": "long-enough",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "registration should succeed")

	resp, body := c.do(http.MethodPost, "/v1/login", map[string]interface{}{
		"email":    email,
		"password": "long-enough",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "login should succeed")

	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &login))
	c.token = login.Token
	return c
}

// TestAuthRequired rejects protected routes without a credential.
func TestAuthRequired(t *testing.T) {
	server := newTestServer(t)
	c := &client{t: t, base: server.URL, client: server.Client()}

	resp, _ := c.do(http.MethodGet, "/v1/users", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	c.token = "garbage"
	resp, _ = c.do(http.MethodGet, "/v1/users", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// TestRegisterLoginFlow exercises the public endpoints and a protected read.
func TestRegisterLoginFlow(t *testing.T) {
	server := newTestServer(t)
	c := signup(t, server, "alice@example.com")

	resp, body := c.do(http.MethodGet, "/v1/users", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var page struct {
		Data      []models.User `json:"data"`
		TotalItem int64         `json:"total_item"`
	}
	require.NoError(t, json.Unmarshal(body, &page))
	require.Len(t, page.Data, 1)
	assert.EqualValues(t, 1, page.TotalItem)
	assert.Equal(t, "alice@example.com", page.Data[0].Email)
}

// TestLoginWrongPassword maps invalid credentials to 401.
func TestLoginWrongPassword(t *testing.T) {
	server := newTestServer(t)
	signup(t, server, "alice@example.com")

	c := &client{t: t, base: server.URL, client: server.Client()}
	resp, _ := c.do(http.MethodPost, "/v1/login", map[string]interface{}{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// TestCompanyQuizVoteFlow walks the main write path end to end.
func TestCompanyQuizVoteFlow(t *testing.T) {
	server := newTestServer(t)
	c := signup(t, server, "owner@example.com")

	resp, body := c.do(http.MethodPost, "/v1/companies", map[string]interface{}{"name": "Acme"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var company models.Company
	require.NoError(t, json.Unmarshal(body, &company))

	resp, body = c.do(http.MethodPost, fmt.Sprintf("/v1/companies/%d/quizzes", company.ID), map[string]interface{}{
		"title":             "Onboarding",
		"frequency_in_days": 7,
		"questions": []map[string]interface{}{
			{
				"question_text": "2+2?",
				"answers": []map[string]interface{}{
					{"answer_text": "4", "is_correct": true},
					{"answer_text": "5"},
				},
			},
			{
				"question_text": "Capital of France?",
				"answers": []map[string]interface{}{
					{"answer_text": "Paris", "is_correct": true},
					{"answer_text": "Lyon"},
				},
			},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "quiz creation should succeed: %s", body)
	var created models.Quiz
	require.NoError(t, json.Unmarshal(body, &created))
	require.Len(t, created.Questions, 2)

	votes := map[string]uint{}
	for _, q := range created.Questions {
		for _, a := range q.Answers {
			if a.IsCorrect {
				votes[fmt.Sprint(q.ID)] = a.ID
			}
		}
	}
	resp, body = c.do(http.MethodPost,
		fmt.Sprintf("/v1/companies/%d/quizzes/%d/votes", company.ID, created.ID),
		map[string]interface{}{"votes": votes})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "vote submission should succeed: %s", body)

	var result models.QuizResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, float64(100), result.Score)

	resp, body = c.do(http.MethodGet, "/v1/analytics/me/rating", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rating struct {
		AverageScore float64 `json:"average_score"`
	}
	require.NoError(t, json.Unmarshal(body, &rating))
	assert.Equal(t, float64(100), rating.AverageScore)

	resp, _ = c.do(http.MethodGet, fmt.Sprintf("/v1/quizzes/%d/votes/export", created.ID), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
}

// TestInvitationConflictStatus reports duplicate membership attempts as 208.
func TestInvitationConflictStatus(t *testing.T) {
	server := newTestServer(t)
	owner := signup(t, server, "owner@example.com")
	target := signup(t, server, "target@example.com")

	resp, body := owner.do(http.MethodPost, "/v1/companies", map[string]interface{}{"name": "Acme"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var company models.Company
	require.NoError(t, json.Unmarshal(body, &company))

	// Target discovers their own user ID via the listing.
	resp, body = target.do(http.MethodGet, "/v1/users", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page struct {
		Data []models.User `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &page))
	var targetID uint
	for _, u := range page.Data {
		if u.Email == "target@example.com" {
			targetID = u.ID
		}
	}
	require.NotZero(t, targetID)

	invite := map[string]interface{}{"user_id": targetID}
	resp, _ = owner.do(http.MethodPost, fmt.Sprintf("/v1/companies/%d/invitations", company.ID), invite)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = owner.do(http.MethodPost, fmt.Sprintf("/v1/companies/%d/invitations", company.ID), invite)
	assert.Equal(t, http.StatusAlreadyReported, resp.StatusCode, "duplicate invitation reads as already reported")

	resp, _ = target.do(http.MethodPost, fmt.Sprintf("/v1/companies/%d/requests", company.ID), nil)
	assert.Equal(t, http.StatusAlreadyReported, resp.StatusCode, "pending invitation blocks a request")
}

// TestForbiddenMapsTo403 verifies role failures surface as 403.
func TestForbiddenMapsTo403(t *testing.T) {
	server := newTestServer(t)
	owner := signup(t, server, "owner@example.com")
	stranger := signup(t, server, "stranger@example.com")

	resp, body := owner.do(http.MethodPost, "/v1/companies", map[string]interface{}{"name": "Acme"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var company models.Company
	require.NoError(t, json.Unmarshal(body, &company))

	resp, _ = stranger.do(http.MethodDelete, fmt.Sprintf("/v1/companies/%d", company.ID), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = stranger.do(http.MethodGet, fmt.Sprintf("/v1/companies/%d/candidates", company.ID), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// TestNotFoundMapsTo404 verifies missing entities surface as 404.
func TestNotFoundMapsTo404(t *testing.T) {
	server := newTestServer(t)
	c := signup(t, server, "alice@example.com")

	resp, _ := c.do(http.MethodGet, "/v1/quizzes/9999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = c.do(http.MethodGet, "/v1/users/9999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
