package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/roomie-matcher/internal/ai"
	"github.com/spigell/roomie-matcher/internal/matching"
	"github.com/spigell/roomie-matcher/internal/profile"
)

type fixedAssessor struct{ score float64 }

func (a fixedAssessor) Assess(context.Context, *profile.Profile, *profile.Profile, float64) (*ai.Assessment, error) {
	return &ai.Assessment{Score: a.score, Reasons: []string{"Both love board games"}}, nil
}

type failingStore struct{ profile.Store }

func (failingStore) List(context.Context) ([]*profile.Profile, error) {
	return nil, errors.New("disk on fire")
}

func (failingStore) Get(context.Context, string) (*profile.Profile, error) {
	return &profile.Profile{ID: "user_001", Completed: true}, nil
}

func seededStore(t *testing.T) profile.Store {
	t.Helper()

	store, err := profile.NewFileStore(filepath.Join(t.TempDir(), "profiles.json"))
	require.NoError(t, err)

	base := func(id string, completed bool) *profile.Profile {
		return &profile.Profile{
			ID:        id,
			BasicInfo: &profile.BasicInfo{FirstName: id, Location: "Austin, TX"},
			PreferencesInfo: &profile.PreferencesInfo{
				NoiseLevel:       "quiet",
				CleanlinessLevel: "clean",
			},
			HousingInfo: &profile.HousingInfo{Budget: &profile.Budget{Min: 900, Max: 1400}},
			Completed:   completed,
		}
	}

	for _, p := range []*profile.Profile{
		base("user_001", true),
		base("user_002", true),
		base("user_003", false),
		{ID: "user_004", Completed: true},
	} {
		require.NoError(t, store.Upsert(context.Background(), p))
	}
	return store
}

func newTestServer(t *testing.T, store profile.Store, assessor ai.Assessor, cfg Config) http.Handler {
	t.Helper()
	ranker := matching.NewRanker(matching.Config{}, assessor, nil, nil)
	return NewServer(store, ranker, cfg, nil).Handler()
}

func decodeMatches(t *testing.T, rec *httptest.ResponseRecorder) matchesResponse {
	t.Helper()
	var resp matchesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestPostMatchesByID(t *testing.T) {
	h := newTestServer(t, seededStore(t), nil, Config{MinScore: 60})

	body := bytes.NewBufferString(`{"current_user_id": "user_001"}`)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/matches", body))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decodeMatches(t, rec)
	_, err := uuid.Parse(resp.RequestID)
	require.NoError(t, err)
	assert.Equal(t, rec.Header().Get(requestIDHeader), resp.RequestID)

	require.Len(t, resp.Matches, 1)
	assert.Equal(t, "user_002", resp.Matches[0].Profile.ID)
	assert.Equal(t, matching.RuleBasedOnly, resp.Matches[0].AIState)
}

func TestPostMatchesInlineUserAndLimits(t *testing.T) {
	h := newTestServer(t, seededStore(t), nil, Config{MinScore: 60})

	body := bytes.NewBufferString(`{"current_user": {"id": "guest", "completed": true}, "min_score": 0, "max_results": 2}`)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/matches", body))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeMatches(t, rec)
	assert.Len(t, resp.Matches, 2)
}

func TestPostMatchesErrors(t *testing.T) {
	h := newTestServer(t, seededStore(t), nil, Config{})

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "broken body", body: `{"current_user_id": `, status: http.StatusBadRequest},
		{name: "no user", body: `{}`, status: http.StatusBadRequest},
		{name: "unknown user", body: `{"current_user_id": "user_404"}`, status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/matches", bytes.NewBufferString(tt.body)))

			assert.Equal(t, tt.status, rec.Code)
			var payload map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&payload))
			assert.NotEmpty(t, payload["error"])
		})
	}
}

func TestGetProfile(t *testing.T) {
	h := newTestServer(t, seededStore(t), nil, Config{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profiles/user_003", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var p profile.Profile
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
	assert.Equal(t, "user_003", p.ID)
	assert.False(t, p.Completed)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profiles/nobody", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetProfileMatchesWithAI(t *testing.T) {
	store := seededStore(t)

	enabled := newTestServer(t, store, fixedAssessor{score: 95}, Config{AIEnabled: true})
	rec := httptest.NewRecorder()
	enabled.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profiles/user_001/matches?use_ai=true&min_score=0", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeMatches(t, rec)
	require.Len(t, resp.Matches, 2)
	assert.Equal(t, matching.AIApplied, resp.Matches[0].AIState)
	assert.Equal(t, 95.0, resp.Matches[0].Score)

	// With AI disabled in config the flag is ignored.
	disabled := newTestServer(t, store, fixedAssessor{score: 95}, Config{})
	rec = httptest.NewRecorder()
	disabled.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profiles/user_001/matches?use_ai=true&min_score=0", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	for _, m := range decodeMatches(t, rec).Matches {
		assert.Equal(t, matching.RuleBasedOnly, m.AIState)
	}
}

func TestGetProfileMatchesBadQuery(t *testing.T) {
	h := newTestServer(t, seededStore(t), nil, Config{})

	for _, query := range []string{"max_results=ten", "min_score=high", "use_ai=maybe"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profiles/user_001/matches?"+query, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestStoreFailureIsInternalError(t *testing.T) {
	h := newTestServer(t, failingStore{}, nil, Config{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profiles/user_001/matches", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk on fire")
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t, seededStore(t), nil, Config{})

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, incoming)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, incoming, rec.Header().Get(requestIDHeader))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "roomie_http_requests_total")
}
