package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trivia-arena/internal/config"
	"github.com/trivia-arena/internal/content"
	"github.com/trivia-arena/internal/domain"
	"github.com/trivia-arena/internal/match"
	"github.com/trivia-arena/internal/profile"
	"github.com/trivia-arena/internal/queue"
	"github.com/trivia-arena/internal/rank"
	"github.com/trivia-arena/internal/reward"
	"github.com/trivia-arena/internal/store"
)

var startAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// envelope mirrors APIResponse with a raw payload for per-test decoding
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestServer(t *testing.T) (*httptest.Server, *clockwork.FakeClock) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := store.NewMemoryStore()
	clock := clockwork.NewFakeClockAt(startAt)
	boards := store.NewMemoryBoards()
	profiles := profile.NewStore(s, logger)
	catalog := content.NewResolver(nil, logger)
	ranks := rank.NewResolver(profiles, catalog, logger)

	matchCfg := &config.MatchConfig{
		IntroDelay:      3500 * time.Millisecond,
		RoundDuration:   10 * time.Second,
		InterRoundGap:   2 * time.Second,
		LatencyBuffer:   2 * time.Second,
		EmoteCooldown:   2 * time.Second,
		RankedQuestions: 1,
		DailyQuestions:  1,
	}
	matches := match.NewService(s, profiles, catalog, ranks, matchCfg, clock, logger)
	queueCfg := &config.QueueConfig{AssignmentTTL: 60 * time.Second, MaxAttempts: 5}
	q := queue.NewService(s, matches, queueCfg, clock, logger)
	rewards := reward.NewService(s, profiles, matches, boards, nil, clock, logger)

	h := NewHandler(q, matches, rewards, profiles, boards, logger)
	server := httptest.NewServer(h.Router())
	t.Cleanup(server.Close)
	return server, clock
}

func doJSON(t *testing.T, method, url string, body interface{}) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func createProfile(t *testing.T, base, id string) {
	t.Helper()
	resp, env := doJSON(t, http.MethodPost, base+"/api/v1/profiles", map[string]interface{}{
		"id": id, "name": id, "elo": 1000,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.True(t, env.Success)
}

func TestHealthAndReady(t *testing.T) {
	server, _ := newTestServer(t)

	for _, path := range []string{"/health", "/ready"} {
		resp, env := doJSON(t, http.MethodGet, server.URL+path, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, env.Success)
	}
}

func TestProfileEndpoints(t *testing.T) {
	server, _ := newTestServer(t)
	createProfile(t, server.URL, "alice")

	resp, env := doJSON(t, http.MethodGet, server.URL+"/api/v1/profiles/alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var p domain.Profile
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, "alice", p.ID)
	assert.Equal(t, 1, p.Level)

	resp, _ = doJSON(t, http.MethodGet, server.URL+"/api/v1/profiles/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Duplicate registration conflicts
	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/v1/profiles", map[string]interface{}{
		"id": "alice", "name": "impostor",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Missing required fields
	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/v1/profiles", map[string]interface{}{
		"id": "no-name",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRankedMatchFlow(t *testing.T) {
	server, _ := newTestServer(t)
	createProfile(t, server.URL, "alice")
	createProfile(t, server.URL, "bob")

	// alice queues and waits
	resp, env := doJSON(t, http.MethodPost, server.URL+"/api/v1/queue/science/join",
		map[string]string{"user_id": "alice"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var joinResp map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &joinResp))
	assert.Equal(t, "waiting", joinResp["status"])

	// bob queues and the pair forms
	_, env = doJSON(t, http.MethodPost, server.URL+"/api/v1/queue/science/join",
		map[string]string{"user_id": "bob"})
	require.NoError(t, json.Unmarshal(env.Data, &joinResp))
	require.Equal(t, "assigned", joinResp["status"])
	matchID := joinResp["match_id"]
	require.NotEmpty(t, matchID)

	// alice polls her assignment
	_, env = doJSON(t, http.MethodGet, server.URL+"/api/v1/queue/science/assignment/alice", nil)
	require.NoError(t, json.Unmarshal(env.Data, &joinResp))
	assert.Equal(t, matchID, joinResp["match_id"])

	// fetch the match and answer the single question
	_, env = doJSON(t, http.MethodGet, server.URL+"/api/v1/matches/"+matchID, nil)
	var m domain.MatchState
	require.NoError(t, json.Unmarshal(env.Data, &m))
	require.Len(t, m.Questions, 1)
	correct := m.Questions[0].CorrectIndex

	resp, env = doJSON(t, http.MethodPost, server.URL+"/api/v1/matches/"+matchID+"/answers",
		map[string]interface{}{
			"user_id": "alice", "question_index": 0,
			"answer_index": correct, "time_remaining_ms": 8000,
		})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var answer domain.AnswerResult
	require.NoError(t, json.Unmarshal(env.Data, &answer))
	assert.True(t, answer.Correct)

	// duplicate answer maps to 409
	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/v1/matches/"+matchID+"/answers",
		map[string]interface{}{
			"user_id": "alice", "question_index": 0,
			"answer_index": correct, "time_remaining_ms": 7000,
		})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	wrong := (correct + 1) % 4
	_, _ = doJSON(t, http.MethodPost, server.URL+"/api/v1/matches/"+matchID+"/answers",
		map[string]interface{}{
			"user_id": "bob", "question_index": 0,
			"answer_index": wrong, "time_remaining_ms": 8000,
		})

	// both answered the only question: the result is final
	_, env = doJSON(t, http.MethodGet, server.URL+"/api/v1/matches/"+matchID+"/result", nil)
	require.NoError(t, json.Unmarshal(env.Data, &m))
	assert.Equal(t, domain.StatusFinished, m.Status)

	// alice claims her rewards, once
	resp, env = doJSON(t, http.MethodPost, server.URL+"/api/v1/matches/"+matchID+"/claim",
		map[string]string{"user_id": "alice"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var settlement reward.Settlement
	require.NoError(t, json.Unmarshal(env.Data, &settlement))
	assert.Equal(t, domain.OutcomeWin, settlement.Outcome)
	assert.Equal(t, 12, settlement.RatingDelta)

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/v1/matches/"+matchID+"/claim",
		map[string]string{"user_id": "alice"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// the rating board reflects the settlement
	_, env = doJSON(t, http.MethodGet, server.URL+"/api/v1/boards/rating:global/top?limit=1", nil)
	var entries []store.BoardEntry
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].Member)
	assert.Equal(t, int64(1012), entries[0].Score)
}

func TestPrivateLobbyFlow(t *testing.T) {
	server, _ := newTestServer(t)
	createProfile(t, server.URL, "alice")
	createProfile(t, server.URL, "bob")

	resp, env := doJSON(t, http.MethodPost, server.URL+"/api/v1/matches", map[string]interface{}{
		"user_ids": []string{"alice"}, "category_id": "history",
		"mode": "ranked", "private": true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var m domain.MatchState
	require.NoError(t, json.Unmarshal(env.Data, &m))
	assert.Equal(t, domain.StatusWaiting, m.Status)
	assert.Len(t, m.Code, 6)

	resp, env = doJSON(t, http.MethodPost, server.URL+"/api/v1/matches/"+m.ID+"/join",
		map[string]string{"user_id": "bob"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(env.Data, &m))
	assert.Equal(t, domain.StatusPlaying, m.Status)

	// A full lobby maps to 400
	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/v1/matches/"+m.ID+"/join",
		map[string]string{"user_id": "carol"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMatchErrorMapping(t *testing.T) {
	server, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, server.URL+"/api/v1/matches/no-such-match", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/v1/matches", map[string]interface{}{
		"user_ids": []string{"alice"}, "mode": "bogus",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/v1/queue/science/join",
		map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEmoteEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	createProfile(t, server.URL, "alice")

	_, env := doJSON(t, http.MethodPost, server.URL+"/api/v1/matches", map[string]interface{}{
		"user_ids": []string{"alice"}, "category_id": "science", "mode": "daily",
	})
	var m domain.MatchState
	require.NoError(t, json.Unmarshal(env.Data, &m))

	resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/v1/matches/"+m.ID+"/emotes",
		map[string]string{"user_id": "alice", "emoji": "🔥"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, server.URL+"/api/v1/matches/"+m.ID+"/emotes",
		map[string]string{"user_id": "ghost", "emoji": "🔥"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, env = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/v1/matches/%s", server.URL, m.ID), nil)
	require.NoError(t, json.Unmarshal(env.Data, &m))
	require.NotNil(t, m.Players["alice"].LastEmote)
	assert.Equal(t, "🔥", m.Players["alice"].LastEmote.Emoji)
}
