package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/points-ledger/ledger"
	"github.com/warp/points-ledger/store/memory"
)

func newTestServer(t *testing.T, roster ...string) *httptest.Server {
	t.Helper()
	store := memory.New()
	require.NoError(t, ledger.EnsureRoster(context.Background(), store, roster))
	svc := ledger.New(store)
	srv := httptest.NewServer(NewRouter(NewHandler(svc)))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func TestParticipantLifecycle(t *testing.T) {
	srv := newTestServer(t, "Ann")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/participants", map[string]string{"name": "Ben"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Duplicate is a client error.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/participants", map[string]string{"name": "Ben"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	var list struct {
		Participants []string `json:"participants"`
	}
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/participants", nil)
	decodeBody(t, resp, &list)
	assert.Equal(t, []string{"Ann", "Ben"}, list.Participants)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/participants/Ben", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/participants/Ben", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestRecordActivityEndpoint(t *testing.T) {
	srv := newTestServer(t, "Ann")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/weeks/2026-11/activities", map[string]any{
		"user": "Ann", "kind": "T1", "points": 15.0, "actor": "admin", "note": "first",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var result struct {
		Entry     ledger.ActivityEntry `json:"Entry"`
		Committed bool                 `json:"Committed"`
	}
	decodeBody(t, resp, &result)
	assert.True(t, result.Committed)
	assert.NotEmpty(t, result.Entry.ID)

	// Unknown kind: 400. Unknown user: 404.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/weeks/2026-11/activities", map[string]any{
		"user": "Ann", "kind": "T9", "points": 15.0, "actor": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/weeks/2026-11/activities", map[string]any{
		"user": "Zara", "kind": "T1", "points": 15.0, "actor": "admin",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Delete the recorded activity, then deleting again is 404.
	url := srv.URL + "/api/weeks/2026-11/activities/" + result.Entry.ID
	resp = doJSON(t, http.MethodDelete, url, map[string]string{"user": "Ann", "actor": "admin"})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodDelete, url, map[string]string{"user": "Ann", "actor": "admin"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestGoalAndStatsEndpoints(t *testing.T) {
	srv := newTestServer(t, "Ann", "Ben")

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/weeks/2026-11/goals/Ann", map[string]any{
		"points": 50.0, "actor": "admin",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/weeks/2026-11/activities", map[string]any{
		"user": "Ann", "kind": "telefonie", "points": 12.5, "actor": "admin",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	var stats struct {
		WeekID string `json:"week_id"`
		Users  []struct {
			User     string `json:"user"`
			Goal     string `json:"goal"`
			Achieved string `json:"achieved"`
		} `json:"users"`
	}
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/weeks/2026-11/stats", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &stats)
	assert.Equal(t, "2026-11", stats.WeekID)
	require.Len(t, stats.Users, 2)
	assert.Equal(t, "Ann", stats.Users[0].User)
	assert.Equal(t, "50", stats.Users[0].Goal)
	assert.Equal(t, "12.5", stats.Users[0].Achieved)
}

func TestVacationEndpoints(t *testing.T) {
	srv := newTestServer(t, "Ann")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/vacations", map[string]string{
		"user": "Ann", "start_date": "2026-01-05", "end_date": "2026-01-09",
		"reason": "Jahresurlaub", "actor": "admin",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var vr struct {
		WeeksAffected []string `json:"weeks_affected"`
	}
	decodeBody(t, resp, &vr)
	assert.Equal(t, []string{"2026-02"}, vr.WeeksAffected)

	// Inverted range: 400.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/vacations", map[string]string{
		"user": "Ann", "start_date": "2026-01-09", "end_date": "2026-01-05", "actor": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Bad date literal: 400.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/vacations", map[string]string{
		"user": "Ann", "start_date": "05.01.2026", "end_date": "2026-01-09", "actor": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	var periods struct {
		Periods []ledger.VacationPeriod `json:"periods"`
	}
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/participants/Ann/vacations", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &periods)
	require.Len(t, periods.Periods, 1)
	assert.Equal(t, "2026-01-05", periods.Periods[0].Start.String())
}

func TestAuditEndpoints(t *testing.T) {
	srv := newTestServer(t, "Ann")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/weeks/2026-11/activities", map[string]any{
		"user": "Ann", "kind": "T1", "points": 15.0, "actor": "admin",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	var audit struct {
		Audit []struct {
			User string `json:"user"`
			Type string `json:"type"`
		} `json:"audit"`
	}
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/weeks/2026-11/audit", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &audit)
	require.Len(t, audit.Audit, 1)
	assert.Equal(t, "activity", audit.Audit[0].Type)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/weeks/2026-11/audit.csv", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "at,week_id,user,actor,type"))
}

func TestApplyAndResetEndpoints(t *testing.T) {
	srv := newTestServer(t, "Ann")
	week := ledger.WeekKey(time.Now())

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/weeks/"+week+"/apply", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var applied struct {
		GoalsApplied      int `json:"GoalsApplied"`
		ActivitiesApplied int `json:"ActivitiesApplied"`
	}
	decodeBody(t, resp, &applied)
	assert.Zero(t, applied.GoalsApplied)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/weeks/"+week+"/reset", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var summary struct {
		WeekID            string `json:"week_id"`
		ParticipantsReset int    `json:"participants_reset"`
	}
	decodeBody(t, resp, &summary)
	assert.Equal(t, week, summary.WeekID)
	assert.Equal(t, 1, summary.ParticipantsReset)
}

func TestListWeeksAndRecommendationEndpoints(t *testing.T) {
	srv := newTestServer(t, "Ann")

	var weeks struct {
		Weeks   []string `json:"weeks"`
		Current string   `json:"current"`
	}
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/weeks", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &weeks)
	assert.Equal(t, ledger.WeekKey(time.Now()), weeks.Current)
	assert.Contains(t, weeks.Weeks, weeks.Current)

	var rec struct {
		Basis string `json:"basis"`
	}
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/participants/Ann/recommendation", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &rec)
	assert.Equal(t, "no_history", rec.Basis)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/participants/Zara/recommendation", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}
