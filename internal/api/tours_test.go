package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourguide/pkg/chunk"
	"tourguide/pkg/controller"
	"tourguide/pkg/session"
)

type decodedResponse struct {
	Status   controller.Status     `json:"status"`
	Error    string                `json:"error"`
	State    controller.State      `json:"state"`
	Revision uint64                `json:"revision"`
	Progress *session.Progress     `json:"progress"`
	Output   []json.RawMessage     `json:"output"`
	Tours    []session.TourSummary `json:"tours"`
	Tour     *session.TourSummary  `json:"tour"`
}

func (d decodedResponse) types(t *testing.T) []chunk.Kind {
	t.Helper()
	kinds := make([]chunk.Kind, len(d.Output))
	for i, raw := range d.Output {
		var env struct {
			Type chunk.Kind `json:"type"`
		}
		require.NoError(t, json.Unmarshal(raw, &env))
		kinds[i] = env.Type
	}
	return kinds
}

func newTestServer(t *testing.T) (*httptest.Server, *session.Manager) {
	t.Helper()
	ctrl := controller.New(controller.Params{WaypointRadius: 10, WaypointSeparation: 25}, nil)
	mgr := session.NewManager(ctrl, nil, nil)
	srv := NewServer(Options{AllowedOrigins: []string{"http://example.test"}},
		NewTourHandler(mgr),
		NewLiveHandler(mgr, nil),
		NewStatsHandler(mgr),
		NewTripHandler(mgr),
		nil,
	)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts, mgr
}

func call(t *testing.T, ts *httptest.Server, method, path, body string) (int, decodedResponse) {
	t.Helper()
	var rdr io.Reader = http.NoBody
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out decodedResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func authorOldTown(t *testing.T, ts *httptest.Server) {
	t.Helper()
	steps := []struct {
		method, path, body string
	}{
		{"POST", "/api/tours", `{"id":"T2","title":"Old Town","annotation":"From Edinburgh Castle to Holyrood\n"}`},
		{"PUT", "/api/location", `{"x":-500,"y":0}`},
		{"POST", "/api/tours/draft/waypoints", `{"annotation":"Edinburgh Castle\n"}`},
		{"POST", "/api/tours/draft/legs", `{"annotation":"Royal Mile\n"}`},
		{"PUT", "/api/location", `{"x":1000,"y":300}`},
		{"POST", "/api/tours/draft/waypoints", `{"annotation":"Holyrood Palace\n"}`},
		{"POST", "/api/tours/draft/end", ""},
	}
	for _, s := range steps {
		code, resp := call(t, ts, s.method, s.path, s.body)
		require.Equal(t, http.StatusOK, code, "%s %s: %s", s.method, s.path, resp.Error)
		require.Equal(t, controller.StatusOK, resp.Status)
	}
}

func TestTourHandler_AuthorAndFollow(t *testing.T) {
	ts, _ := newTestServer(t)
	authorOldTown(t, ts)

	code, resp := call(t, ts, "POST", "/api/browse", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, controller.StateBrowseOverview, resp.State)
	require.Len(t, resp.Tours, 1)
	assert.Equal(t, "T2", resp.Tours[0].ID)

	code, resp = call(t, ts, "POST", "/api/tours/T2/details", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, controller.StateBrowseDetails, resp.State)
	require.NotNil(t, resp.Tour)
	assert.InDelta(t, 1529.7, resp.Tour.RouteLength, 0.1)
	assert.Equal(t, []chunk.Kind{chunk.KindBrowseDetails}, resp.types(t))

	code, resp = call(t, ts, "POST", "/api/tours/T2/follow", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, controller.StateFollowing, resp.State)

	code, resp = call(t, ts, "PUT", "/api/location", `{"x":-490,"y":0}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []chunk.Kind{
		chunk.KindFollowHeader, chunk.KindFollowWaypoint, chunk.KindFollowLeg, chunk.KindFollowBearing,
	}, resp.types(t))
	require.NotNil(t, resp.Progress)
	assert.Equal(t, 1, resp.Progress.Visited)

	var bearing struct {
		Data chunk.FollowBearing `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Output[3], &bearing))
	assert.Equal(t, chunk.FollowBearing{Bearing: 79, Distance: 1520}, bearing.Data)

	code, resp = call(t, ts, "POST", "/api/follow/end", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []chunk.Kind{chunk.KindBrowseOverview}, resp.types(t))
}

func TestTourHandler_Errors(t *testing.T) {
	ts, _ := newTestServer(t)
	authorOldTown(t, ts)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"UnknownTour", "GET", "/api/tours/T9", "", http.StatusNotFound},
		{"DetailsUnknown", "POST", "/api/tours/T9/details", "", http.StatusNotFound},
		{"FollowUnknown", "POST", "/api/tours/T9/follow", "", http.StatusNotFound},
		{"DuplicateID", "POST", "/api/tours", `{"id":"T2","title":"Again"}`, http.StatusConflict},
		{"LegOutsideCreating", "POST", "/api/tours/draft/legs", "", http.StatusConflict},
		{"EndFollowNotFollowing", "POST", "/api/follow/end", "", http.StatusConflict},
		{"MissingTitle", "POST", "/api/tours", `{"id":"T3"}`, http.StatusBadRequest},
		{"BlankID", "POST", "/api/tours", `{"id":"   ","title":"Blank"}`, http.StatusBadRequest},
		{"BlankTitle", "POST", "/api/tours", `{"id":"T3","title":"\t"}`, http.StatusBadRequest},
		{"ControlOnlyID", "POST", "/api/tours", `{"id":"\u0001","title":"Ctl"}`, http.StatusBadRequest},
		{"MalformedBody", "POST", "/api/tours", `{"id":`, http.StatusBadRequest},
		{"LocationMissingY", "PUT", "/api/location", `{"x":1}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := call(t, ts, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, code)
			assert.Equal(t, controller.StatusError, resp.Status)
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, controller.StateBrowseOverview, resp.State)
		})
	}
}

func TestTourHandler_StartTrimsFields(t *testing.T) {
	ts, _ := newTestServer(t)

	code, resp := call(t, ts, "POST", "/api/tours", `{"id":"  T5 ","title":" Meadows\t"}`)
	require.Equal(t, http.StatusOK, code, resp.Error)
	call(t, ts, "PUT", "/api/location", `{"x":0,"y":-900}`)
	call(t, ts, "POST", "/api/tours/draft/waypoints", `{"annotation":"Meadows"}`)
	call(t, ts, "POST", "/api/tours/draft/end", "")

	code, resp = call(t, ts, "GET", "/api/tours/T5", "")
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, resp.Tour)
	assert.Equal(t, "Meadows", resp.Tour.Title)
}

func TestTourHandler_ReadsLeaveStateAlone(t *testing.T) {
	ts, _ := newTestServer(t)
	authorOldTown(t, ts)
	call(t, ts, "POST", "/api/tours", `{"id":"T3","title":"Draft"}`)

	code, resp := call(t, ts, "GET", "/api/tours", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, controller.StateCreating, resp.State)
	require.Len(t, resp.Tours, 1)
	assert.Equal(t, "T2", resp.Tours[0].ID)
	revision := resp.Revision

	code, resp = call(t, ts, "GET", "/api/tours/T2", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, controller.StateCreating, resp.State)
	assert.Equal(t, revision, resp.Revision)
	require.NotNil(t, resp.Tour)
	assert.Equal(t, 2, resp.Tour.Waypoints)

	code, _ = call(t, ts, "POST", "/api/tours/T2/details", "")
	assert.Equal(t, http.StatusConflict, code)
}

func TestTourHandler_TooCloseKeepsOutput(t *testing.T) {
	ts, _ := newTestServer(t)

	call(t, ts, "POST", "/api/tours", `{"id":"T1","title":"Forum"}`)
	call(t, ts, "PUT", "/api/location", `{"x":300,"y":-500}`)
	_, before := call(t, ts, "POST", "/api/tours/draft/waypoints", `{"annotation":"Informatics Forum"}`)

	code, after := call(t, ts, "POST", "/api/tours/draft/waypoints", `{"annotation":"again"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, after.Error, "too close")
	assert.Equal(t, before.Revision, after.Revision)
	assert.JSONEq(t, string(before.Output[0]), string(after.Output[0]))
}

func TestServer_Diagnostics(t *testing.T) {
	ts, _ := newTestServer(t)
	authorOldTown(t, ts)
	call(t, ts, "POST", "/api/tours/draft/end", "")

	resp, err := ts.Client().Get(ts.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "OK", string(body))

	resp, err = ts.Client().Get(ts.URL + "/api/version")
	require.NoError(t, err)
	var ver map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ver))
	resp.Body.Close()
	assert.NotEmpty(t, ver["version"])

	resp, err = ts.Client().Get(ts.URL + "/api/stats")
	require.NoError(t, err)
	var stats StatsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	resp.Body.Close()
	assert.Equal(t, 1, stats.Tours)
	assert.Equal(t, int64(1), stats.Operations[string(session.OpEndNewTour)].OK)
	assert.Equal(t, int64(1), stats.Operations[string(session.OpEndNewTour)].Failed)

	resp, err = ts.Client().Get(ts.URL + "/api/trip/events")
	require.NoError(t, err)
	var events []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&events))
	resp.Body.Close()
	require.Len(t, events, 2)
	assert.Equal(t, "tour_committed", events[1]["type"])

	resp, err = ts.Client().Get(ts.URL + "/api/output")
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	resp.Body.Close()
	assert.Equal(t, "browse_overview", out["state"])
}

func TestServer_CORS(t *testing.T) {
	ts, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/location", http.NoBody)
	req.Header.Set("Origin", "http://example.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "http://example.test", resp.Header.Get("Access-Control-Allow-Origin"))

	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/health", http.NoBody)
	req.Header.Set("Origin", "http://evil.test")
	resp, err = ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}
