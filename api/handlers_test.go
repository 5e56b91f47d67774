package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homeclimate/thermoms/log"
	"github.com/homeclimate/thermoms/stats"
	"github.com/homeclimate/thermoms/svc"
	"github.com/homeclimate/thermoms/temp"
)

var testLog = log.New("thermoms_api_test", "error")

type fakeTherms struct {
	states  []svc.ThermState
	desired map[string]temp.Temp
}

func (f *fakeTherms) Therms() []svc.ThermState {
	return f.states
}

func (f *fakeTherms) Therm(id string) (*svc.ThermState, error) {
	for _, st := range f.states {
		if st.ID == id {
			return &st, nil
		}
	}
	return nil, fmt.Errorf("unknown thermostat %q", id)
}

func (f *fakeTherms) SetDesired(id string, v temp.Temp) error {
	if _, err := f.Therm(id); err != nil {
		return err
	}
	if f.desired == nil {
		f.desired = make(map[string]temp.Temp)
	}
	f.desired[id] = v
	return nil
}

type fakeStats struct {
	attrs map[string]stats.Attrs
}

func (f *fakeStats) Stats() map[string]stats.Attrs {
	return f.attrs
}

func (f *fakeStats) Stat(name string) (stats.Attrs, error) {
	attrs, ok := f.attrs[name]
	if !ok {
		return nil, fmt.Errorf("unknown statistical parameter %q", name)
	}
	return attrs, nil
}

func newTestAPI(therms *fakeTherms, st *fakeStats) *api {
	a := &api{
		log:           testLog,
		thermProvider: therms,
		statsProvider: st,
	}
	a.router = mux.NewRouter()
	a.router.HandleFunc("/health", a.health).Methods(http.MethodGet)
	a.router.HandleFunc("/v1/therm", a.getThermsHandler).Methods(http.MethodGet)
	a.router.HandleFunc("/v1/therm/{id}", a.getThermHandler).Methods(http.MethodGet)
	a.router.HandleFunc("/v1/therm/{id}/desired", a.patchDesiredHandler).Methods(http.MethodPatch)
	a.router.HandleFunc("/v1/stats", a.getStatsHandler).Methods(http.MethodGet)
	a.router.HandleFunc("/v1/stats/{name}", a.getStatHandler).Methods(http.MethodGet)
	return a
}

func testTherms() *fakeTherms {
	return &fakeTherms{
		states: []svc.ThermState{
			{ID: "therm_1", Desired: "21", Reported: "21.5", Current: "20.8"},
			{ID: "therm_2", Reported: "OFF"},
		},
	}
}

func do(a *api, method, target, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, r)
	return w
}

func TestHealth(t *testing.T) {
	a := newTestAPI(testTherms(), &fakeStats{})

	w := do(a, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestGetTherms(t *testing.T) {
	a := newTestAPI(testTherms(), &fakeStats{})

	w := do(a, http.MethodGet, "/v1/therm", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"therm_1"`)
	assert.Contains(t, w.Body.String(), `"OFF"`)
}

func TestGetTherm(t *testing.T) {
	a := newTestAPI(testTherms(), &fakeStats{})

	w := do(a, http.MethodGet, "/v1/therm/therm_1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"id":"therm_1","desired":"21","reported":"21.5","current":"20.8"}}`, w.Body.String())

	w = do(a, http.MethodGet, "/v1/therm/nobody", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPatchDesired(t *testing.T) {
	therms := testTherms()
	a := newTestAPI(therms, &fakeStats{})

	w := do(a, http.MethodPatch, "/v1/therm/therm_1/desired", `{"desired": 21.5}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, therms.desired["therm_1"].Equal(temp.New(21.5)))

	w = do(a, http.MethodPatch, "/v1/therm/therm_2/desired", `{"desired": "OFF"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, therms.desired["therm_2"].IsOff())
}

func TestPatchDesiredInvalid(t *testing.T) {
	a := newTestAPI(testTherms(), &fakeStats{})

	w := do(a, http.MethodPatch, "/v1/therm/therm_1/desired", `{"desired": "warm"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(a, http.MethodPatch, "/v1/therm/therm_1/desired", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(a, http.MethodPatch, "/v1/therm/nobody/desired", `{"desired": 21}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetStats(t *testing.T) {
	st := &fakeStats{attrs: map[string]stats.Attrs{
		"delta": {"min": -0.5, "avg": 0.25, "max": 1},
	}}
	a := newTestAPI(testTherms(), st)

	w := do(a, http.MethodGet, "/v1/stats", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"delta"`)

	w = do(a, http.MethodGet, "/v1/stats/delta", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"min":-0.5,"avg":0.25,"max":1}}`, w.Body.String())

	w = do(a, http.MethodGet, "/v1/stats/nobody", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
