package api

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"github.com/homeclimate/thermoms/errors"
	"github.com/homeclimate/thermoms/temp"
)

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`{"status":"ok"}`)); err != nil {
		a.log.Errorf("func Write: %s", err)
	}
}

func (a *api) getThermsHandler(w http.ResponseWriter, r *http.Request) {
	resp(w, a.log, a.thermProvider.Therms())
}

func (a *api) getThermHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	st, err := a.thermProvider.Therm(id)
	if err != nil {
		respError(w, a.log, errors.NewNotFoundError())
		return
	}
	resp(w, a.log, st)
}

type desiredPatch struct {
	// a number or the string "OFF"
	Desired interface{} `json:"desired"`
}

func (a *api) patchDesiredHandler(w http.ResponseWriter, r *http.Request) {
	var p desiredPatch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respError(w, a.log, errors.NewValidationError(url.Values{"body": {"invalid json"}}))
		return
	}

	v, err := temp.FromValue(p.Desired)
	if err != nil {
		respError(w, a.log, errors.NewValidationError(url.Values{"desired": {err.Error()}}))
		return
	}

	id := mux.Vars(r)["id"]
	if err := a.thermProvider.SetDesired(id, v); err != nil {
		respError(w, a.log, errors.NewNotFoundError())
		return
	}

	resp(w, a.log, map[string]string{"id": id, "desired": v.String()})
}

func (a *api) getStatsHandler(w http.ResponseWriter, r *http.Request) {
	resp(w, a.log, a.statsProvider.Stats())
}

func (a *api) getStatHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	attrs, err := a.statsProvider.Stat(name)
	if err != nil {
		respError(w, a.log, errors.NewNotFoundError())
		return
	}
	resp(w, a.log, attrs)
}
