package store

import (
	"sort"

	"github.com/garyburd/redigo/redis"
	"github.com/pkg/errors"

	"github.com/homeclimate/thermoms/svc"
)

const thermIDsKey = "therm:ids"

func thermStateKey(id string) string {
	return "therm:" + id + ":state"
}

// SaveThermState persists the latest known snapshot of a thermostat.
// Unknown temperatures are stored as empty strings.
func (s *store) SaveThermState(st *svc.ThermState) error {
	conn := s.pool.Get()
	defer conn.Close() // nolint

	if _, err := conn.Do("SADD", thermIDsKey, st.ID); err != nil {
		return errors.Wrap(err, "store: func SADD")
	}
	if _, err := conn.Do("HMSET", thermStateKey(st.ID),
		"desired", st.Desired,
		"reported", st.Reported,
		"current", st.Current); err != nil {
		return errors.Wrap(err, "store: func HMSET")
	}
	return nil
}

// GetThermState returns the stored snapshot of the given thermostat,
// or nil when nothing was stored for it yet.
func (s *store) GetThermState(id string) (*svc.ThermState, error) {
	conn := s.pool.Get()
	defer conn.Close() // nolint

	fields, err := redis.StringMap(conn.Do("HGETALL", thermStateKey(id)))
	if err != nil {
		return nil, errors.Wrap(err, "store: func HGETALL")
	}
	if len(fields) == 0 {
		return nil, nil
	}

	return &svc.ThermState{
		ID:       id,
		Desired:  fields["desired"],
		Reported: fields["reported"],
		Current:  fields["current"],
	}, nil
}

// GetThermsStates returns the stored snapshots of all known
// thermostats, ordered by id.
func (s *store) GetThermsStates() ([]svc.ThermState, error) {
	conn := s.pool.Get()
	defer conn.Close() // nolint

	ids, err := redis.Strings(conn.Do("SMEMBERS", thermIDsKey))
	if err != nil {
		return nil, errors.Wrap(err, "store: func SMEMBERS")
	}
	sort.Strings(ids)

	states := make([]svc.ThermState, 0, len(ids))
	for _, id := range ids {
		st, err := s.GetThermState(id)
		if err != nil {
			return nil, err
		}
		if st != nil {
			states = append(states, *st)
		}
	}
	return states, nil
}
