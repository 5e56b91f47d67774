package store

import (
	"strconv"

	"github.com/garyburd/redigo/redis"
	"github.com/pkg/errors"
)

func statsBaselineKey(name string) string {
	return "stats:" + name + ":baseline"
}

// SaveStatsBaseline persists the last published entries of a
// statistical parameter. It replaces the previous baseline entirely
// so removed entries do not linger.
func (s *store) SaveStatsBaseline(name string, attrs map[string]float64) error {
	conn := s.pool.Get()
	defer conn.Close() // nolint

	key := statsBaselineKey(name)
	if _, err := conn.Do("DEL", key); err != nil {
		return errors.Wrap(err, "store: func DEL")
	}
	if len(attrs) == 0 {
		return nil
	}

	args := make([]interface{}, 0, 1+2*len(attrs))
	args = append(args, key)
	for k, v := range attrs {
		args = append(args, k, strconv.FormatFloat(v, 'f', -1, 64))
	}
	if _, err := conn.Do("HMSET", args...); err != nil {
		return errors.Wrap(err, "store: func HMSET")
	}
	return nil
}

// GetStatsBaseline returns the stored entries of a statistical
// parameter, or nil when nothing was stored for it yet.
func (s *store) GetStatsBaseline(name string) (map[string]float64, error) {
	conn := s.pool.Get()
	defer conn.Close() // nolint

	fields, err := redis.StringMap(conn.Do("HGETALL", statsBaselineKey(name)))
	if err != nil {
		return nil, errors.Wrap(err, "store: func HGETALL")
	}
	if len(fields) == 0 {
		return nil, nil
	}

	attrs := make(map[string]float64, len(fields))
	for k, v := range fields {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "store: baseline %s: entry %s", name, k)
		}
		attrs[k] = f
	}
	return attrs, nil
}
