// Package store provides means for data storage and retrieval.
package store

import (
	"fmt"
	"time"

	"github.com/garyburd/redigo/redis"
	"github.com/pkg/errors"

	"github.com/homeclimate/thermoms/cfg"
	"github.com/homeclimate/thermoms/log"
)

type (
	// store is a Redis-backed storage for thermostat state snapshots
	// and statistical parameter baselines.
	store struct {
		pool *redis.Pool
		log  log.Logger
	}

	// Cfg is used to initialize an instance of store.
	Cfg struct {
		Addr             cfg.Addr
		Password         string
		MaxIdlePoolConns uint32
		IdleTimeout      time.Duration
		RetryTimeout     time.Duration
		RetryAttempts    uint32
		Log              log.Logger
	}
)

// New creates a new instance of store and checks connectivity.
func New(c *Cfg) (*store, error) { // nolint
	addr := fmt.Sprintf("%s:%d", c.Addr.Host, c.Addr.Port)

	var opts []redis.DialOption
	if c.Password != "" {
		opts = append(opts, redis.DialPassword(c.Password))
	}

	s := &store{
		pool: &redis.Pool{
			MaxIdle:     int(c.MaxIdlePoolConns),
			IdleTimeout: c.IdleTimeout,
			Dial: func() (redis.Conn, error) {
				return redis.Dial("tcp", addr, opts...)
			},
		},
		log: c.Log.With("component", "store"),
	}

	var err error
	for i := uint32(0); i <= c.RetryAttempts; i++ {
		if err = s.Check(); err == nil {
			return s, nil
		}
		s.log.Errorf("func Check: %s", err)
		time.Sleep(c.RetryTimeout)
	}
	return nil, errors.Wrap(err, "store: func Check")
}

// Check issues a PING command to check if Redis is ok.
func (s *store) Check() error {
	conn := s.pool.Get()
	defer conn.Close() // nolint

	_, err := conn.Do("PING")
	return err
}

// CloseConn releases the underlying connection pool.
func (s *store) CloseConn() error {
	return s.pool.Close()
}

// Publish posts a message on the given channel.
func (s *store) Publish(msg interface{}, channel string) (int64, error) {
	conn := s.pool.Get()
	defer conn.Close() // nolint

	numberOfClients, err := redis.Int64(conn.Do("PUBLISH", channel, msg))
	if err != nil {
		return 0, errors.Wrap(err, "store: func PUBLISH")
	}
	return numberOfClients, nil
}

// Subscribe subscribes the client to the specified channels and
// forwards the received payloads to c. It blocks until the
// connection fails.
func (s *store) Subscribe(c chan []byte, channel ...string) error {
	conn := redis.PubSubConn{Conn: s.pool.Get()}
	defer conn.Close() // nolint

	for _, cn := range channel {
		if err := conn.Subscribe(cn); err != nil {
			return errors.Wrap(err, "store: func SUBSCRIBE")
		}
	}
	for {
		switch v := conn.Receive().(type) {
		case redis.Message:
			c <- v.Data
		case error:
			return errors.Wrap(v, "store: func Receive")
		}
	}
}
