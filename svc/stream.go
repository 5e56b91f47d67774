package svc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/homeclimate/thermoms/log"
)

type (
	// StateSubscriber is a contract for the internal pub/sub the
	// snapshots are consumed from.
	StateSubscriber interface {
		Subscribe(c chan []byte, channel ...string) error
	}

	// StreamServiceCfg is used to initialize an instance of streamService.
	StreamServiceCfg struct {
		Log        log.Logger
		Ctrl       Ctrl
		Subscriber StateSubscriber
		SubChan    string
		PortWS     uint64
	}

	// streamService pushes thermostat snapshots to web clients
	// (dashboard) over websocket connections.
	streamService struct {
		log        log.Logger
		ctrl       Ctrl
		subscriber StateSubscriber
		sub        subscription
		portWS     uint64
		conns      streamConns
		upgrader   websocket.Upgrader
	}

	thermID string
)

// NewStreamService creates and initializes a new instance of streamService.
func NewStreamService(c *StreamServiceCfg) *streamService { // nolint
	return &streamService{
		portWS:     c.PortWS,
		subscriber: c.Subscriber,
		ctrl:       c.Ctrl,
		log:        c.Log.With("component", "stream"),
		conns:      *newStreamConns(),
		sub: subscription{
			ChanName: c.SubChan,
			Chan:     make(chan []byte),
		},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Run launches the service by running goroutines for listening to the service
// termination, new snapshots, closed web client connections and streaming
// snapshots to the clients with open connections.
func (s *streamService) Run() {
	s.log.With("event", log.EventComponentStarted).
		Infof("is running on websocket port [%d]", s.portWS)

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		if r := recover(); r != nil {
			s.log.With("event", log.EventPanic).Errorf("%s", r)
			cancel()
			s.terminate()
		}
	}()

	go s.listenToTermination()
	go s.listenPubs(ctx)
	go s.listenClosedConns(ctx)

	r := mux.NewRouter()
	r.HandleFunc("/therm/{id}", s.addConnHandler)

	srv := &http.Server{
		Handler: r,
		Addr:    fmt.Sprintf(":%d", s.portWS),
	}
	s.log.Fatal(srv.ListenAndServe())
}

func (s *streamService) listenToTermination() {
	<-s.ctrl.StopChan
	s.terminate()
}

func (s *streamService) terminate() {
	s.log.With("event", log.EventComponentShutdown).Info("is down")
	_ = s.log.Flush()
	s.ctrl.Terminate()
}

func (s *streamService) addConnHandler(w http.ResponseWriter, r *http.Request) {
	id := thermID(mux.Vars(r)["id"])
	if id == "" {
		s.log.Errorf("url isn't complete")
		return
	}

	s.conns.Lock()
	if _, ok := s.conns.idConns[id]; !ok {
		s.conns.idConns[id] = new(connList)
	}
	s.conns.Unlock()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("func Upgrade: %s", err)
		return
	}
	s.conns.idConns[id].addConn(conn)
	s.log.With("event", log.EventWSConnAdded).Infof("addr: %v", conn.RemoteAddr())
}

func (s *streamService) listenPubs(ctx context.Context) {
	go s.subscriber.Subscribe(s.sub.Chan, s.sub.ChanName) // nolint

	for {
		select {
		case msg := <-s.sub.Chan:
			go s.stream(ctx, msg)
		case <-ctx.Done():
			return
		}
	}
}

func (s *streamService) stream(ctx context.Context, msg []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.log.With("event", log.EventPanic).Errorf("func stream: %s", r)
			s.terminate()
		}
	}()

	var st ThermState
	if err := json.Unmarshal(msg, &st); err != nil {
		s.log.Errorf("func Unmarshal: %s", err)
		return
	}

	id := thermID(st.ID)
	if _, ok := s.conns.idConns[id]; !ok {
		return
	}
	for _, conn := range s.conns.idConns[id].Conns {
		select {
		case <-ctx.Done():
			return
		default:
			s.conns.idConns[id].Lock()
			err := conn.WriteMessage(websocket.TextMessage, msg)
			s.conns.idConns[id].Unlock()
			if err != nil {
				s.log.With("event", log.EventWSConnRemoved).
					Infof("addr: %v", conn.RemoteAddr())
				s.conns.closedConns <- conn
				return
			}
		}
	}
}

func (s *streamService) listenClosedConns(ctx context.Context) {
	for {
		select {
		case conn := <-s.conns.closedConns:
			for id, connList := range s.conns.idConns {
				if ok := connList.removeConn(conn); ok {
					s.conns.checkIDConns(id)
					break
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

type streamConns struct {
	sync.RWMutex
	closedConns chan *websocket.Conn
	idConns     map[thermID]*connList
}

func newStreamConns() *streamConns {
	return &streamConns{
		closedConns: make(chan *websocket.Conn),
		idConns:     make(map[thermID]*connList),
	}
}

func (c *streamConns) checkIDConns(id thermID) {
	c.Lock()
	if len(c.idConns[id].Conns) == 0 {
		delete(c.idConns, id)
	}
	c.Unlock()
}

type connList struct {
	sync.RWMutex
	Conns []*websocket.Conn
}

func (l *connList) addConn(c *websocket.Conn) {
	l.Lock()
	l.Conns = append(l.Conns, c)
	l.Unlock()
}

func (l *connList) removeConn(conn *websocket.Conn) bool {
	l.Lock()
	defer l.Unlock()
	for i, c := range l.Conns {
		if conn == c {
			l.Conns = append(l.Conns[:i], l.Conns[i+1:]...)
			return true
		}
	}
	return false
}
