// Package server provides Herald's HTTP API and WebSocket event
// stream. The server wraps the chime service and its stores, fans job
// events out to connected clients, and exposes the inbox and task
// surfaces the assistant UI is built on.
package server

import (
	"context"
	"database/sql"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/heraldai/herald/chime"
	"github.com/heraldai/herald/chime/dispatch"
	"github.com/heraldai/herald/chime/schedule"
	"github.com/heraldai/herald/config"
	"github.com/heraldai/herald/errors"
	"github.com/heraldai/herald/notify"
	"github.com/heraldai/herald/task"
)

const (
	// MaxClients caps concurrent WebSocket connections
	MaxClients = 100

	// ShutdownTimeout bounds how long Stop waits for goroutines
	ShutdownTimeout = 15 * time.Second

	// broadcastBuffer absorbs event bursts from the dispatcher
	broadcastBuffer = 256
)

// HeraldServer serves the REST API and streams job events to
// WebSocket clients. It implements chime.EventSink so the service and
// dispatcher publish straight into the hub.
type HeraldServer struct {
	db         *sql.DB
	cfg        *config.Config
	service    *chime.Service
	dispatcher *dispatch.Dispatcher // nil when running API-only
	jobStore   *schedule.Store
	runStore   *schedule.RunStore
	notifStore *notify.Store
	taskStore  *task.Store

	clients    map[*Client]bool
	broadcast  chan chime.JobEvent
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	mux        *http.ServeMux
	httpServer *http.Server
	metrics    http.Handler

	logger    *zap.SugaredLogger
	startedAt time.Time

	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	broadcastDrops atomic.Int64
	verbosity      atomic.Int32
}

// Deps carries the wired subsystems the server fronts. The dispatcher
// and metrics handler may be nil; every store is required.
type Deps struct {
	DB         *sql.DB
	Service    *chime.Service
	Dispatcher *dispatch.Dispatcher
	JobStore   *schedule.Store
	RunStore   *schedule.RunStore
	NotifStore *notify.Store
	TaskStore  *task.Store
	Metrics    http.Handler
}

// NewHeraldServer creates the server around already-wired subsystems.
// The server itself is the chime.EventSink, so construct it first,
// then hand it to the service and dispatcher builders and inject them
// with SetService and SetDispatcher.
func NewHeraldServer(cfg *config.Config, deps Deps, log *zap.SugaredLogger) (*HeraldServer, error) {
	if deps.DB == nil {
		return nil, errors.New("database connection cannot be nil")
	}
	if deps.JobStore == nil || deps.RunStore == nil || deps.NotifStore == nil || deps.TaskStore == nil {
		return nil, errors.New("server requires job, run, notification and task stores")
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &HeraldServer{
		db:         deps.DB,
		cfg:        cfg,
		service:    deps.Service,
		dispatcher: deps.Dispatcher,
		jobStore:   deps.JobStore,
		runStore:   deps.RunStore,
		notifStore: deps.NotifStore,
		taskStore:  deps.TaskStore,
		metrics:    deps.Metrics,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan chime.JobEvent, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		mux:        http.NewServeMux(),
		logger:     log,
		startedAt:  time.Now(),
		ctx:        ctx,
		cancel:     cancel,
	}

	s.setupHTTPRoutes()
	return s, nil
}

// SetService injects the chime service after construction. The server
// must exist before the service so it can act as the event sink.
func (s *HeraldServer) SetService(svc *chime.Service) { s.service = svc }

// SetDispatcher injects the dispatcher after construction, for the
// same sink-ordering reason as SetService.
func (s *HeraldServer) SetDispatcher(d *dispatch.Dispatcher) { s.dispatcher = d }

// SetVerbosity stores the CLI verbosity so handlers can gate payload
// dumps and other expensive output categories.
func (s *HeraldServer) SetVerbosity(v int) { s.verbosity.Store(int32(v)) }

// PublishJobEvent implements chime.EventSink. Events are queued to the
// hub without blocking; when the queue is full the event is dropped
// and counted, because publishers sit on the dispatch hot path.
func (s *HeraldServer) PublishJobEvent(event chime.JobEvent) {
	select {
	case s.broadcast <- event:
	default:
		s.broadcastDrops.Add(1)
		s.logger.Debugw("Event queue full, dropping event",
			"type", event.Type,
			"job_id", event.JobID,
			"total_drops", s.broadcastDrops.Load(),
		)
	}
}

// Run is the hub loop. All client map mutations and channel closes
// happen here, which keeps the single-writer invariant that makes the
// close() bookkeeping safe.
func (s *HeraldServer) Run() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case client := <-s.register:
			s.handleClientRegister(client)
		case client := <-s.unregister:
			s.handleClientUnregister(client)
		case event := <-s.broadcast:
			s.broadcastEvent(event)
		}
	}
}

// handleClientRegister admits a new client, rejecting past the cap.
func (s *HeraldServer) handleClientRegister(client *Client) {
	s.mu.Lock()
	if len(s.clients) >= MaxClients {
		s.mu.Unlock()
		s.logger.Warnw("Max clients reached, rejecting connection",
			"client_id", client.id,
			"max_clients", MaxClients,
		)
		client.close()
		return
	}
	s.clients[client] = true
	totalClients := len(s.clients)
	s.mu.Unlock()

	s.logger.Infow("Client connected",
		"client_id", client.id,
		"total_clients", totalClients,
	)
}

// handleClientUnregister removes a disconnected client and closes its
// send channel so the write pump drains out.
func (s *HeraldServer) handleClientUnregister(client *Client) {
	s.mu.Lock()
	if _, ok := s.clients[client]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.clients, client)
	totalClients := len(s.clients)
	s.mu.Unlock()

	client.close()

	s.logger.Infow("Client disconnected",
		"client_id", client.id,
		"total_clients", totalClients,
	)
}

// broadcastEvent fans one event out to every connected client. A
// client whose buffer is full is removed rather than allowed to stall
// the hub.
func (s *HeraldServer) broadcastEvent(event chime.JobEvent) {
	s.mu.RLock()
	targets := make([]*Client, 0, len(s.clients))
	for client := range s.clients {
		targets = append(targets, client)
	}
	s.mu.RUnlock()

	for _, client := range targets {
		select {
		case client.send <- event:
		default:
			s.removeSlowClient(client)
		}
	}
}

// removeSlowClient drops a client that cannot keep up. Only called
// from the hub goroutine, so closing channels here is safe.
func (s *HeraldServer) removeSlowClient(client *Client) {
	s.mu.Lock()
	if _, ok := s.clients[client]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.clients, client)
	s.mu.Unlock()

	client.close()
	s.broadcastDrops.Add(1)

	s.logger.Warnw("Client send buffer full, removing client",
		"client_id", client.id,
		"total_drops", s.broadcastDrops.Load(),
	)
}

// ClientCount returns the number of connected WebSocket clients.
func (s *HeraldServer) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// AnnouncedInbox wraps the inbox sender so each accepted entry is also
// streamed to connected clients as a notification.created event.
func (s *HeraldServer) AnnouncedInbox(inner notify.Sender) notify.Sender {
	return &announcedSender{inner: inner, hub: s}
}

type announcedSender struct {
	inner notify.Sender
	hub   *HeraldServer
}

func (a *announcedSender) Name() string { return a.inner.Name() }

func (a *announcedSender) Send(ctx context.Context, n *notify.Notification) error {
	if err := a.inner.Send(ctx, n); err != nil {
		return err
	}
	a.hub.PublishJobEvent(chime.JobEvent{
		Type:    chime.EventNotificationCreated,
		OwnerID: n.OwnerID,
		JobID:   n.JobID,
		Title:   n.Title,
		Detail:  n.Body,
		At:      time.Now().UTC(),
	})
	return nil
}
