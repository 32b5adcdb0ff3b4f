package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"driver_logbook/internal/middleware"
	"driver_logbook/internal/models"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // dev server, any origin
	},
}

type tripMessage struct {
	tripID uint
	event  models.LocationEvent
}

// hubClient serializes writes to one connection.
type hubClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *hubClient) write(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// LocationHub fans location events out to the subscribers of each trip.
type LocationHub struct {
	tripClients map[uint]map[*hubClient]struct{}
	broadcast   chan tripMessage
	mu          sync.Mutex
	log         *logrus.Entry
}

// NewLocationHub starts the broadcasting goroutine.
func NewLocationHub(log *logrus.Entry) *LocationHub {
	hub := &LocationHub{
		tripClients: make(map[uint]map[*hubClient]struct{}),
		broadcast:   make(chan tripMessage, 100),
		log:         log.WithField("component", "location_hub"),
	}
	go hub.run()
	return hub
}

func (h *LocationHub) run() {
	for msg := range h.broadcast {
		for _, c := range h.clients(msg.tripID) {
			if err := c.write(msg.event); err != nil {
				h.log.WithError(err).WithFields(logrus.Fields{
					"trip_id":  msg.tripID,
					"conn_ptr": fmt.Sprintf("%p", c.conn),
				}).Info("Subscriber write failed, unregistering")
				h.unregister(msg.tripID, c)
				_ = c.conn.Close()
			}
		}
	}
}

func (h *LocationHub) clients(tripID uint) []*hubClient {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*hubClient, 0, len(h.tripClients[tripID]))
	for c := range h.tripClients[tripID] {
		out = append(out, c)
	}
	return out
}

func (h *LocationHub) register(tripID uint, c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.tripClients[tripID]; !ok {
		h.tripClients[tripID] = make(map[*hubClient]struct{})
	}
	h.tripClients[tripID][c] = struct{}{}
	h.log.WithFields(logrus.Fields{
		"trip_id":  tripID,
		"conn_ptr": fmt.Sprintf("%p", c.conn),
	}).Info("Trip subscriber registered")
}

func (h *LocationHub) unregister(tripID uint, c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.tripClients[tripID]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.tripClients, tripID)
	}
	h.log.WithField("trip_id", tripID).Info("Trip subscriber unregistered")
}

// Subscribers counts the connections watching a trip.
func (h *LocationHub) Subscribers(tripID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.tripClients[tripID])
}

// Publish queues an event for the trip's subscribers. Events are dropped
// when the queue is full.
func (h *LocationHub) Publish(tripID uint, event models.LocationEvent) {
	select {
	case h.broadcast <- tripMessage{tripID: tripID, event: event}:
	default:
		h.log.WithField("trip_id", tripID).Warn("Location broadcast queue full, dropping event")
	}
}

// HandleTripSocket subscribes the connection to a trip's location events.
// A token is optional, but one that is supplied must be valid.
func (s *Server) HandleTripSocket(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown trip"})
		return
	}
	if raw := socketToken(c); raw != "" {
		if _, err := s.tokens.Parse(raw, middleware.TokenAccess); err != nil {
			s.log.WithError(err).WithField("trip_id", id).Warn("WebSocket connection refused")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	tripID := uint(id)
	client := &hubClient{conn: conn}
	s.hub.register(tripID, client)
	defer s.hub.unregister(tripID, client)

	// Subscribers only listen; anything they send is discarded.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.WithError(err).WithField("trip_id", tripID).Debug("Trip socket read ended")
			}
			return
		}
	}
}

func socketToken(c *gin.Context) string {
	if t := c.Query("token"); t != "" {
		return t
	}
	return strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
}
