package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/WishingWellCode/Wishing/internal/logging"
	"github.com/WishingWellCode/Wishing/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Player is one avatar in the plaza around the fountain.
type Player struct {
	ID            string  `json:"id"`
	WalletAddress string  `json:"walletAddress"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Sprite        string  `json:"sprite"`
}

type PlazaMessage struct {
	Type          string                `json:"type"`
	PlayerID      string                `json:"playerId,omitempty"`
	WalletAddress string                `json:"walletAddress,omitempty"`
	X             float64               `json:"x,omitempty"`
	Y             float64               `json:"y,omitempty"`
	Player        *Player               `json:"player,omitempty"`
	Players       []*Player             `json:"players,omitempty"`
	Pool          int64                 `json:"pool,omitempty"`
	LastWinner    *models.SessionResult `json:"lastWinner,omitempty"`
}

type plazaClient struct {
	id   string
	conn *websocket.Conn
}

type plazaEvent struct {
	client *plazaClient
	msg    *PlazaMessage
}

// PlazaHub is the single owner of the connection registry and the player
// position map; all mutation happens on its run loop, never from request
// handlers. It implements services.Broadcaster for fountain updates.
type PlazaHub struct {
	register   chan *plazaClient
	unregister chan *plazaClient
	events     chan plazaEvent
	notify     chan *PlazaMessage

	clients map[string]*plazaClient
	players map[string]*Player
	log     logging.Logger
}

func NewPlazaHub(log logging.Logger) *PlazaHub {
	hub := &PlazaHub{
		register:   make(chan *plazaClient),
		unregister: make(chan *plazaClient),
		events:     make(chan plazaEvent, 64),
		notify:     make(chan *PlazaMessage, 64),
		clients:    make(map[string]*plazaClient),
		players:    make(map[string]*Player),
		log:        log.With().Str(logging.FieldComponent, "plaza").Logger(),
	}

	go hub.run()

	return hub
}

func (hub *PlazaHub) run() {
	for {
		select {
		case client := <-hub.register:
			hub.clients[client.id] = client
			hub.log.Debug().Str(logging.FieldPlayerID, client.id).Msg("client connected")

		case client := <-hub.unregister:
			if _, ok := hub.clients[client.id]; !ok {
				continue
			}
			delete(hub.clients, client.id)
			if _, ok := hub.players[client.id]; ok {
				delete(hub.players, client.id)
				hub.broadcastExcept(&PlazaMessage{
					Type:     "playerLeft",
					PlayerID: client.id,
				}, client.id)
			}
			hub.log.Debug().Str(logging.FieldPlayerID, client.id).Msg("client disconnected")

		case ev := <-hub.events:
			hub.handleEvent(ev)

		case msg := <-hub.notify:
			hub.broadcastExcept(msg, "")
		}
	}
}

func (hub *PlazaHub) handleEvent(ev plazaEvent) {
	switch ev.msg.Type {
	case "join":
		player := &Player{
			ID:            ev.client.id,
			WalletAddress: ev.msg.WalletAddress,
			X:             400,
			Y:             300,
			Sprite:        "player",
		}
		hub.players[ev.client.id] = player

		others := make([]*Player, 0, len(hub.players)-1)
		for id, p := range hub.players {
			if id != ev.client.id {
				others = append(others, p)
			}
		}
		hub.send(ev.client, &PlazaMessage{
			Type:     "joined",
			PlayerID: ev.client.id,
			Player:   player,
			Players:  others,
		})
		hub.broadcastExcept(&PlazaMessage{
			Type:   "playerJoined",
			Player: player,
		}, ev.client.id)

	case "move":
		player, ok := hub.players[ev.client.id]
		if !ok {
			return
		}
		player.X = ev.msg.X
		player.Y = ev.msg.Y
		hub.broadcastExcept(&PlazaMessage{
			Type:     "playerMoved",
			PlayerID: ev.client.id,
			X:        ev.msg.X,
			Y:        ev.msg.Y,
		}, ev.client.id)
	}
}

func (hub *PlazaHub) send(client *plazaClient, msg *PlazaMessage) {
	if err := client.conn.WriteJSON(msg); err != nil {
		hub.log.Debug().Str(logging.FieldPlayerID, client.id).Err(err).Msg("write failed")
	}
}

func (hub *PlazaHub) broadcastExcept(msg *PlazaMessage, excludeID string) {
	for id, client := range hub.clients {
		if id == excludeID {
			continue
		}
		hub.send(client, msg)
	}
}

// FountainUpdate implements services.Broadcaster. Non-blocking: if the hub
// is saturated the update is dropped rather than stalling a resolve.
func (hub *PlazaHub) FountainUpdate(pool int64, result *models.SessionResult) {
	msg := &PlazaMessage{
		Type:       "fountainUpdate",
		Pool:       pool,
		LastWinner: result,
	}
	select {
	case hub.notify <- msg:
	default:
		hub.log.Warn().Msg("plaza notify buffer full, dropping fountain update")
	}
}

type PlazaHandler struct {
	hub *PlazaHub
}

func NewPlazaHandler(hub *PlazaHub) *PlazaHandler {
	return &PlazaHandler{hub: hub}
}

func (h *PlazaHandler) HandlePlaza(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &plazaClient{
		id:   uuid.New().String(),
		conn: conn,
	}

	h.hub.register <- client

	defer func() {
		h.hub.unregister <- client
		conn.Close()
	}()

	for {
		var msg PlazaMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.hub.log.Debug().Str(logging.FieldPlayerID, client.id).Err(err).Msg("websocket error")
			}
			break
		}

		switch msg.Type {
		case "join", "move":
			h.hub.events <- plazaEvent{client: client, msg: &msg}
		}
	}
}
