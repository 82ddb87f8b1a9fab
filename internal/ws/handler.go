package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/kollektive-hackathon/agora-backend/internal/agent"
	"github.com/kollektive-hackathon/agora-backend/internal/arena"
	"github.com/kollektive-hackathon/agora-backend/internal/pkg/ws"
	"github.com/rs/zerolog/log"
)

type wsHandler struct {
	notificationHub *ws.WebSocketNotificationHub
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// spectators connect from any origin, same as the REST API
	CheckOrigin: func(*http.Request) bool { return true },
}

func RegisterRoutes(rg *gin.RouterGroup, hub *ws.WebSocketNotificationHub) {
	handler := wsHandler{
		notificationHub: hub,
	}

	routes := rg.Group("/ws")
	routes.GET("/arenas/:id", func(c *gin.Context) { handler.serveWs(c, arena.ArenaTopic(c.Param("id"))) })
	routes.GET("/agents/:id", func(c *gin.Context) { handler.serveWs(c, agent.AgentTopic(c.Param("id"))) })
}

func (wsh *wsHandler) serveWs(c *gin.Context, topic string) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Debug().Err(err).Str("topic", topic).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()
	defer wsh.notificationHub.UnregisterListener(topic, conn)

	wsh.notificationHub.RegisterListener(topic, conn)

	// listeners only receive; reading detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Str("topic", topic).Msg("Error reading ws message")
			}
			return
		}
	}
}
