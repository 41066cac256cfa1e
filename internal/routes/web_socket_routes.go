package routes

import (
	"github.com/gin-gonic/gin"
)

// WebSocketRoutes wires the two live channels: the minder device pushing
// locations and parents following a trip by tracking token. Both authenticate
// through a query-string token inside the handler, since browsers cannot set
// headers on websocket upgrades.
func WebSocketRoutes(r *gin.Engine, ctl Controllers) {
	ws := r.Group("/ws")
	{
		ws.GET("/minder", ctl.WS.HandleMinderWebSocket)
		ws.GET("/track", ctl.WS.HandleTrackingWebSocket)
	}
}
