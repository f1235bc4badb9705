package servehttp

import (
	"net/http"

	"changeportal/event"

	"github.com/gin-gonic/gin"
)

type EventQuery struct {
	ObjectID string `form:"objectId"`
}

// RegisterEventHandler exposes the recently published outcome events for pollers.
func RegisterEventHandler(r *gin.Engine, recorder *event.Recorder, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/events", middleWares...)
	g.GET("", func(c *gin.Context) {
		query := EventQuery{}
		_ = c.ShouldBindQuery(&query)
		if query.ObjectID != "" {
			c.JSON(http.StatusOK, recorder.RecordsOf(query.ObjectID))
			return
		}
		c.JSON(http.StatusOK, recorder.Records())
	})
}
