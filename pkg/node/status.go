package node

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andydunstall/lattice/pkg/admin/status"
)

// StatusProvider returns the current node status.
type StatusProvider interface {
	Status() Status
}

// StatusHandler exposes the node status in the admin status API.
type StatusHandler struct {
	node StatusProvider
}

func NewStatusHandler(node StatusProvider) *StatusHandler {
	return &StatusHandler{
		node: node,
	}
}

func (h *StatusHandler) Register(group *gin.RouterGroup) {
	group.GET("", h.statusRoute)
}

func (h *StatusHandler) statusRoute(c *gin.Context) {
	c.JSON(http.StatusOK, h.node.Status())
}

var _ status.Handler = &StatusHandler{}
