package gossip

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andydunstall/lattice/pkg/admin/status"
)

// KnownStore exposes the keys each peer is known to have.
type KnownStore interface {
	Known() map[string]int
	KnownKeys(peer string) ([]string, bool)
}

type Status struct {
	gossip KnownStore
}

func NewStatus(gossip KnownStore) *Status {
	return &Status{
		gossip: gossip,
	}
}

func (s *Status) Register(group *gin.RouterGroup) {
	group.GET("/known", s.listKnownRoute)
	group.GET("/known/:peer", s.getKnownRoute)
}

func (s *Status) listKnownRoute(c *gin.Context) {
	c.JSON(http.StatusOK, s.gossip.Known())
}

func (s *Status) getKnownRoute(c *gin.Context) {
	keys, ok := s.gossip.KnownKeys(c.Param("peer"))
	if !ok {
		status.AbortWithError(c, &status.ErrorInfo{
			StatusCode: http.StatusNotFound,
			Message:    "peer not found",
		})
		return
	}
	c.JSON(http.StatusOK, keys)
}

var _ status.Handler = &Status{}
