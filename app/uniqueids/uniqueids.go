// Package uniqueids implements a node that generates globally unique IDs
// without coordinating with other nodes.
package uniqueids

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/andydunstall/lattice/pkg/log"
	"github.com/andydunstall/lattice/pkg/node"
	"github.com/andydunstall/lattice/pkg/protocol"
)

type Generate struct{}

func (g *Generate) Type() string {
	return "generate"
}

type GenerateOK struct {
	ID string `json:"id"`
}

func (g *GenerateOK) Type() string {
	return "generate_ok"
}

type State struct{}

type App struct {
	logger log.Logger
}

func NewApp(logger log.Logger) *App {
	return &App{
		logger: logger.WithSubsystem("app.uniqueids"),
	}
}

func (a *App) NewState(_ node.Init) *State {
	return &State{}
}

func (a *App) Register(
	mux *node.Mux,
	_ *node.State[*State],
	sender *protocol.Sender,
) {
	node.Handle(mux, func(m *protocol.Message, _ *Generate) error {
		id, err := NewID()
		if err != nil {
			return fmt.Errorf("generate: %w", err)
		}
		return sender.Reply(m, &GenerateOK{ID: id})
	})
	mux.RejectReply((&GenerateOK{}).Type())
}

func (a *App) Services(
	_ *node.State[*State],
	_ *protocol.Sender,
) []node.Service {
	return nil
}

// NewID returns a new time ordered ID, falling back to a random ID if a time
// ordered ID can't be generated.
func NewID() (string, error) {
	id, err := uuid.NewV7()
	if err == nil {
		return id.String(), nil
	}
	id, err = uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

var _ node.Application[*State] = &App{}
