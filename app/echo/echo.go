// Package echo implements a node that echoes requests back to the client.
package echo

import (
	"github.com/andydunstall/lattice/pkg/log"
	"github.com/andydunstall/lattice/pkg/node"
	"github.com/andydunstall/lattice/pkg/protocol"
)

type Echo struct {
	Echo string `json:"echo"`
}

func (e *Echo) Type() string {
	return "echo"
}

type EchoOK struct {
	Echo string `json:"echo"`
}

func (e *EchoOK) Type() string {
	return "echo_ok"
}

type State struct{}

type App struct {
	logger log.Logger
}

func NewApp(logger log.Logger) *App {
	return &App{
		logger: logger.WithSubsystem("app.echo"),
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
	node.Handle(mux, func(m *protocol.Message, req *Echo) error {
		return sender.Reply(m, &EchoOK{Echo: req.Echo})
	})
	mux.RejectReply((&EchoOK{}).Type())
}

func (a *App) Services(
	_ *node.State[*State],
	_ *protocol.Sender,
) []node.Service {
	return nil
}

var _ node.Application[*State] = &App{}
