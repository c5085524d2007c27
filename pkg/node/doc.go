// Package node runs a message-passing node in a simulated cluster.
//
// A node reads line-delimited JSON messages from its input and writes replies
// and requests using a protocol.Sender. The first message must be an 'init'
// request, which gives the node its identity and the initial set of nodes in
// the cluster. After init, every inbound message is fanned out to the
// application handler and to any services, such as the gossip engine, each of
// which sees every message.
package node
