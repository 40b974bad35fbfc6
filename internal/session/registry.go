// Package session tracks connected clients and routes published messages to
// them by topic. A client is keyed by its remote address; a logged in client
// additionally carries a user id, which subscribes it to that user's private
// topics.
package session

import (
	"errors"
	"log"
	"sync"

	"github.com/playgambit/backend/internal/protocol"
)

// ErrNoSuchClient is returned by Send when the address has no connection.
var ErrNoSuchClient = errors.New("no such connected client")

type topicKind int

const (
	topicGlobal topicKind = iota
	topicUserPrivate
	topicUserProto
	topicGame
	topicTournament
)

// Topic identifies a stream of messages clients can be subscribed to.
type Topic struct {
	kind  topicKind
	id    int64
	proto protocol.Version
}

// GlobalTopic addresses every connected client.
func GlobalTopic() Topic { return Topic{kind: topicGlobal} }

// UserTopic addresses every connection logged in as the user.
func UserTopic(userID int64) Topic { return Topic{kind: topicUserPrivate, id: userID} }

// UserProtoTopic addresses every connection logged in as the user that speaks
// the given protocol version.
func UserProtoTopic(userID int64, v protocol.Version) Topic {
	return Topic{kind: topicUserProto, id: userID, proto: v}
}

// GameTopic addresses clients observing a game.
func GameTopic(gameID int64) Topic { return Topic{kind: topicGame, id: gameID} }

// TournamentTopic addresses clients observing a tournament.
func TournamentTopic(tournamentID int64) Topic { return Topic{kind: topicTournament, id: tournamentID} }

func (t Topic) private() bool {
	return t.kind == topicUserPrivate || t.kind == topicUserProto
}

type conn struct {
	send  chan<- []byte
	proto protocol.Version
}

// Registry is the set of connected clients, their topic subscriptions, and
// their login state. Safe for concurrent use.
type Registry struct {
	mu sync.Mutex
	// addr -> outbound channel and protocol version
	conns map[string]*conn
	// topic -> subscribed addrs
	topics map[Topic]map[string]struct{}
	// addr -> logged in user
	users map[string]int64
}

func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[string]*conn),
		topics: make(map[Topic]map[string]struct{}),
		users:  make(map[string]int64),
	}
}

// AddClient registers a connection. New connections speak the legacy protocol
// until they send a version command.
func (r *Registry) AddClient(addr string, send chan<- []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[addr] = &conn{send: send, proto: protocol.Legacy}
}

// RemoveClient drops a connection and all of its subscriptions.
func (r *Registry) RemoveClient(addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, addr)
	delete(r.users, addr)
	for _, members := range r.topics {
		delete(members, addr)
	}
}

func (r *Registry) addToTopic(t Topic, addr string) {
	members, ok := r.topics[t]
	if !ok {
		members = make(map[string]struct{})
		r.topics[t] = members
	}
	members[addr] = struct{}{}
}

func (r *Registry) removeFromTopic(t Topic, addr string) {
	if members, ok := r.topics[t]; ok {
		delete(members, addr)
	}
}

// Subscribe adds a client to a topic. Private user topics are only reachable
// through Login, so they are ignored here.
func (r *Registry) Subscribe(t Topic, addr string) {
	if t.private() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addToTopic(t, addr)
}

// Unsubscribe removes a client from a topic.
func (r *Registry) Unsubscribe(t Topic, addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeFromTopic(t, addr)
}

// Login registers a connection as a user and subscribes it to that user's
// private topics. A previous login on the same connection is revoked first.
func (r *Registry) Login(addr string, userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logout(addr)
	r.users[addr] = userID
	r.addToTopic(UserTopic(userID), addr)
	if c, ok := r.conns[addr]; ok {
		r.addToTopic(UserProtoTopic(userID, c.proto), addr)
	}
}

// Logout removes a connection's user registration and private subscriptions.
func (r *Registry) Logout(addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logout(addr)
}

func (r *Registry) logout(addr string) {
	if userID, ok := r.users[addr]; ok {
		r.removeFromTopic(UserTopic(userID), addr)
		r.removeFromTopic(UserProtoTopic(userID, protocol.Legacy), addr)
		r.removeFromTopic(UserProtoTopic(userID, protocol.Current), addr)
	}
	delete(r.users, addr)
}

// UserID reports the user a connection is logged in as.
func (r *Registry) UserID(addr string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	userID, ok := r.users[addr]
	return userID, ok
}

// Protocol reports a connection's protocol version.
func (r *Registry) Protocol(addr string) protocol.Version {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.conns[addr]; ok {
		return c.proto
	}
	return protocol.Legacy
}

// SetProtocol changes a connection's protocol version, moving any private
// per-protocol subscription along with it.
func (r *Registry) SetProtocol(addr string, v protocol.Version) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[addr]
	if !ok {
		return
	}
	old := c.proto
	c.proto = v
	if userID, ok := r.users[addr]; ok {
		r.removeFromTopic(UserProtoTopic(userID, old), addr)
		r.addToTopic(UserProtoTopic(userID, v), addr)
	}
}

// Send delivers a message to one connection. The send is non-blocking; a
// client that cannot keep up has the message dropped.
func (r *Registry) Send(addr string, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.send(addr, msg)
}

func (r *Registry) send(addr string, msg string) error {
	c, ok := r.conns[addr]
	if !ok {
		return ErrNoSuchClient
	}
	select {
	case c.send <- []byte(msg):
	default:
		log.Printf("[session] send buffer full, dropping message to %s", addr)
	}
	return nil
}

// Publish delivers a message to every subscriber of a topic.
func (r *Registry) Publish(t Topic, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for addr := range r.topics[t] {
		if err := r.send(addr, msg); err != nil {
			log.Printf("[session] publish to %s failed: %v", addr, err)
		}
	}
}
