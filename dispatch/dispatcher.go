// Package dispatch runs the single control loop of the session layer.
// Every inbound client event, disconnect, and scheduled continuation is
// funneled into one goroutine, so lobby and session state mutate in a
// serialized order without further locking.
package dispatch

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/memorymatch/server/bridge"
	"github.com/memorymatch/server/game/engine"
	"github.com/memorymatch/server/game/lobby"
	"github.com/memorymatch/server/game/session"
	"github.com/memorymatch/server/transport/websocket"
)

const eventBufferSize = 256

// submitTimeout bounds the outcome hand-off to the persistence bridge so a
// slow broker cannot stall the loop indefinitely.
const submitTimeout = 5 * time.Second

type eventKind int

const (
	kindMessage eventKind = iota
	kindDisconnect
	kindResolve
)

type event struct {
	kind   eventKind
	client *websocket.Client
	name   string
	data   json.RawMessage
	ackID  int64

	// resolve continuations only
	gameID     string
	generation uint64
}

// Dispatcher routes inbound events to the lobby manager or the right game
// session and fans resulting state out to the interested groups.
type Dispatcher struct {
	hub      *websocket.Hub
	lobby    *lobby.Manager
	sessions *session.Manager
	engine   *engine.Engine
	bridge   bridge.Bridge

	events        chan event
	flipBackDelay time.Duration
}

// New wires the dispatcher. Call hub.SetHandler with the result, then Run.
func New(hub *websocket.Hub, lob *lobby.Manager, sessions *session.Manager, eng *engine.Engine, br bridge.Bridge) *Dispatcher {
	if br == nil {
		br = bridge.Nop{}
	}
	return &Dispatcher{
		hub:           hub,
		lobby:         lob,
		sessions:      sessions,
		engine:        eng,
		bridge:        br,
		events:        make(chan event, eventBufferSize),
		flipBackDelay: eng.Rules().FlipBackDelay(),
	}
}

// OnMessage implements websocket.Handler. It runs on the connection's read
// goroutine and hands the event to the loop, preserving per-connection order.
func (d *Dispatcher) OnMessage(c *websocket.Client, name string, data json.RawMessage, ackID int64) {
	d.events <- event{kind: kindMessage, client: c, name: name, data: data, ackID: ackID}
}

// OnDisconnect implements websocket.Handler.
func (d *Dispatcher) OnDisconnect(c *websocket.Client) {
	d.events <- event{kind: kindDisconnect, client: c}
}

// Run processes events until the context is canceled.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-d.events:
			d.handle(ev)
		}
	}
}

func (d *Dispatcher) handle(ev event) {
	switch ev.kind {
	case kindMessage:
		d.handleMessage(ev)
	case kindDisconnect:
		d.handleDisconnect(ev)
	case kindResolve:
		d.handleResolve(ev)
	}
}

func (d *Dispatcher) handleMessage(ev event) {
	switch ev.name {
	case EvtLogin:
		d.handleLogin(ev)
	case EvtLogout:
		d.handleLogout(ev)
	case EvtChatMessage:
		d.handleChatMessage(ev)
	case EvtPrivateMessage:
		d.handlePrivateMessage(ev)
	case EvtFetchGames:
		d.handleFetchGames(ev)
	case EvtAddGame:
		d.handleAddGame(ev)
	case EvtJoinGame:
		d.handleJoinGame(ev)
	case EvtRemoveGame:
		d.handleRemoveGame(ev)
	case EvtStartGame:
		d.handleStartGame(ev)
	case EvtPlay:
		d.handlePlay(ev)
	case EvtQuitGame:
		d.handleQuitGame(ev)
	case EvtCloseGame:
		d.handleCloseGame(ev)
	default:
		log.Printf("Client %s sent unknown event %q", ev.client.ID, ev.name)
		d.ackErr(ev, engine.NewRuleError(engine.CodeNotFound, "Unknown event!"))
	}
}

// Ack helpers. Requests without an ack id get no reply, matching the
// optional-callback contract of the frontend.

func (d *Dispatcher) ack(ev event, payload any) {
	d.hub.Ack(ev.client, ev.ackID, payload)
}

func (d *Dispatcher) ackErr(ev event, rerr *engine.RuleError) {
	d.hub.Ack(ev.client, ev.ackID, rerr)
}

func (d *Dispatcher) decode(ev event, v any) bool {
	if len(ev.data) == 0 {
		d.ackErr(ev, engine.NewRuleError(engine.CodeNotFound, "Missing payload!"))
		return false
	}
	if err := json.Unmarshal(ev.data, v); err != nil {
		d.ackErr(ev, engine.NewRuleError(engine.CodeNotFound, "Malformed payload!"))
		return false
	}
	return true
}

// requireUser gates every handler that needs an authenticated caller.
func (d *Dispatcher) requireUser(ev event) (engine.Identity, bool) {
	ident := ev.client.Identity()
	if ident == nil {
		d.ackErr(ev, engine.ErrUnauthenticated)
		return engine.Identity{}, false
	}
	return *ident, true
}

func (d *Dispatcher) broadcastLobby() {
	d.hub.Broadcast(lobbyGroup, EvtLobbyChanged, d.lobby.Games())
}

// --- identity -------------------------------------------------------------

func (d *Dispatcher) handleLogin(ev event) {
	var ident engine.Identity
	if !d.decode(ev, &ident) {
		return
	}
	d.hub.AttachIdentity(ev.client, ident)
	if ident.ID != 0 {
		d.hub.JoinGroup(ev.client, userRoom(ident.ID))
		d.hub.JoinGroup(ev.client, lobbyGroup)
	}
	log.Printf("User %d (%s) logged in on client %s", ident.ID, ident.Name, ev.client.ID)
}

func (d *Dispatcher) handleLogout(ev event) {
	if ident := ev.client.Identity(); ident != nil && ident.ID != 0 {
		d.hub.LeaveGroup(ev.client, userRoom(ident.ID))
		if removed := d.lobby.LeaveLobby(ev.client.ID); len(removed) > 0 {
			d.broadcastLobby()
		}
		d.hub.LeaveGroup(ev.client, lobbyGroup)
	}
	d.hub.DetachIdentity(ev.client)
}

// --- chat -----------------------------------------------------------------

func (d *Dispatcher) handleChatMessage(ev event) {
	user, ok := d.requireUser(ev)
	if !ok {
		return
	}
	var payload chatPayload
	if !d.decode(ev, &payload) {
		return
	}
	d.hub.BroadcastAll(EvtChatMessage, chatBroadcast{User: user, Message: payload.Message})
	d.ack(ev, ackSuccess{Success: true})
}

func (d *Dispatcher) handlePrivateMessage(ev event) {
	user, ok := d.requireUser(ev)
	if !ok {
		return
	}
	var payload privateMessagePayload
	if !d.decode(ev, &payload) {
		return
	}

	room := userRoom(payload.DestinationUser.ID)
	if d.hub.GroupSize(room) == 0 {
		d.ackErr(ev, engine.NewRuleError(engine.CodeUserOffline,
			"User \""+payload.DestinationUser.Name+"\" is not online!"))
		return
	}
	d.hub.Broadcast(room, EvtPrivateMessage, chatBroadcast{User: user, Message: payload.Message})
	d.ack(ev, ackSuccess{Success: true})
}

// --- lobby ----------------------------------------------------------------

func (d *Dispatcher) handleFetchGames(ev event) {
	if _, ok := d.requireUser(ev); !ok {
		return
	}
	d.ack(ev, d.lobby.Games())
}

func (d *Dispatcher) handleAddGame(ev event) {
	user, ok := d.requireUser(ev)
	if !ok {
		return
	}
	var ref gameRef
	if !d.decode(ev, &ref) || ref.GameID == "" {
		return
	}

	entry, rerr := d.lobby.AddGame(user, ev.client.ID, ref.GameID)
	if rerr != nil {
		d.ackErr(ev, rerr)
		return
	}
	d.broadcastLobby()
	d.ack(ev, entry)
}

func (d *Dispatcher) handleJoinGame(ev event) {
	user, ok := d.requireUser(ev)
	if !ok {
		return
	}
	var ref gameRef
	if !d.decode(ev, &ref) {
		return
	}

	match, rerr := d.lobby.JoinGame(user, ev.client.ID, ref.GameID)
	if rerr != nil {
		d.ackErr(ev, rerr)
		return
	}

	s := d.engine.NewSession(match.GameID, match.Player1, match.Conn1, match.Player2, match.Conn2)
	if err := d.sessions.Put(s); err != nil {
		log.Printf("Game %s already has a session: %v", match.GameID, err)
		d.ackErr(ev, engine.ErrDuplicateEntry)
		return
	}
	d.broadcastLobby()
	d.ack(ev, s)
}

func (d *Dispatcher) handleRemoveGame(ev event) {
	user, ok := d.requireUser(ev)
	if !ok {
		return
	}
	var ref gameRef
	if !d.decode(ev, &ref) {
		return
	}

	entry, found := d.lobby.Get(ref.GameID)
	if !found {
		d.ackErr(ev, engine.ErrNotFound)
		return
	}
	if entry.Player1.ID != user.ID {
		d.ackErr(ev, engine.ErrNotOwner)
		return
	}
	d.lobby.RemoveGame(ref.GameID)
	d.broadcastLobby()
	d.ack(ev, entry)
}

// --- game -----------------------------------------------------------------

func (d *Dispatcher) handleStartGame(ev event) {
	if _, ok := d.requireUser(ev); !ok {
		return
	}
	var payload startGamePayload
	if !d.decode(ev, &payload) {
		return
	}

	s, err := d.sessions.Get(payload.GameID)
	if err != nil {
		d.ackErr(ev, engine.NewRuleError(engine.CodeNotFound, "Room not found!"))
		return
	}
	if s.SeatOf(ev.client.ID) == 0 {
		d.ackErr(ev, engine.ErrNotPlaying)
		return
	}

	if err := d.engine.Start(s, payload.BoardSize); err != nil {
		if err == engine.ErrNotPending {
			d.ackErr(ev, engine.NewRuleError(engine.CodeNotFound, "Game has already started!"))
			return
		}
		// A bad board size kills this session only: close the room and
		// report the failure to the caller.
		log.Printf("Failed to start game %s: %v", s.GameID, err)
		d.sessions.Delete(s.GameID)
		d.ackErr(ev, engine.NewRuleError(engine.CodeNotFound, "Could not start game: "+err.Error()))
		return
	}

	room := gameRoom(s.GameID)
	for _, connID := range []string{s.Conn1, s.Conn2} {
		if c, ok := d.hub.ClientByID(connID); ok {
			d.hub.JoinGroup(c, room)
		}
	}
	d.hub.Broadcast(room, EvtGameStarted, s)
	d.ack(ev, s)
}

func (d *Dispatcher) handlePlay(ev event) {
	if _, ok := d.requireUser(ev); !ok {
		return
	}
	var payload playPayload
	if !d.decode(ev, &payload) {
		return
	}

	s, err := d.sessions.Get(payload.GameID)
	if err != nil {
		d.ackErr(ev, engine.ErrNotFound)
		return
	}
	if s.Status == engine.StatusPending {
		d.ackErr(ev, engine.NewRuleError(engine.CodeNotFound, "Game has not started!"))
		return
	}

	outcome, rerr := d.engine.Play(s, payload.CardIndex, ev.client.ID)
	if rerr != nil {
		d.ackErr(ev, rerr)
		return
	}

	room := gameRoom(s.GameID)
	d.hub.Broadcast(room, EvtGameChanged, s)

	switch outcome {
	case engine.PlayMismatched:
		d.scheduleResolve(s)
	case engine.PlayMatched:
		if s.Status == engine.StatusEnded {
			d.hub.Broadcast(room, EvtGameEnded, s)
			d.submitOutcome(s, bridge.ReasonEnded)
		}
	}
	d.ack(ev, s)
}

// scheduleResolve arms the flip-back continuation for a mismatched pair.
// The continuation is posted back into the loop, so it mutates the session
// in serialized order; the generation check discards it if the session was
// torn down during the delay.
func (d *Dispatcher) scheduleResolve(s *engine.Session) {
	gameID := s.GameID
	generation := s.Generation
	time.AfterFunc(d.flipBackDelay, func() {
		d.events <- event{kind: kindResolve, gameID: gameID, generation: generation}
	})
}

func (d *Dispatcher) handleResolve(ev event) {
	s, err := d.sessions.Get(ev.gameID)
	if err != nil || s.Generation != ev.generation {
		return
	}
	if d.engine.ResolveMismatch(s) {
		d.hub.Broadcast(gameRoom(s.GameID), EvtGameChanged, s)
	}
}

func (d *Dispatcher) handleQuitGame(ev event) {
	user, ok := d.requireUser(ev)
	if !ok {
		return
	}
	var ref gameRef
	if !d.decode(ev, &ref) {
		return
	}

	s, err := d.sessions.Get(ref.GameID)
	if err != nil {
		d.ackErr(ev, engine.ErrNotFound)
		return
	}
	if rerr := d.engine.Quit(s, ev.client.ID); rerr != nil {
		d.ackErr(ev, rerr)
		return
	}

	room := gameRoom(s.GameID)
	d.hub.Broadcast(room, EvtGameChanged, s)
	d.hub.Broadcast(room, EvtGameQuitted, quitBroadcast{UserQuit: user, Game: s})
	d.hub.Broadcast(room, EvtGameEnded, s)
	d.submitOutcome(s, bridge.ReasonQuit)
	d.hub.LeaveGroup(ev.client, room)
	d.ack(ev, s)
}

func (d *Dispatcher) handleCloseGame(ev event) {
	if _, ok := d.requireUser(ev); !ok {
		return
	}
	var ref gameRef
	if !d.decode(ev, &ref) {
		return
	}

	s, err := d.sessions.Get(ref.GameID)
	if err != nil {
		d.ackErr(ev, engine.ErrNotFound)
		return
	}
	if rerr := d.engine.Close(s, ev.client.ID); rerr != nil {
		d.ackErr(ev, rerr)
		return
	}

	// First close tears the room down for both players.
	d.teardown(s)
	d.ack(ev, true)
}

// teardown releases the session's resources: the room group is emptied and
// the store entry removed, invalidating any scheduled continuation.
func (d *Dispatcher) teardown(s *engine.Session) {
	room := gameRoom(s.GameID)
	for _, connID := range []string{s.Conn1, s.Conn2} {
		if c, ok := d.hub.ClientByID(connID); ok {
			d.hub.LeaveGroup(c, room)
		}
	}
	d.sessions.Delete(s.GameID)
}

// --- disconnect -----------------------------------------------------------

func (d *Dispatcher) handleDisconnect(ev event) {
	if removed := d.lobby.LeaveLobby(ev.client.ID); len(removed) > 0 {
		d.broadcastLobby()
	}

	for _, s := range d.sessions.ForConn(ev.client.ID) {
		switch s.Status {
		case engine.StatusPending:
			// Never started: drop the session and tell the other player.
			other := s.PlayerOf(opponentOf(s, ev.client.ID))
			d.sessions.Delete(s.GameID)
			d.hub.Broadcast(userRoom(other.ID), EvtGameInterrupted, s)

		case engine.StatusPlaying:
			d.interrupt(s, ev.client.ID)

		case engine.StatusEnded:
			// Already over; once nobody is left to close it, drop it.
			otherConn := s.ConnOf(opponentOf(s, ev.client.ID))
			if !d.hub.Connected(otherConn) {
				d.sessions.Delete(s.GameID)
			}
		}
	}
}

// interrupt applies the disconnect forfeiture policy: the remaining player
// wins immediately and the room is torn down.
func (d *Dispatcher) interrupt(s *engine.Session, goneConnID string) {
	if rerr := d.engine.Quit(s, goneConnID); rerr != nil {
		return
	}
	room := gameRoom(s.GameID)
	d.hub.Broadcast(room, EvtGameInterrupted, s)
	d.hub.Broadcast(room, EvtGameEnded, s)
	d.submitOutcome(s, bridge.ReasonInterrupted)
	d.teardown(s)
}

func opponentOf(s *engine.Session, connID string) int {
	if s.SeatOf(connID) == 1 {
		return 2
	}
	return 1
}

// --- persistence ----------------------------------------------------------

func (d *Dispatcher) submitOutcome(s *engine.Session, reason string) {
	outcome, err := bridge.FromSession(s, reason)
	if err != nil {
		log.Printf("Cannot build outcome for game %s: %v", s.GameID, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	if err := d.bridge.SubmitOutcome(ctx, outcome); err != nil {
		log.Printf("Failed to submit outcome for game %s: %v", s.GameID, err)
	}
}
