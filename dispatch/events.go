package dispatch

import (
	"fmt"

	"github.com/memorymatch/server/game/engine"
)

// Inbound event names.
const (
	EvtLogin          = "login"
	EvtLogout         = "logout"
	EvtChatMessage    = "chatMessage"
	EvtPrivateMessage = "privateMessage"
	EvtFetchGames     = "fetchGames"
	EvtAddGame        = "addGame"
	EvtJoinGame       = "joinGame"
	EvtRemoveGame     = "removeGame"
	EvtStartGame      = "startGame"
	EvtPlay           = "play"
	EvtQuitGame       = "quitGame"
	EvtCloseGame      = "closeGame"
)

// Outbound broadcast event names.
const (
	EvtLobbyChanged    = "lobbyChanged"
	EvtGameStarted     = "gameStarted"
	EvtGameChanged     = "gameChanged"
	EvtGameEnded       = "gameEnded"
	EvtGameQuitted     = "gameQuitted"
	EvtGameInterrupted = "gameInterrupted"
)

// Broadcast group names. Every logged-in connection sits in the lobby group
// and in its own per-user group; players additionally join their game room.
const lobbyGroup = "lobby"

func gameRoom(gameID string) string {
	return "game_" + gameID
}

func userRoom(userID int64) string {
	return fmt.Sprintf("user_%d", userID)
}

// Inbound payload shapes.

type gameRef struct {
	GameID string `json:"gameId"`
}

type startGamePayload struct {
	GameID    string `json:"gameId"`
	BoardSize int    `json:"boardSize,omitempty"`
}

type playPayload struct {
	GameID    string `json:"gameId"`
	CardIndex int    `json:"cardIndex"`
}

type chatPayload struct {
	Message string `json:"message"`
}

type privateMessagePayload struct {
	DestinationUser engine.Identity `json:"destinationUser"`
	Message         string          `json:"message"`
}

// Outbound payload shapes.

type chatBroadcast struct {
	User    engine.Identity `json:"user"`
	Message string          `json:"message"`
}

type quitBroadcast struct {
	UserQuit engine.Identity `json:"userQuit"`
	Game     *engine.Session `json:"game"`
}

type ackSuccess struct {
	Success bool `json:"success"`
}
