package dispatch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/memorymatch/server/bridge"
	"github.com/memorymatch/server/game/engine"
	"github.com/memorymatch/server/game/lobby"
	"github.com/memorymatch/server/game/session"
	"github.com/memorymatch/server/transport/websocket"
)

func TestZZProbeGroups(t *testing.T) {
	rules := engine.DefaultRules()
	hub := websocket.NewHub()
	d := New(hub, lobby.NewManager(), session.NewManager(), engine.New(rules), bridge.Nop{})
	hub.SetHandler(d)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := &fixture{t: t, srv: srv}
	c := f.login(7, "probe")
	_ = c
	time.Sleep(300 * time.Millisecond)
	t.Logf("clients=%d lobbyGroup=%d userRoom=%d online=%v",
		hub.ClientCount(), hub.GroupSize(lobbyGroup), hub.GroupSize(userRoom(7)), hub.IsOnline(7))
}
