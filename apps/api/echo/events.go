package echoapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/jamii/apps/portal"
	"github.com/trezcool/jamii/core"
	"github.com/trezcool/jamii/core/notification"
	"github.com/trezcool/jamii/core/session"
)

// Event types
const (
	EventSession       = "session"
	EventNotifications = "notifications"
)

const (
	eventBufferSize = 32
	writeWait       = 10 * time.Second
)

// Event is one message pushed to live clients.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type eventsApi struct {
	app      *portal.App
	upgrader websocket.Upgrader
}

func registerEventsAPI(g *echo.Group, app *portal.App, conf *core.Config) {
	api := eventsApi{
		app: app,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return conf.Debug || origin == "" || origin == conf.FrontendBaseURL
			},
		},
	}
	g.GET("/events", api.stream)
}

// stream pushes the current state of both stores, then every change, until the client leaves.
func (api *eventsApi) stream(ctx echo.Context) error {
	conn, err := api.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return nil // the upgrader already replied
	}
	defer conn.Close()

	if m := api.app.Metrics; m != nil {
		m.EventClientConnected()
		defer m.EventClientDisconnected()
	}

	events := make(chan Event, eventBufferSize)
	done := make(chan struct{})
	push := func(evt Event) {
		select {
		case events <- evt:
		case <-done:
		default:
			// slow client; it gets the next change
		}
	}

	unsubSession := api.app.Session.Subscribe(func(st session.State) {
		push(Event{Type: EventSession, Data: st})
	})
	defer unsubSession()
	unsubNotes := api.app.Notifications.Subscribe(func(snap notification.Snapshot) {
		push(Event{Type: EventNotifications, Data: snap})
	})
	defer unsubNotes()

	// Keep connection alive until client disconnects
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return nil
		case evt := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(evt); err != nil {
				api.app.Logger.Debug("events: client write failed", err)
				return nil
			}
		}
	}
}
