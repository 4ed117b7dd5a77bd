package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/roomcast/roomcast-server/internal/auth"
	"github.com/roomcast/roomcast-server/internal/core"
	"github.com/roomcast/roomcast-server/internal/proto"
	"github.com/roomcast/roomcast-server/internal/store"
)

// WSHandler upgrades HTTP connections and bridges them to core.Client.
// Actions arriving on one connection are dispatched sequentially, which
// gives each connection the per-connection ordering the protocol promises.
type WSHandler struct {
	service     *core.Service
	rooms       *core.RoomCollection
	authService *auth.Service
	log         *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(service *core.Service, rooms *core.RoomCollection, authService *auth.Service, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{
		service:     service,
		rooms:       rooms,
		authService: authService,
		log:         logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	client := core.NewClient(uuid.NewString(), h.resolveUser(ctx, r))
	defer h.service.DetachAll(client, h.rooms)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// resolveUser attaches an identity from the optional bearer token in the
// query string. Connections without a valid token stay anonymous.
func (h *WSHandler) resolveUser(ctx context.Context, r *stdhttp.Request) *store.User {
	token := r.URL.Query().Get("token")
	if token == "" {
		return nil
	}

	user, err := h.authService.ResolveUser(ctx, token)
	if err != nil {
		h.log.Debug().Err(err).Msg("ws token rejected, continuing as anonymous")
		return nil
	}
	return user
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		var msg proto.ActionMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return err
		}

		h.service.Handle(ctx, actionFromMessage(&msg), client, h.rooms)
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case reply, ok := <-client.Replies:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, replyToWire(reply)); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws reply")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
