package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"adaptive-quiz-service/internal/app"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
)

// WSHandler plays the quiz over a websocket and streams ranking updates.
type WSHandler struct {
	service  *app.QuizService
	auth     Authenticator
	validate *validator.Validate
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, auth Authenticator) *WSHandler {
	return &WSHandler{
		service:  service,
		auth:     auth,
		validate: validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	Dataset string `json:"dataset" validate:"required"`
}

type startedPayload struct {
	TotalQuestions int `json:"totalQuestions"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets. The caller authenticates with
// a bearer header or, for browsers, a token query parameter.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	user, err := h.auth.Authenticate(r.Context(), token)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.service.Leaderboard().Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only the writer goroutine touches the connection for writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "leaderboard", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	ctx := r.Context()
	h.sendStatus(ctx, send, user.ID)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			var payload startPayload
			if err := h.unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMessage("invalid start payload")
				continue
			}
			total, err := h.service.Start(ctx, user.ID, payload.Dataset)
			if err != nil {
				send <- errorMessage(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "started", Payload: startedPayload{TotalQuestions: total}}
			h.sendNext(ctx, send, user.ID)
		case "next":
			h.sendNext(ctx, send, user.ID)
		case "answer":
			var payload answerRequest
			if err := h.unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMessage("invalid answer payload")
				continue
			}
			outcome, err := h.service.SubmitAnswer(ctx, user.ID, payload.submission())
			if err != nil {
				send <- errorMessage(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: outcome}
			h.sendNext(ctx, send, user.ID)
		case "status":
			h.sendStatus(ctx, send, user.ID)
		case "reset":
			if err := h.service.Reset(ctx, user.ID); err != nil {
				send <- errorMessage(err.Error())
				continue
			}
			h.sendStatus(ctx, send, user.ID)
		default:
			send <- errorMessage("unsupported message type")
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) unmarshal(raw json.RawMessage, dst interface{}) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return err
	}
	return h.validate.Struct(dst)
}

// sendNext pushes the head of the queue, or a finished notice once it is empty.
func (h *WSHandler) sendNext(ctx context.Context, send chan<- outboundMessage[any], userID int64) {
	view, err := h.service.Next(ctx, userID)
	if err != nil {
		send <- errorMessage(err.Error())
		return
	}
	if view.Finished {
		send <- outboundMessage[any]{Type: "finished", Payload: view}
		return
	}
	send <- outboundMessage[any]{Type: "question", Payload: view}
}

func (h *WSHandler) sendStatus(ctx context.Context, send chan<- outboundMessage[any], userID int64) {
	status, err := h.service.Status(ctx, userID)
	if err != nil {
		send <- errorMessage(err.Error())
		return
	}
	send <- outboundMessage[any]{Type: "status", Payload: status}
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}
