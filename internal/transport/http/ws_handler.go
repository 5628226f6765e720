package http

import (
	"context"
	"encoding/json"
	"net/http"

	"assoc-quiz-service/internal/app"
	"assoc-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Importer persists experiment sessions.
type Importer interface {
	Persist(ctx context.Context, batch domain.ImportBatch) (domain.ImportReport, error)
}

// Dictionary answers frequency dictionary queries.
type Dictionary interface {
	Lookup(ctx context.Context, word string, opts domain.SelectionOptions) (domain.Dictionary, error)
}

type WSHandler struct {
	importer   Importer
	dictionary Dictionary
	lock       app.ImportLock
	logger     *zap.Logger
	upgrader   websocket.Upgrader
}

func NewWSHandler(importer Importer, dictionary Dictionary, lock app.ImportLock, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		importer:   importer,
		dictionary: dictionary,
		lock:       lock,
		logger:     logger,
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

type dictionaryPayload struct {
	Word    string                  `json:"word"`
	Options domain.SelectionOptions `json:"options"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and serves import and dictionary requests.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	// Single writer; gorilla connections do not support concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Warn("ws write error", zap.Error(err))
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "ready", Payload: struct{}{}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "import":
			var batch domain.ImportBatch
			if err := json.Unmarshal(inbound.Payload, &batch); err != nil {
				send <- errorMessage("invalid import payload")
				continue
			}
			report, err := h.persist(r.Context(), batch)
			if err != nil {
				h.logger.Error("import failed", zap.Error(err))
				send <- errorMessage(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "imported", Payload: report}
		case "dictionary":
			var payload dictionaryPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMessage("invalid dictionary payload")
				continue
			}
			dict, err := h.dictionary.Lookup(r.Context(), payload.Word, payload.Options)
			if err != nil {
				send <- errorMessage(err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "dictionary", Payload: dict}
		default:
			send <- errorMessage("unsupported message type")
		}
	}

	close(send)
	<-writerDone
}

func (h *WSHandler) persist(ctx context.Context, batch domain.ImportBatch) (domain.ImportReport, error) {
	release, err := h.lock.Acquire(ctx)
	if err != nil {
		return domain.ImportReport{}, err
	}
	defer release()
	return h.importer.Persist(ctx, batch)
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}
