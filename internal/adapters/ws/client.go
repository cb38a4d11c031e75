package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"troffee-bid-sync/internal/config"
	"troffee-bid-sync/internal/domain/bid"
	"troffee-bid-sync/internal/domain/shared"
	"troffee-bid-sync/internal/ports/inbound"
	"troffee-bid-sync/internal/ports/outbound"

	"github.com/alitto/pond"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const maxMessageSize = 64 << 10

// WsClient is one connected browser tab. It owns at most one bid session and
// renders that session's output, so it is also the session's presenter.
type WsClient struct {
	id         string
	bidder     *shared.Bidder
	conn       *websocket.Conn
	sendChan   chan *ServerMessage
	ctx        context.Context
	cancel     context.CancelFunc
	handler    *WsHandler
	workerPool *pond.WorkerPool
	stopped    bool
	mu         sync.Mutex
	logger     zerolog.Logger

	sessionMu sync.Mutex
	session   inbound.BidSession
}

type WsClientParams struct {
	Bidder  *shared.Bidder
	Conn    *websocket.Conn
	Handler *WsHandler
	Logger  zerolog.Logger
}

// NewClient creates a new WebSocket client
func NewClient(params WsClientParams) *WsClient {
	ctx, cancel := context.WithCancel(context.Background())

	pool := pond.New(
		config.WSMaxWorkers,
		config.WSMaxCapacity,
		pond.Context(ctx),
		pond.Strategy(pond.Balanced()),
	)

	id := uuid.New().String()
	logger := params.Logger.With().Str("client_id", id).Logger()
	if params.Bidder != nil {
		logger = logger.With().Int64("bidder_id", params.Bidder.ID).Logger()
	}

	return &WsClient{
		id:         id,
		bidder:     params.Bidder,
		conn:       params.Conn,
		sendChan:   make(chan *ServerMessage, 100),
		ctx:        ctx,
		cancel:     cancel,
		handler:    params.Handler,
		workerPool: pool,
		logger:     logger,
	}
}

func (client *WsClient) Start() {
	go client.messageSender()
	go client.messageReceiver()
}

// Stop closes the session and the connection. Safe to call more than once.
func (client *WsClient) Stop() {
	client.mu.Lock()
	if client.stopped {
		client.mu.Unlock()
		return
	}
	client.stopped = true
	client.mu.Unlock()

	client.cancel()
	client.closeSession()
	client.conn.Close()

	// Stop the worker pool
	if client.workerPool != nil {
		client.workerPool.StopAndWait()
	}
}

// Send queues a message for the client
func (client *WsClient) Send(msg *ServerMessage) error {
	client.mu.Lock()
	if client.stopped {
		client.mu.Unlock()
		return fmt.Errorf("client is stopped")
	}
	client.mu.Unlock()

	select {
	case client.sendChan <- msg:
		return nil
	case <-client.ctx.Done():
		return fmt.Errorf("client is stopped")
	default:
		// Channel is full, try to send with a timeout
		select {
		case client.sendChan <- msg:
			return nil
		case <-client.ctx.Done():
			return fmt.Errorf("client is stopped")
		case <-time.After(100 * time.Millisecond):
			return fmt.Errorf("client send channel is full")
		}
	}
}

// ShowState implements outbound.Presenter
func (client *WsClient) ShowState(view outbound.BidView) {
	client.push(NewBidStateMessage(view))
}

// ShowIntent implements outbound.Presenter
func (client *WsClient) ShowIntent(intent bid.Intent) {
	client.push(NewBidIntentMessage(intent))
}

// ShowNotice implements outbound.Presenter
func (client *WsClient) ShowNotice(notice shared.Notice) {
	itemID := client.currentItemID()
	if notice.Level == shared.NoticeSuccess {
		client.push(NewBidPlacedMessage(itemID, notice))
		return
	}
	client.push(NewErrorMessage(notice.Message, &itemID))
}

// ShowEnded implements outbound.Presenter
func (client *WsClient) ShowEnded(view outbound.BidView) {
	client.push(NewAuctionEndedMessage(view))
}

func (client *WsClient) push(msg *ServerMessage) {
	if err := client.Send(msg); err != nil {
		client.logger.Debug().Err(err).Str("message_type", string(msg.Type)).Msg("Dropped message for client")
	}
}

func (client *WsClient) currentSession() inbound.BidSession {
	client.sessionMu.Lock()
	defer client.sessionMu.Unlock()
	return client.session
}

func (client *WsClient) currentItemID() int64 {
	if session := client.currentSession(); session != nil {
		return session.Item().ID
	}
	return 0
}

// replaceSession installs next and returns the session it replaced
func (client *WsClient) replaceSession(next inbound.BidSession) inbound.BidSession {
	client.sessionMu.Lock()
	defer client.sessionMu.Unlock()
	prev := client.session
	client.session = next
	return prev
}

func (client *WsClient) closeSession() {
	if prev := client.replaceSession(nil); prev != nil {
		prev.Close()
	}
}

func (client *WsClient) messageSender() {
	for {
		select {
		case msg := <-client.sendChan:
			if err := client.conn.WriteJSON(msg); err != nil {
				client.logger.Error().Err(err).Msg("Failed to send message to client")
				client.cancel()
				return
			}
		case <-client.ctx.Done():
			return
		}
	}
}

func (client *WsClient) messageReceiver() {
	client.conn.SetReadLimit(maxMessageSize)

	for {
		select {
		case <-client.ctx.Done():
			return
		default:
			_, message, err := client.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					client.logger.Error().Err(err).Msg("WebSocket read error for client")
				} else {
					client.logger.Info().Str("error", err.Error()).Msg("WebSocket connection closed for client")
				}
				// Cancel context to notify handler about disconnection
				client.cancel()
				return
			}
			client.logger.Debug().Str("message", string(message)).Msg("Message received from client")

			client.workerPool.Submit(func() {
				if err := client.handleMessage(message); err != nil {
					client.logger.Warn().Err(err).Msg("Failed to handle client message")
					client.push(NewErrorMessage(err.Error(), nil))
				}
			})
		}
	}
}

func (client *WsClient) handleMessage(data []byte) error {
	msg, err := ParseClientMessage(data)
	if err != nil {
		return fmt.Errorf("invalid message format: %w", err)
	}

	if err := msg.Validate(); err != nil {
		return fmt.Errorf("message validation failed: %w", err)
	}

	if msg.Type == MessageTypePing {
		return client.Send(NewServerMessage(MessageTypePong))
	}

	if client.handler != nil {
		return client.handler.HandleClientMessage(client, msg)
	}
	return fmt.Errorf("handler not available")
}
