package ws

import (
	"errors"
	"net/http"
	"strconv"
	"sync"

	"troffee-bid-sync/internal/domain/auction"
	"troffee-bid-sync/internal/domain/shared"
	"troffee-bid-sync/internal/ports/inbound"
	"troffee-bid-sync/internal/ports/outbound"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// SessionFactory opens a bid session whose output goes to presenter. The
// returned session has not been started.
type SessionFactory func(item *auction.Item, bidder *shared.Bidder, presenter outbound.Presenter) (inbound.BidSession, error)

// WsHandler manages WebSocket connections and message routing
type WsHandler struct {
	clients    map[string]*WsClient // clientID -> Client
	clientsMu  sync.RWMutex
	upgrader   websocket.Upgrader
	newSession SessionFactory
	itemStatus inbound.ItemStatusService
	logger     zerolog.Logger
}

type WsHandlerParams struct {
	Upgrader       websocket.Upgrader
	SessionFactory SessionFactory
	ItemStatus     inbound.ItemStatusService
	Logger         zerolog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(params WsHandlerParams) *WsHandler {
	return &WsHandler{
		clients:    make(map[string]*WsClient),
		upgrader:   params.Upgrader,
		newSession: params.SessionFactory,
		itemStatus: params.ItemStatus,
		logger:     params.Logger.With().Str("component", "ws_handler").Logger(),
	}
}

// HandleWebSocket upgrades the connection. Without bidder_id the client can
// watch items but not commit bids.
func (handler *WsHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	bidder, err := bidderFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := handler.upgrader.Upgrade(w, r, nil)
	if err != nil {
		handler.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := NewClient(WsClientParams{
		Bidder:  bidder,
		Conn:    conn,
		Handler: handler,
		Logger:  handler.logger,
	})

	handler.registerClient(client)
	client.Start()

	// Wait for client to disconnect
	go func() {
		<-client.ctx.Done()
		handler.unregisterClient(client)
	}()

	handler.logger.Info().Str("client_id", client.id).Bool("signed_in", bidder != nil).Msg("WebSocket client connected")
}

func bidderFromQuery(r *http.Request) (*shared.Bidder, error) {
	query := r.URL.Query()
	raw := query.Get("bidder_id")
	if raw == "" {
		return nil, nil
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, errors.New("invalid bidder_id format")
	}

	return &shared.Bidder{
		ID:         id,
		Username:   query.Get("username"),
		Credential: query.Get("token"),
	}, nil
}

func (handler *WsHandler) registerClient(client *WsClient) {
	handler.clientsMu.Lock()
	defer handler.clientsMu.Unlock()
	handler.clients[client.id] = client
	handler.logger.Debug().Str("client_id", client.id).Int("total_clients", len(handler.clients)).Msg("Client registered")
}

func (handler *WsHandler) unregisterClient(client *WsClient) {
	handler.clientsMu.Lock()
	delete(handler.clients, client.id)
	remaining := len(handler.clients)
	handler.clientsMu.Unlock()

	client.Stop()

	handler.logger.Info().Str("client_id", client.id).Int("total_clients", remaining).Msg("WebSocket client disconnected")
}

// CloseAll disconnects every client
func (handler *WsHandler) CloseAll() {
	handler.clientsMu.RLock()
	clients := make([]*WsClient, 0, len(handler.clients))
	for _, client := range handler.clients {
		clients = append(clients, client)
	}
	handler.clientsMu.RUnlock()

	for _, client := range clients {
		client.cancel()
	}
	for _, client := range clients {
		handler.unregisterClient(client)
	}
}

// GetConnectedClients returns the number of connected clients
func (handler *WsHandler) GetConnectedClients() int {
	handler.clientsMu.RLock()
	defer handler.clientsMu.RUnlock()
	return len(handler.clients)
}

func (handler *WsHandler) HandleClientMessage(client *WsClient, msg *ClientMessage) error {
	switch msg.Type {
	case MessageTypeSubscribe:
		return handler.handleSubscribe(client, msg)

	case MessageTypeUnsubscribe:
		client.closeSession()
		return nil

	case MessageTypeSetDraft:
		return handler.handleSetDraft(client, msg)

	case MessageTypeSelectIncrement:
		session, err := requireSession(client)
		if err != nil {
			return err
		}
		return session.SelectIncrement(msg.IncrementIndex())

	case MessageTypeSubmitBid:
		session, err := requireSession(client)
		if err != nil {
			return err
		}
		_, err = session.Submit()
		return err

	case MessageTypeConfirmBid:
		return handler.handleConfirm(client)

	case MessageTypeCancelBid:
		session, err := requireSession(client)
		if err != nil {
			return err
		}
		session.Cancel()
		return nil

	case MessageTypeListSellerItems:
		return handler.handleListSellerItems(client, msg)

	default:
		handler.logger.Warn().Str("client_id", client.id).Str("message_type", string(msg.Type)).Msg("Unknown message type from client")
		return shared.ErrUnknownMessageType
	}
}

func requireSession(client *WsClient) (inbound.BidSession, error) {
	session := client.currentSession()
	if session == nil {
		return nil, shared.ErrNoActiveSession
	}
	return session, nil
}

// handleSubscribe replaces the client's session with one for the new item
func (handler *WsHandler) handleSubscribe(client *WsClient, msg *ClientMessage) error {
	item, err := msg.Item.ToItem()
	if err != nil {
		return err
	}

	session, err := handler.newSession(item, client.bidder, client)
	if err != nil {
		handler.logger.Error().Err(err).Str("client_id", client.id).Int64("item_id", item.ID).Msg("Failed to create bid session")
		return err
	}

	client.closeSession()
	if err := session.Start(client.ctx); err != nil {
		handler.logger.Error().Err(err).Str("client_id", client.id).Int64("item_id", item.ID).Msg("Failed to start bid session")
		return err
	}

	if prev := client.replaceSession(session); prev != nil {
		prev.Close()
	}
	// the client may have stopped while the session was starting
	if client.ctx.Err() != nil {
		client.closeSession()
		return client.ctx.Err()
	}

	handler.logger.Info().Str("client_id", client.id).Int64("item_id", item.ID).Msg("Client subscribed to item")
	return nil
}

func (handler *WsHandler) handleSetDraft(client *WsClient, msg *ClientMessage) error {
	session, err := requireSession(client)
	if err != nil {
		return err
	}

	amount, ok := msg.DraftAmount()
	if !ok {
		amount = session.View().MinBid
	}
	session.SetDraft(amount)
	return nil
}

// handleConfirm commits the pending bid. Commit failures were already shown
// to the bidder as a notice.
func (handler *WsHandler) handleConfirm(client *WsClient) error {
	session, err := requireSession(client)
	if err != nil {
		return err
	}

	err = session.Confirm(client.ctx)
	if errors.Is(err, shared.ErrCommitFailed) {
		return nil
	}
	return err
}

func (handler *WsHandler) handleListSellerItems(client *WsClient, msg *ClientMessage) error {
	view, err := handler.itemStatus.ListSellerItems(client.ctx, inbound.ListSellerItemsRequest{
		Seller: client.bidder,
		Status: msg.StatusFilter(),
	})
	if err != nil {
		return err
	}
	return client.Send(NewSellerItemsMessage(view))
}
