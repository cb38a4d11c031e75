package ws

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"troffee-bid-sync/internal/domain/auction"
	"troffee-bid-sync/internal/domain/bid"
	"troffee-bid-sync/internal/domain/shared"
	"troffee-bid-sync/internal/ports/inbound"
	"troffee-bid-sync/internal/ports/outbound"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var _ outbound.Presenter = (*WsClient)(nil)

type fakeSession struct {
	mu        sync.Mutex
	item      *auction.Item
	bidder    *shared.Bidder
	presenter outbound.Presenter
	draft     int64
	started   bool
	closed    bool
}

func (f *fakeSession) view() outbound.BidView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return outbound.BidView{ItemID: f.item.ID, CurrentBid: 100, MinBid: 105, DraftBid: f.draft}
}

func (f *fakeSession) Start(ctx context.Context) error {
	f.mu.Lock()
	f.started = true
	f.mu.Unlock()
	f.presenter.ShowState(f.view())
	return nil
}

func (f *fakeSession) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeSession) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeSession) Reconcile(ctx context.Context) {}

func (f *fakeSession) SetDraft(amount int64) {
	f.mu.Lock()
	f.draft = amount
	f.mu.Unlock()
	f.presenter.ShowState(f.view())
}

func (f *fakeSession) SelectIncrement(index int) error {
	return shared.ErrInvalidIncrement
}

func (f *fakeSession) Submit() (*bid.Intent, error) {
	intent := bid.NewIntent(f.item.ID, f.view().DraftBid, time.Now())
	f.presenter.ShowIntent(*intent)
	return intent, nil
}

func (f *fakeSession) Cancel() {}

func (f *fakeSession) Confirm(ctx context.Context) error {
	if f.bidder == nil {
		return shared.ErrNotSignedIn
	}
	f.presenter.ShowNotice(shared.Notice{Level: shared.NoticeError, Message: "Bid must be higher than 160"})
	return &shared.CommitError{Reason: "Bid must be higher than 160", Rejected: true}
}

func (f *fakeSession) View() outbound.BidView { return f.view() }

func (f *fakeSession) Item() *auction.Item { return f.item }

type fakeItemStatus struct{}

func (fakeItemStatus) ListSellerItems(ctx context.Context, req inbound.ListSellerItemsRequest) (*inbound.SellerItemsView, error) {
	if req.Seller == nil {
		return nil, shared.ErrNotSignedIn
	}
	return &inbound.SellerItemsView{
		Items:  []shared.SellerItem{{ID: 1, Name: "Vase", Status: shared.ItemStatusSold, SellerID: req.Seller.ID}},
		Counts: map[shared.ItemStatus]int{shared.ItemStatusSold: 1},
	}, nil
}

type gateway struct {
	server   *httptest.Server
	mu       sync.Mutex
	sessions []*fakeSession
}

func (g *gateway) lastSession() *fakeSession {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.sessions) == 0 {
		return nil
	}
	return g.sessions[len(g.sessions)-1]
}

func newGateway(t *testing.T) *gateway {
	t.Helper()
	g := &gateway{}

	handler := NewHandler(WsHandlerParams{
		SessionFactory: func(item *auction.Item, bidder *shared.Bidder, presenter outbound.Presenter) (inbound.BidSession, error) {
			s := &fakeSession{item: item, bidder: bidder, presenter: presenter, draft: 105}
			g.mu.Lock()
			g.sessions = append(g.sessions, s)
			g.mu.Unlock()
			return s, nil
		},
		ItemStatus: fakeItemStatus{},
		Logger:     zerolog.Nop(),
	})

	g.server = httptest.NewServer(NewMux(handler))
	t.Cleanup(func() {
		handler.CloseAll()
		g.server.Close()
	})
	return g
}

func (g *gateway) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(g.server.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg map[string]interface{}) ServerMessage {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
	return readMessage(t, conn)
}

func readMessage(t *testing.T, conn *websocket.Conn) ServerMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var reply ServerMessage
	require.NoError(t, conn.ReadJSON(&reply))
	return reply
}

func subscribeMessage() map[string]interface{} {
	return map[string]interface{}{
		"type": "subscribe",
		"item": map[string]interface{}{
			"id":            7,
			"title":         "Sunflowers",
			"startingPrice": 100,
			"auctionEnd":    time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
		},
	}
}

func TestGateway_Health(t *testing.T) {
	g := newGateway(t)

	resp, err := http.Get(g.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `"status": "ok"`)
}

func TestGateway_RejectsMalformedBidderID(t *testing.T) {
	g := newGateway(t)

	url := "ws" + strings.TrimPrefix(g.server.URL, "http") + "/ws?bidder_id=alice"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGateway_PingPong(t *testing.T) {
	g := newGateway(t)
	conn := g.dial(t, "")

	reply := roundTrip(t, conn, map[string]interface{}{"type": "ping"})
	require.Equal(t, MessageTypePong, reply.Type)
}

func TestGateway_CommandsWithoutSessionFail(t *testing.T) {
	g := newGateway(t)
	conn := g.dial(t, "?bidder_id=42")

	reply := roundTrip(t, conn, map[string]interface{}{"type": "submit_bid"})
	require.Equal(t, MessageTypeError, reply.Type)
	require.Equal(t, shared.ErrNoActiveSession.Error(), *reply.Error)

	reply = roundTrip(t, conn, map[string]interface{}{"type": "place_bid"})
	require.Equal(t, MessageTypeError, reply.Type)
	require.Contains(t, *reply.Error, shared.ErrUnknownMessageType.Error())
}

func TestGateway_BiddingFlow(t *testing.T) {
	g := newGateway(t)
	conn := g.dial(t, "?bidder_id=42&username=alice&token=tok")

	reply := roundTrip(t, conn, subscribeMessage())
	require.Equal(t, MessageTypeBidState, reply.Type)
	require.Equal(t, int64(7), *reply.ItemID)

	session := g.lastSession()
	require.NotNil(t, session)
	require.Equal(t, int64(42), session.bidder.ID)
	require.Equal(t, "tok", session.bidder.Credential)

	reply = roundTrip(t, conn, map[string]interface{}{"type": "set_draft", "data": map[string]interface{}{"amount": "150abc"}})
	require.Equal(t, MessageTypeBidState, reply.Type)
	state := reply.Data["state"].(map[string]interface{})
	require.Equal(t, 150.0, state["draft_bid"])

	reply = roundTrip(t, conn, map[string]interface{}{"type": "set_draft", "data": map[string]interface{}{"amount": "abc"}})
	state = reply.Data["state"].(map[string]interface{})
	require.Equal(t, 105.0, state["draft_bid"])

	reply = roundTrip(t, conn, map[string]interface{}{"type": "submit_bid"})
	require.Equal(t, MessageTypeBidIntent, reply.Type)

	reply = roundTrip(t, conn, map[string]interface{}{"type": "confirm_bid"})
	require.Equal(t, MessageTypeError, reply.Type)
	require.Equal(t, "Bid must be higher than 160", *reply.Error)

	// only the notice is sent for a failed commit
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "ping"}))
	require.Equal(t, MessageTypePong, readMessage(t, conn).Type)
}

func TestGateway_ResubscribeClosesPreviousSession(t *testing.T) {
	g := newGateway(t)
	conn := g.dial(t, "?bidder_id=42")

	roundTrip(t, conn, subscribeMessage())
	first := g.lastSession()

	roundTrip(t, conn, subscribeMessage())
	require.NotSame(t, first, g.lastSession())
	require.True(t, first.isClosed())
}

func TestGateway_DisconnectClosesSession(t *testing.T) {
	g := newGateway(t)
	conn := g.dial(t, "?bidder_id=42")

	roundTrip(t, conn, subscribeMessage())
	session := g.lastSession()

	conn.Close()
	require.Eventually(t, session.isClosed, 2*time.Second, 10*time.Millisecond)
}

func TestGateway_ListSellerItems(t *testing.T) {
	g := newGateway(t)

	conn := g.dial(t, "?bidder_id=9")
	reply := roundTrip(t, conn, map[string]interface{}{"type": "list_seller_items", "data": map[string]interface{}{"status": "SOLD"}})
	require.Equal(t, MessageTypeSellerItems, reply.Type)
	require.Equal(t, 1.0, reply.Data["count"])

	anonymous := g.dial(t, "")
	reply = roundTrip(t, anonymous, map[string]interface{}{"type": "list_seller_items"})
	require.Equal(t, MessageTypeError, reply.Type)
	require.Equal(t, shared.ErrNotSignedIn.Error(), *reply.Error)
}
