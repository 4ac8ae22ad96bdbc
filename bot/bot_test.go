package bot

import (
	"context"
	"errors"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitenow/config"
	"bitenow/models"
	"bitenow/services"
)

// fakeAPI records everything the bot sends instead of talking to Telegram.
type fakeAPI struct {
	mu      sync.Mutex
	out     []tgbotapi.Chattable
	nextID  int
	updates chan tgbotapi.Update
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, c)
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.out {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeAPI) edits() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.out {
		if m, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeAPI) answers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.out {
		if m, ok := c.(tgbotapi.CallbackConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeAPI) lastEdit() string {
	edits := f.edits()
	if len(edits) == 0 {
		return ""
	}
	return edits[len(edits)-1]
}

type stubBackend struct {
	menu     []models.MenuItem
	menuErr  error
	orderErr error
	release  chan struct{} // when set, SubmitOrder blocks until closed

	mu     sync.Mutex
	orders []models.OrderRequest
}

func (s *stubBackend) FetchMenu(ctx context.Context) ([]models.MenuItem, error) {
	return s.menu, s.menuErr
}

func (s *stubBackend) SubmitOrder(ctx context.Context, order models.OrderRequest) (*models.OrderReceipt, error) {
	s.mu.Lock()
	s.orders = append(s.orders, order)
	s.mu.Unlock()
	if s.release != nil {
		<-s.release
	}
	if s.orderErr != nil {
		return nil, s.orderErr
	}
	return &models.OrderReceipt{ID: "1"}, nil
}

func (s *stubBackend) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func testMenu() []models.MenuItem {
	return []models.MenuItem{
		menuItem("1", "Burger", "8.5", true),
		menuItem("2", "Fries", "3", true),
		menuItem("3", "Shake", "4", false),
	}
}

func newTestBot(t *testing.T, backend *stubBackend) (*Bot, *fakeAPI) {
	t.Helper()
	cfg, err := config.FromEnv(func(k string) string {
		if k == "RATE_BURST" {
			return "2"
		}
		return ""
	})
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()
	api := &fakeAPI{updates: make(chan tgbotapi.Update, 4)}
	return newBot(api, cfg, backend, logger), api
}

func callback(chatID int64, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "cq-" + data,
		Data:    data,
		Message: &tgbotapi.Message{MessageID: 99, Chat: &tgbotapi.Chat{ID: chatID}},
	}
}

func TestBot_Allow(t *testing.T) {
	b, _ := newTestBot(t, &stubBackend{})
	assert.True(t, b.allow(1))
	assert.True(t, b.allow(1))
	assert.False(t, b.allow(1), "burst exhausted")
	assert.True(t, b.allow(2), "limits are per chat")
}

func TestBot_SessionPerChat(t *testing.T) {
	b, _ := newTestBot(t, &stubBackend{menu: testMenu()})
	s1, opened := b.session(10)
	assert.True(t, opened)
	b.wg.Wait()
	assert.Len(t, s1.Menu(), 3)
	assert.Empty(t, s1.Status())

	again, opened := b.session(10)
	assert.False(t, opened)
	assert.Same(t, s1, again)
	other, _ := b.session(11)
	assert.NotSame(t, s1, other)

	require.NoError(t, s1.Add(models.StringID("1")))
	fresh := b.openSession(10)
	b.wg.Wait()
	assert.NotSame(t, s1, fresh)
	assert.Empty(t, fresh.Cart())
}

func TestBot_OpenSessionShowsLoadingThenMenu(t *testing.T) {
	tests := []struct {
		name    string
		backend *stubBackend
		want    string
	}{
		{"loaded", &stubBackend{menu: testMenu()}, "Burger — $8.50"},
		{"failed", &stubBackend{menuErr: errors.New("connection refused")}, services.StatusLoadFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, api := newTestBot(t, tt.backend)
			b.openSession(10)
			b.wg.Wait()

			msgs := api.messages()
			require.Len(t, msgs, 1)
			assert.Contains(t, msgs[0], services.StatusLoading)
			assert.Contains(t, api.lastEdit(), tt.want)
			assert.NotContains(t, api.lastEdit(), services.StatusLoading)
		})
	}
}

func TestBot_StartHandlesUpdatesUntilClosed(t *testing.T) {
	b, api := newTestBot(t, &stubBackend{menu: testMenu()})
	api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{Text: "/start", Chat: &tgbotapi.Chat{ID: 5}}}
	api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{Text: "/cart", Chat: &tgbotapi.Chat{ID: 5}}}
	close(api.updates)

	b.Start()

	var commands int
	for _, c := range api.out {
		if _, ok := c.(tgbotapi.SetMyCommandsConfig); ok {
			commands++
		}
	}
	assert.Equal(t, 1, commands)
	msgs := api.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1], textCartEmpty)
	assert.Contains(t, api.lastEdit(), "Burger — $8.50")
}

func TestBot_CartCallbacks(t *testing.T) {
	tests := []struct {
		data       string
		wantAnswer string
		wantQty    int
		wantEdit   string
	}{
		{"add:1", "Added Burger", 1, ""},
		{"add:1", "Added Burger", 2, ""},
		{"inc:1", "", 3, "Burger × 3 — $25.50"},
		{"rm:1", "", 2, "Burger × 2 — $17.00"},
		{"add:3", textSoldOut, 2, ""},
		{"add:99", "This item is no longer on the menu.", 2, ""},
		{"rm:99", "", 2, "Burger × 2 — $17.00"},
	}

	b, api := newTestBot(t, &stubBackend{menu: testMenu()})
	s := b.openSession(10)
	b.wg.Wait()

	for _, tt := range tests {
		edits := len(api.edits())
		b.handleCallback(callback(10, tt.data))

		answers := api.answers()
		require.NotEmpty(t, answers, tt.data)
		assert.Equal(t, tt.wantAnswer, answers[len(answers)-1], tt.data)

		var qty int
		for _, e := range s.Cart() {
			if e.Item.ID.String() == "1" {
				qty = e.Quantity
			}
		}
		assert.Equal(t, tt.wantQty, qty, tt.data)

		if tt.wantEdit == "" {
			assert.Len(t, api.edits(), edits, "%s should not edit the cart", tt.data)
		} else {
			assert.Contains(t, api.lastEdit(), tt.wantEdit, tt.data)
		}
	}
}

func TestBot_PlaceOrder(t *testing.T) {
	tests := []struct {
		name     string
		orderErr error
		wantMsg  string
		wantCart int
	}{
		{"failure keeps the cart", &services.OrderError{Status: 409, Detail: "kitchen closed"}, "Error: kitchen closed", 1},
		{"success empties the cart", nil, "Order placed! ID: 1", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &stubBackend{menu: testMenu(), orderErr: tt.orderErr}
			b, api := newTestBot(t, backend)
			s := b.openSession(10)
			b.wg.Wait()
			b.handleCallback(callback(10, "add:1"))

			b.handleCallback(callback(10, cbPlace))
			b.wg.Wait()

			assert.Equal(t, 1, backend.calls())
			assert.Contains(t, api.answers(), textPlacing)
			msgs := api.messages()
			assert.Equal(t, tt.wantMsg, msgs[len(msgs)-1])
			assert.Len(t, s.Cart(), tt.wantCart)
			assert.False(t, s.Placing())

			edits := api.edits()
			require.GreaterOrEqual(t, len(edits), 2)
			assert.Contains(t, edits[len(edits)-2], textPlacing, "cart shows the pending state first")
			assert.NotContains(t, api.lastEdit(), textPlacing, "cart is redrawn when the submission ends")
			if tt.wantCart == 0 {
				assert.Contains(t, api.lastEdit(), textCartEmpty)
			} else {
				assert.Contains(t, api.lastEdit(), "Burger × 1")
			}
		})
	}
}

func TestBot_PlaceWhileInFlight(t *testing.T) {
	backend := &stubBackend{menu: testMenu(), release: make(chan struct{})}
	b, api := newTestBot(t, backend)
	s := b.openSession(10)
	b.wg.Wait()
	b.handleCallback(callback(10, "add:1"))

	b.handleCallback(callback(10, cbPlace))
	assert.True(t, s.Placing(), "flag is set before the submission goroutine runs")
	b.handleCallback(callback(10, cbPlace))

	close(backend.release)
	b.wg.Wait()

	assert.Equal(t, 1, backend.calls())
	answers := api.answers()
	assert.Equal(t, []string{"Added Burger", textPlacing, textPlacing}, answers)
	assert.Equal(t, 1, countOf(api.messages(), "Order placed! ID: 1"))
	assert.False(t, s.Placing())
}

func TestBot_PlaceEmptyCart(t *testing.T) {
	backend := &stubBackend{menu: testMenu()}
	b, api := newTestBot(t, backend)
	b.openSession(10)
	b.wg.Wait()

	b.handleCallback(callback(10, cbPlace))
	b.wg.Wait()

	assert.Equal(t, 0, backend.calls())
	assert.Equal(t, []string{textCartEmpty}, api.answers())
}

func countOf(list []string, s string) int {
	var n int
	for _, v := range list {
		if v == s {
			n++
		}
	}
	return n
}
