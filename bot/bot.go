package bot

import (
	"context"
	"errors"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"bitenow/config"
	"bitenow/models"
	"bitenow/services"
)

// telegramAPI is the part of *tgbotapi.BotAPI the bot uses.
type telegramAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot is the chat front-end. Every chat gets its own storefront session.
type Bot struct {
	api     telegramAPI
	cfg     *config.Config
	backend services.Backend
	log     logrus.FieldLogger

	sessions   map[int64]*services.Storefront
	sessionsMu sync.RWMutex

	limiters   map[int64]*rate.Limiter
	limitersMu sync.Mutex

	// wg tracks menu loads and order submissions running in the background.
	wg sync.WaitGroup
}

func New(cfg *config.Config, backend services.Backend, log logrus.FieldLogger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}
	return newBot(api, cfg, backend, log), nil
}

func newBot(api telegramAPI, cfg *config.Config, backend services.Backend, log logrus.FieldLogger) *Bot {
	return &Bot{
		api:      api,
		cfg:      cfg,
		backend:  backend,
		log:      log,
		sessions: make(map[int64]*services.Storefront),
		limiters: make(map[int64]*rate.Limiter),
	}
}

func (b *Bot) setBotCommands() error {
	cfg := tgbotapi.SetMyCommandsConfig{
		Commands: []tgbotapi.BotCommand{
			{Command: "start", Description: "Open the storefront"},
			{Command: "menu", Description: "Show the menu"},
			{Command: "cart", Description: "Show your order"},
		},
	}
	_, err := b.api.Request(cfg)
	return err
}

// Start handles updates until the update channel is closed, then waits for
// background work to finish.
func (b *Bot) Start() {
	if err := b.setBotCommands(); err != nil {
		b.log.WithError(err).Warn("set bot commands")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		b.handleUpdate(update)
	}
	b.wg.Wait()
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	chat := update.FromChat()
	if chat == nil {
		return
	}
	if !b.allow(chat.ID) {
		b.log.WithField("chat_id", chat.ID).Debug("update dropped by rate limit")
		return
	}
	if update.CallbackQuery != nil {
		b.handleCallback(update.CallbackQuery)
		return
	}
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	switch strings.TrimSpace(update.Message.Text) {
	case "/start":
		b.openSession(chatID)
	case "/menu":
		// A freshly opened session has just sent its menu.
		if s, opened := b.session(chatID); !opened {
			b.sendMenu(chatID, s)
		}
	case "/cart":
		s, _ := b.session(chatID)
		b.sendCart(chatID, s)
	}
}

// allow reports whether the chat is still within its update rate.
func (b *Bot) allow(chatID int64) bool {
	b.limitersMu.Lock()
	defer b.limitersMu.Unlock()
	l, ok := b.limiters[chatID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(b.cfg.Telegram.RatePerSecond), b.cfg.Telegram.RateBurst)
		b.limiters[chatID] = l
	}
	return l.Allow()
}

// session returns the chat's storefront, opening one if the chat has none
// yet. opened reports whether a new session was started.
func (b *Bot) session(chatID int64) (s *services.Storefront, opened bool) {
	b.sessionsMu.RLock()
	s, ok := b.sessions[chatID]
	b.sessionsMu.RUnlock()
	if ok {
		return s, false
	}
	return b.openSession(chatID), true
}

// openSession replaces the chat's storefront with a fresh one, like a page
// reload. The chat gets a menu message in the loading state right away; the
// menu loads in the background and that message is edited once it is done.
func (b *Bot) openSession(chatID int64) *services.Storefront {
	s := services.NewStorefront(b.backend, b.cfg, b.log.WithField("chat_id", chatID))
	b.sessionsMu.Lock()
	b.sessions[chatID] = s
	b.sessionsMu.Unlock()

	messageID := b.sendMenu(chatID, s)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		// The error is already reflected in s.Status().
		_ = s.LoadMenu(context.Background())
		if messageID == 0 {
			b.sendMenu(chatID, s)
			return
		}
		menu := s.Menu()
		b.editWithInline(chatID, messageID, MenuText(s.Status(), menu), menuKeyboard(menu))
	}()
	return s
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.WithError(err).WithField("chat_id", chatID).Warn("send error")
	}
}

// sendWithInline returns the id of the sent message, or 0 if sending failed.
func (b *Bot) sendWithInline(chatID int64, text string, kb tgbotapi.InlineKeyboardMarkup) int {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	sent, err := b.api.Send(msg)
	if err != nil {
		b.log.WithError(err).WithField("chat_id", chatID).Warn("send error")
		return 0
	}
	return sent.MessageID
}

func (b *Bot) editWithInline(chatID int64, messageID int, text string, kb tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, kb)
	if _, err := b.api.Send(edit); err != nil && !strings.Contains(err.Error(), "not modified") {
		b.log.WithError(err).WithField("chat_id", chatID).Warn("edit error")
	}
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.log.WithError(err).Debug("answer callback")
	}
}

func (b *Bot) sendMenu(chatID int64, s *services.Storefront) int {
	menu := s.Menu()
	return b.sendWithInline(chatID, MenuText(s.Status(), menu), menuKeyboard(menu))
}

func (b *Bot) sendCart(chatID int64, s *services.Storefront) {
	text, kb := cartView(s, s.Placing())
	b.sendWithInline(chatID, text, kb)
}

func (b *Bot) editCart(chatID int64, messageID int, s *services.Storefront, placing bool) {
	text, kb := cartView(s, placing)
	b.editWithInline(chatID, messageID, text, kb)
}

func cartView(s *services.Storefront, placing bool) (string, tgbotapi.InlineKeyboardMarkup) {
	entries := s.Cart()
	p := s.Totals()
	return CartText(entries, p, placing), cartKeyboard(entries, p, placing)
}

func (b *Bot) handleCallback(cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil {
		b.answer(cq.ID, "")
		return
	}
	chatID := cq.Message.Chat.ID
	messageID := cq.Message.MessageID
	data := cq.Data
	s, _ := b.session(chatID)

	switch {
	case strings.HasPrefix(data, cbAdd):
		id := models.StringID(strings.TrimPrefix(data, cbAdd))
		if err := s.Add(id); err != nil {
			b.answer(cq.ID, addErrorText(err))
			return
		}
		it, _ := s.Item(id)
		b.answer(cq.ID, "Added "+it.Name)
	case strings.HasPrefix(data, cbInc):
		id := models.StringID(strings.TrimPrefix(data, cbInc))
		if err := s.Add(id); err != nil {
			b.answer(cq.ID, addErrorText(err))
			return
		}
		b.answer(cq.ID, "")
		b.editCart(chatID, messageID, s, s.Placing())
	case strings.HasPrefix(data, cbRm):
		s.Remove(models.StringID(strings.TrimPrefix(data, cbRm)))
		b.answer(cq.ID, "")
		b.editCart(chatID, messageID, s, s.Placing())
	case data == cbPlace:
		b.handlePlace(cq, s)
	case data == cbCart:
		b.answer(cq.ID, "")
		b.sendCart(chatID, s)
	case data == cbMenu:
		b.answer(cq.ID, "")
		b.sendMenu(chatID, s)
	default:
		b.answer(cq.ID, "")
	}
}

// handlePlace sets the placing flag before answering, so a second tap is
// refused even if the first submission has not started yet.
func (b *Bot) handlePlace(cq *tgbotapi.CallbackQuery, s *services.Storefront) {
	chatID := cq.Message.Chat.ID
	messageID := cq.Message.MessageID
	submit, err := s.BeginPlace()
	switch {
	case errors.Is(err, services.ErrOrderInFlight):
		b.answer(cq.ID, textPlacing)
		return
	case err != nil:
		b.answer(cq.ID, textCartEmpty)
		return
	}
	b.answer(cq.ID, textPlacing)
	b.editCart(chatID, messageID, s, true)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.placeOrder(chatID, messageID, s, submit)
	}()
}

// placeOrder runs one submission and reports the outcome to the chat.
func (b *Bot) placeOrder(chatID int64, messageID int, s *services.Storefront, submit services.SubmitFunc) {
	log := b.log.WithField("chat_id", chatID)
	receipt, err := submit(context.Background())
	if err != nil {
		log.WithError(err).Warn("place order failed")
		b.send(chatID, "Error: "+err.Error())
	} else {
		log.WithField("order_id", receipt.ID).Info("order placed")
		b.send(chatID, "Order placed! ID: "+receipt.ID)
	}
	b.editCart(chatID, messageID, s, false)
}

func addErrorText(err error) string {
	switch {
	case errors.Is(err, services.ErrSoldOut):
		return textSoldOut
	case errors.Is(err, services.ErrUnknownItem):
		return "This item is no longer on the menu."
	default:
		return err.Error()
	}
}
