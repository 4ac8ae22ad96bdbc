package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"bitenow/models"
)

const (
	textNoItems     = "No items yet. Add some via the backend /menu endpoint."
	textCartEmpty   = "Your cart is empty."
	textPlaceOrder  = "Place order"
	textPlacing     = "Placing..."
	textSoldOut     = "Sold out"
	maxCallbackData = 64 // Telegram limit, bytes
)

// Callback data prefixes.
const (
	cbAdd   = "add:"
	cbInc   = "inc:"
	cbRm    = "rm:"
	cbPlace = "place"
	cbCart  = "cart"
	cbMenu  = "menu"
)

func formatPrice(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// MenuText renders the menu section: the status line (if any) followed by one
// block per item.
func MenuText(status string, menu []models.MenuItem) string {
	var sb strings.Builder
	sb.WriteString("🍔 BiteNow — Menu\n\n")
	if status != "" {
		sb.WriteString(status + "\n")
		return sb.String()
	}
	if len(menu) == 0 {
		sb.WriteString(textNoItems + "\n")
		return sb.String()
	}
	for _, it := range menu {
		line := fmt.Sprintf("• %s — %s", it.Name, formatPrice(it.Price))
		if !it.Available {
			line += " (" + textSoldOut + ")"
		}
		sb.WriteString(line + "\n")
		if it.Description != "" {
			sb.WriteString("  " + it.Description + "\n")
		}
	}
	return sb.String()
}

// menuKeyboard has one add button per available item and a cart shortcut.
func menuKeyboard(menu []models.MenuItem) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, it := range menu {
		data := cbAdd + it.ID.String()
		if !it.Available || len(data) > maxCallbackData {
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("Add %s — %s", it.Name, formatPrice(it.Price)), data),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🛒 Your order", cbCart),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// CartText renders the order summary with subtotal, delivery fee and total.
func CartText(entries []models.CartEntry, p models.Pricing, placing bool) string {
	var sb strings.Builder
	sb.WriteString("🛒 Your Order\n\n")
	if len(entries) == 0 {
		sb.WriteString(textCartEmpty + "\n")
		return sb.String()
	}
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("• %s × %d — %s\n", e.Item.Name, e.Quantity, formatPrice(e.LineTotal())))
	}
	sb.WriteString(fmt.Sprintf("\nSubtotal: %s\n", formatPrice(p.Subtotal)))
	sb.WriteString(fmt.Sprintf("Delivery: %s\n", formatPrice(p.DeliveryFee)))
	sb.WriteString(fmt.Sprintf("Total: %s\n", formatPrice(p.Total)))
	if placing {
		sb.WriteString("\n" + textPlacing + "\n")
	}
	return sb.String()
}

// cartKeyboard has -/+ per entry and the place button. The place button is
// left out while an order is in flight or when there is nothing to pay for.
func cartKeyboard(entries []models.CartEntry, p models.Pricing, placing bool) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, e := range entries {
		id := e.Item.ID.String()
		if len(cbInc+id) > maxCallbackData {
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("−", cbRm+id),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s × %d", e.Item.Name, e.Quantity), cbCart),
			tgbotapi.NewInlineKeyboardButtonData("+", cbInc+id),
		))
	}
	if len(entries) > 0 && !placing && p.Subtotal.IsPositive() {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(textPlaceOrder, cbPlace),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("📋 Menu", cbMenu),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
