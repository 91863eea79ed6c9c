package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/channel-pass-bot/internal/domain/plans"
)

const buyPrefix = "buy:"

// plansKeyboard по кнопке на тариф, в строке одна кнопка.
func plansKeyboard(list []plans.Plan) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(list))
	for _, p := range list {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(p.Label(), buyPrefix+p.ID),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
