package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/channel-pass-bot/internal/domain/plans"
)

const adminHelp = "Команды админа:\n" +
	"/addplan <name> <price> — добавить тариф\n" +
	"/setprice <name> <newPrice> — изменить цену\n" +
	"/subscribers — выгрузка подписчиков (Excel)\n" +
	"/retry — повторить неудавшиеся выдачи доступа"

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		b.reply(chatID, "Добро пожаловать!\nИспользуй /subscribe")

	case "subscribe":
		b.showPlans(ctx, chatID)

	case "admin":
		if !b.allowAdmin(msg) {
			return
		}
		b.reply(chatID, adminHelp)

	case "addplan":
		b.addPlan(ctx, msg)

	case "setprice":
		b.setPrice(ctx, msg)

	case "subscribers":
		if !b.allowAdmin(msg) {
			return
		}
		if err := b.sendExport(ctx, chatID); err != nil {
			b.log.Error("subscribers export failed", "err", err)
			b.reply(chatID, "Ошибка: не удалось сформировать выгрузку")
		}

	case "retry":
		if !b.allowAdmin(msg) {
			return
		}
		n, err := b.grants.RetryFailed(ctx)
		if err != nil {
			b.log.Error("retry failed grants", "err", err)
			b.reply(chatID, "Ошибка: не удалось вернуть выдачи в очередь")
			return
		}
		if n == 0 {
			b.reply(chatID, "Неудавшихся выдач нет")
			return
		}
		b.reply(chatID, fmt.Sprintf("Возвращено в очередь: %d", n))

	default:
		b.reply(chatID, "Не знаю такую команду. Используй /subscribe")
	}
}

// allowAdmin админ определяется по chat id; чужим ничего не отвечаем.
func (b *Bot) allowAdmin(msg *tgbotapi.Message) bool {
	if err := b.plans.Authorize(msg.Chat.ID); err != nil {
		b.log.Warn("admin command denied", "command", msg.Command(), "chat_id", msg.Chat.ID, "from", msg.From.ID)
		return false
	}
	return true
}

func (b *Bot) showPlans(ctx context.Context, chatID int64) {
	list, err := b.plans.List(ctx)
	if err != nil {
		b.log.Error("list plans failed", "err", err)
		b.reply(chatID, "Ошибка: не удалось загрузить тарифы")
		return
	}
	if len(list) == 0 {
		b.reply(chatID, "Тарифов нет")
		return
	}
	m := tgbotapi.NewMessage(chatID, "Выбери тариф:")
	m.ReplyMarkup = plansKeyboard(list)
	b.send(m)
}

func (b *Bot) addPlan(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	name, price, _ := splitNamePrice(msg.CommandArguments())

	_, err := b.plans.Add(ctx, chatID, name, price)
	switch {
	case err == nil:
		b.log.Info("plan added", "name", name, "price", price)
		b.reply(chatID, "Тариф добавлен")
	case errors.Is(err, plans.ErrUnauthorized):
		b.log.Warn("admin command denied", "command", "addplan", "chat_id", chatID, "from", msg.From.ID)
	case errors.Is(err, plans.ErrInvalidName), errors.Is(err, plans.ErrInvalidPrice):
		b.reply(chatID, "Формат: /addplan name price")
	case errors.Is(err, plans.ErrExists):
		b.reply(chatID, "Тариф с таким названием уже есть")
	default:
		b.log.Error("add plan failed", "err", err)
		b.reply(chatID, "Ошибка: не удалось сохранить тариф")
	}
}

func (b *Bot) setPrice(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	name, price, _ := splitNamePrice(msg.CommandArguments())

	err := b.plans.SetPrice(ctx, chatID, name, price)
	switch {
	case err == nil:
		b.log.Info("plan price updated", "name", name, "price", price)
		b.reply(chatID, "Цена обновлена")
	case errors.Is(err, plans.ErrUnauthorized):
		b.log.Warn("admin command denied", "command", "setprice", "chat_id", chatID, "from", msg.From.ID)
	case errors.Is(err, plans.ErrInvalidPrice):
		b.reply(chatID, "Неверная цена")
	case errors.Is(err, plans.ErrNotFound):
		b.reply(chatID, "Тариф не найден")
	default:
		b.log.Error("set price failed", "err", err)
		b.reply(chatID, "Ошибка: не удалось обновить цену")
	}
}

func (b *Bot) onCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.From == nil {
		return
	}
	chatID := cb.From.ID
	if cb.Message != nil && cb.Message.Chat != nil {
		chatID = cb.Message.Chat.ID
	}
	if err := b.answerCallback(cb, "", false); err != nil {
		b.log.Warn("answer callback failed", "err", err)
	}

	planID, ok := strings.CutPrefix(cb.Data, buyPrefix)
	if !ok {
		return
	}
	p, err := b.plans.Get(ctx, planID)
	if err != nil {
		if !errors.Is(err, plans.ErrNotFound) {
			b.log.Error("get plan failed", "plan_id", planID, "err", err)
		}
		b.reply(chatID, "Тариф не найден")
		return
	}

	userID := strconv.FormatInt(cb.From.ID, 10)
	link := b.links.PaymentURL(p.Price, userID)
	if b.directLink {
		co, err := b.checkout.CreateCheckout(ctx, p.Price, userID)
		if err != nil {
			b.log.Error("checkout session failed", "plan_id", p.ID, "user", userID, "err", err)
			b.reply(chatID, "Не удалось создать оплату, попробуйте позже")
			return
		}
		link = co.URL
	}
	b.reply(chatID, fmt.Sprintf("📦 %s\n💰 %d₽\n\n👉 Оплатить:\n%s", p.Name, p.Price, link))
}
