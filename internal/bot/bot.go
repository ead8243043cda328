package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"starsref-bot/internal/gate"
	"starsref-bot/internal/ledger"
	"starsref-bot/internal/rank"
	"starsref-bot/internal/referral"
	"starsref-bot/internal/withdraw"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	leaderboardSize   = 10
	broadcastParallel = 10
	broadcastDedupTTL = 48 * time.Hour
)

type Bot struct {
	Instance    *telego.Bot
	Gate        *gate.Evaluator
	Referrals   *referral.Engine
	Ranks       *rank.Service
	Withdrawals *withdraw.Service
	Store       ledger.Store
	Redis       *redis.Client
	AdminID     int64
}

func New(instance *telego.Bot, gateEval *gate.Evaluator, referrals *referral.Engine, ranks *rank.Service,
	withdrawals *withdraw.Service, store ledger.Store, rdb *redis.Client, adminID int64) *Bot {

	return &Bot{
		Instance:    instance,
		Gate:        gateEval,
		Referrals:   referrals,
		Ranks:       ranks,
		Withdrawals: withdrawals,
		Store:       store,
		Redis:       rdb,
		AdminID:     adminID,
	}
}

func (b *Bot) Start() {
	updates, _ := b.Instance.UpdatesViaLongPolling(context.Background(), nil)

	handler, _ := th.NewBotHandler(b.Instance, updates)

	// A panicking interaction must not take down the serving loop.
	handler.Use(func(ctx *th.Context, update telego.Update) error {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Panic in update handler: %v", r)
			}
		}()
		return ctx.Next(update)
	})

	// /start command, with an optional referrer id argument
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		userID := message.From.ID

		var referrerID *int64
		if parts := strings.Split(message.Text, " "); len(parts) > 1 {
			if id, err := strconv.ParseInt(parts[1], 10, 64); err == nil {
				referrerID = &id
			}
		}

		if err := b.Referrals.Register(ctx.Context(), userID, referrerID); err != nil {
			log.Printf("Failed to register user %d: %v", userID, err)
			return nil
		}

		if !b.passGate(ctx, *message.From, message.Chat.ID) {
			return nil
		}

		if err := b.Referrals.CreditIfDue(ctx.Context(), userID); err != nil {
			log.Printf("Failed to credit referral for user %d: %v", userID, err)
		}

		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
			tu.ID(message.Chat.ID),
			fmt.Sprintf("Привет, %s! 👋\n\nПриглашай друзей и зарабатывай звёзды ⭐", message.From.FirstName),
		).WithReplyMarkup(mainMenuKeyboard()))
		return nil
	}, th.CommandEqual("start"))

	// /broadcast <text> (admin only)
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		if message.From.ID != b.AdminID {
			return nil
		}

		text := strings.TrimSpace(strings.TrimPrefix(message.Text, "/broadcast"))
		if text == "" {
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
				tu.ID(message.Chat.ID), "Использование: /broadcast <текст>"))
			return nil
		}

		delivered := b.broadcast(ctx.Context(), strconv.Itoa(message.MessageID), text)
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
			tu.ID(message.Chat.ID), fmt.Sprintf("Рассылка завершена: %d", delivered)))
		return nil
	}, th.CommandEqual("broadcast"))

	// /ban <user_id> (admin only)
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		message := update.Message
		if message.From.ID != b.AdminID {
			return nil
		}

		parts := strings.Fields(message.Text)
		if len(parts) != 2 {
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
				tu.ID(message.Chat.ID), "Использование: /ban <user_id>"))
			return nil
		}
		targetID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
				tu.ID(message.Chat.ID), "Использование: /ban <user_id>"))
			return nil
		}

		if err := b.Store.SetBanned(ctx.Context(), targetID, true); err != nil {
			log.Printf("Failed to ban user %d: %v", targetID, err)
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
				tu.ID(message.Chat.ID), "Пользователь не найден."))
			return nil
		}
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
			tu.ID(message.Chat.ID), fmt.Sprintf("Пользователь %d забанен.", targetID)))
		return nil
	}, th.CommandEqual("ban"))

	// Main menu
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		defer b.answer(ctx, callback.ID)

		if !b.passGate(ctx, callback.From, callback.From.ID) {
			return nil
		}

		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
			tu.ID(callback.From.ID), "Главное меню:").WithReplyMarkup(mainMenuKeyboard()))
		return nil
	}, th.CallbackDataEqual("menu"))

	// Profile
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		defer b.answer(ctx, callback.ID)

		if !b.passGate(ctx, callback.From, callback.From.ID) {
			return nil
		}

		user, err := b.Store.GetUser(ctx.Context(), callback.From.ID)
		if err != nil {
			log.Printf("Failed to load user %d: %v", callback.From.ID, err)
			return nil
		}
		position, err := b.Ranks.RankOf(ctx.Context(), user.UserID)
		if err != nil {
			log.Printf("Failed to compute rank of user %d: %v", user.UserID, err)
			return nil
		}

		msg := fmt.Sprintf("👤 *Профиль*\n\n🔹 ID: `%d`\n⭐ Баланс: %d\n👥 Рефералов: %d\n🏆 Место: %d\n\n🔗 Твоя ссылка:\n`%s`",
			user.UserID, user.Balance, user.ReferralsCount, position, b.referralLink(ctx.Context(), user.UserID))

		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(tu.ID(callback.From.ID), msg).
			WithParseMode(telego.ModeMarkdown).
			WithReplyMarkup(backMenuKeyboard()))
		return nil
	}, th.CallbackDataEqual("profile"))

	// Tasks: pending sponsor tasks are rendered by the gate itself on deny
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		defer b.answer(ctx, callback.ID)

		if !b.passGate(ctx, callback.From, callback.From.ID) {
			return nil
		}

		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
			tu.ID(callback.From.ID), "✅ Все задания выполнены!").WithReplyMarkup(backMenuKeyboard()))
		return nil
	}, th.CallbackDataEqual("tasks"))

	// Withdrawal menu
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		defer b.answer(ctx, callback.ID)

		if !b.passGate(ctx, callback.From, callback.From.ID) {
			return nil
		}

		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
			tu.ID(callback.From.ID), "💸 Выбери сумму вывода:").WithReplyMarkup(withdrawMenuKeyboard()))
		return nil
	}, th.CallbackDataEqual("withdraw"))

	// Withdrawal request, amount encoded in the callback token
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		defer b.answer(ctx, callback.ID)

		if !b.passGate(ctx, callback.From, callback.From.ID) {
			return nil
		}

		amount, err := strconv.ParseInt(strings.TrimPrefix(callback.Data, "withdraw_"), 10, 64)
		if err != nil {
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
				tu.ID(callback.From.ID), "❌ Некорректная сумма."))
			return nil
		}

		requestID, err := b.Withdrawals.Request(ctx.Context(), callback.From.ID, amount)
		switch {
		case errors.Is(err, withdraw.ErrInvalidAmount):
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
				tu.ID(callback.From.ID), "❌ Некорректная сумма."))
		case errors.Is(err, ledger.ErrInsufficientBalance):
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
				tu.ID(callback.From.ID), "❌ Недостаточно звёзд на балансе.").WithReplyMarkup(backMenuKeyboard()))
		case err != nil:
			log.Printf("Failed to create withdrawal for user %d: %v", callback.From.ID, err)
		default:
			_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
				tu.ID(callback.From.ID),
				fmt.Sprintf("✅ Заявка #%d на вывод %d ⭐ создана и ожидает проверки.", requestID, amount),
			).WithReplyMarkup(backMenuKeyboard()))
		}
		return nil
	}, th.CallbackDataPrefix("withdraw_"))

	// Leaderboard
	leaderboard := func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		defer b.answer(ctx, callback.ID)

		if !b.passGate(ctx, callback.From, callback.From.ID) {
			return nil
		}

		if _, err := b.Ranks.MaybeWeeklyReset(ctx.Context()); err != nil {
			log.Printf("Weekly reset check failed: %v", err)
		}

		top, err := b.Ranks.TopN(ctx.Context(), leaderboardSize)
		if err != nil {
			log.Printf("Failed to load leaderboard: %v", err)
			return nil
		}

		var sb strings.Builder
		sb.WriteString("🏆 ТОП рефералов недели:\n\n")
		for i, entry := range top {
			sb.WriteString(fmt.Sprintf("%d. %d — %d 👥\n", i+1, entry.UserID, entry.ReferralsCount))
		}
		if position, err := b.Ranks.RankOf(ctx.Context(), callback.From.ID); err == nil {
			sb.WriteString(fmt.Sprintf("\nТвоё место: %d", position))
		}

		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
			tu.ID(callback.From.ID), sb.String()).WithReplyMarkup(backMenuKeyboard()))
		return nil
	}
	handler.Handle(leaderboard, th.CallbackDataEqual("top_refs"))
	handler.Handle(leaderboard, th.CallbackDataEqual("referrals"))

	// Re-check after sponsor tasks
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		callback := update.CallbackQuery
		defer b.answer(ctx, callback.ID)

		if !b.passGate(ctx, callback.From, callback.From.ID) {
			return nil
		}

		if err := b.Referrals.CreditIfDue(ctx.Context(), callback.From.ID); err != nil {
			log.Printf("Failed to credit referral for user %d: %v", callback.From.ID, err)
		}

		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
			tu.ID(callback.From.ID), "✅ Проверка пройдена, доступ разрешён").WithReplyMarkup(mainMenuKeyboard()))
		return nil
	}, th.CallbackDataEqual("check_tasks"))

	// Unknown callback tokens are acknowledged and dropped.
	handler.Handle(func(ctx *th.Context, update telego.Update) error {
		b.answer(ctx, update.CallbackQuery.ID)
		return nil
	}, th.AnyCallbackQuery())

	handler.Start()
}

// passGate runs the full two-provider check. It is invoked on every gated
// interaction and nothing is cached between calls. On a sponsor-list deny
// it renders the required actions with a re-check button; on any other deny
// it stays silent (the verifier messages the user itself).
func (b *Bot) passGate(ctx *th.Context, from telego.User, chatID int64) bool {
	decision := b.Gate.Evaluate(ctx.Context(), gate.Identity{
		UserID:       from.ID,
		ChatID:       chatID,
		FirstName:    from.FirstName,
		Username:     from.Username,
		LanguageCode: from.LanguageCode,
	})
	if decision.Admitted {
		return true
	}
	if len(decision.Actions) > 0 {
		_, _ = ctx.Bot().SendMessage(ctx.Context(), tu.Message(
			tu.ID(chatID), "📌 Для доступа подпишись на спонсоров:").
			WithReplyMarkup(sponsorKeyboard(decision.Actions)))
	}
	return false
}

func (b *Bot) answer(ctx *th.Context, callbackID string) {
	_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callbackID))
}

func (b *Bot) referralLink(ctx context.Context, userID int64) string {
	botUsername := "starsref_bot"
	if info, err := b.Instance.GetMe(ctx); err == nil {
		botUsername = info.Username
	}
	return fmt.Sprintf("https://t.me/%s?start=%d", botUsername, userID)
}

// broadcast delivers text to every non-banned user with bounded
// concurrency. Delivery is deduplicated in redis per (broadcast, user) so a
// redelivered admin command does not message anyone twice.
func (b *Bot) broadcast(ctx context.Context, broadcastID, text string) int {
	ids, err := b.Store.ActiveUserIDs(ctx)
	if err != nil {
		log.Printf("Failed to list broadcast recipients: %v", err)
		return 0
	}

	var delivered int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(broadcastParallel)

	for _, id := range ids {
		g.Go(func() error {
			key := fmt.Sprintf("broadcast:%s:%d", broadcastID, id)
			fresh, err := b.Redis.SetNX(gctx, key, "1", broadcastDedupTTL).Result()
			if err != nil {
				log.Printf("Broadcast dedup check failed for user %d: %v", id, err)
			} else if !fresh {
				return nil
			}

			if _, err := b.Instance.SendMessage(gctx, tu.Message(tu.ID(id), text)); err != nil {
				log.Printf("Failed to deliver broadcast to user %d: %v", id, err)
				return nil
			}
			atomic.AddInt64(&delivered, 1)
			return nil
		})
	}
	_ = g.Wait()

	return int(atomic.LoadInt64(&delivered))
}
