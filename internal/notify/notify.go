// Package notify sends best-effort messages that must never unwind an
// already-committed ledger mutation. Every method swallows delivery errors
// after logging them.
package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

type TelegramNotifier struct {
	Bot             *telego.Bot
	ReviewChannelID int64
}

func NewTelegramNotifier(bot *telego.Bot, reviewChannelID int64) *TelegramNotifier {
	return &TelegramNotifier{Bot: bot, ReviewChannelID: reviewChannelID}
}

func (n *TelegramNotifier) ReferralCredited(ctx context.Context, referrerID, referredID, newBalance int64) {
	msg := fmt.Sprintf("🎉 По твоей ссылке пришёл новый пользователь (id %d)!\n⭐ Баланс: %d", referredID, newBalance)
	_, err := n.Bot.SendMessage(ctx, tu.Message(tu.ID(referrerID), msg))
	if err != nil {
		log.Printf("Failed to notify referrer %d: %v", referrerID, err)
	}
}

func (n *TelegramNotifier) WithdrawalRequested(ctx context.Context, requestID, userID, amount int64) {
	msg := fmt.Sprintf("💸 Заявка на вывод #%d\nПользователь: %d\nСумма: %d ⭐", requestID, userID, amount)
	_, err := n.Bot.SendMessage(ctx, tu.Message(tu.ID(n.ReviewChannelID), msg))
	if err != nil {
		log.Printf("Failed to notify review channel about withdrawal #%d: %v", requestID, err)
	}
}
