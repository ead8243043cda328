package bot

import (
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"starsref-bot/internal/gate"
	"starsref-bot/internal/withdraw"
)

func mainMenuKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("📌 Задания").WithCallbackData("tasks"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("👤 Профиль").WithCallbackData("profile"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("💸 Вывод").WithCallbackData("withdraw"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🏆 ТОП рефералов").WithCallbackData("top_refs"),
		),
	)
}

func backMenuKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🔙 В меню").WithCallbackData("menu"),
		),
	)
}

func withdrawMenuKeyboard() *telego.InlineKeyboardMarkup {
	buttons := make([]telego.InlineKeyboardButton, 0, len(withdraw.Denominations))
	for _, amount := range withdraw.Denominations {
		buttons = append(buttons, tu.InlineKeyboardButton(fmt.Sprintf("⭐ %d", amount)).
			WithCallbackData(fmt.Sprintf("withdraw_%d", amount)))
	}

	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(buttons[:2]...),
		tu.InlineKeyboardRow(buttons[2:]...),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("🔙 В меню").WithCallbackData("menu"),
		),
	)
}

func sponsorKeyboard(actions []gate.RequiredAction) *telego.InlineKeyboardMarkup {
	rows := make([][]telego.InlineKeyboardButton, 0, len(actions)+1)
	for _, action := range actions {
		label := action.Label
		if label == "" {
			label = "Подписаться"
		}
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(label).WithURL(action.URL),
		))
	}
	rows = append(rows, tu.InlineKeyboardRow(
		tu.InlineKeyboardButton("✅ Проверить").WithCallbackData("check_tasks"),
	))
	return tu.InlineKeyboard(rows...)
}
