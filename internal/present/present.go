// Package present turns canonical data into HTML messages and inline
// keyboards for both bots.
package present

import (
	"fmt"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/servicebot/core/telegram/format"
	"github.com/m3rciful/servicebot/core/telegram/keyboard"
	"github.com/m3rciful/servicebot/internal/apperr"
	"github.com/m3rciful/servicebot/internal/dialog"
	"github.com/m3rciful/servicebot/internal/tokens"
)

// Screen is one message: text in HTML parse mode and an optional markup.
type Screen struct {
	Text   string
	Markup *tele.ReplyMarkup
}

type btn = keyboard.Button

func button(text, token string) btn { return btn{Text: text, Token: token} }

func inline(rows ...[]btn) *tele.ReplyMarkup { return keyboard.Inline(rows...) }

var (
	mainMenuBtn = button("🏠 Главное меню", tokens.MainMenu)
	cancelBtn   = button("❌ Отменить", tokens.Cancel)
)

// pager is the navigation row of a paged dataset. It is empty for a single
// page.
func pager(dataset string, page, total int) []btn {
	if total <= 1 {
		return nil
	}
	var row []btn
	if page > 1 {
		row = append(row, button("◀️", tokens.Page(dataset, page-1)))
	}
	row = append(row, button(fmt.Sprintf("%d из %d", page, total), tokens.CurrentPage(dataset)))
	if page < total {
		row = append(row, button("▶️", tokens.Page(dataset, page+1)))
	}
	return row
}

func pageSuffix(page, total int) string {
	if total <= 1 {
		return ""
	}
	return fmt.Sprintf("\n\nСтраница %d из %d", page, total)
}

// DialogMarkup maps a dialog keyboard to real buttons.
func DialogMarkup(k dialog.Keyboard) *tele.ReplyMarkup {
	switch k {
	case dialog.KeyboardCancel:
		return inline([]btn{cancelBtn})
	case dialog.KeyboardContact:
		return keyboard.Contact("📱 Поделиться контактом")
	case dialog.KeyboardLoginChoice:
		return inline(
			[]btn{button("✅ Использовать email как логин", dialog.ChoiceEmail)},
			[]btn{button("🔄 Ввести другой логин", dialog.ChoiceManual)},
			[]btn{button("❌ Отмена", tokens.Cancel)},
		)
	case dialog.KeyboardRemove:
		return keyboard.Remove()
	case dialog.KeyboardMainMenu:
		return MainMenuMarkup()
	case dialog.KeyboardAuthMenu:
		return AuthMenuMarkup()
	}
	return nil
}

// DialogReply renders a dialog reply.
func DialogReply(r dialog.Reply) Screen {
	return Screen{Text: r.Text, Markup: DialogMarkup(r.Keyboard)}
}

// ErrorText renders err for users. Lookup failures ask to reselect; other
// failures carry the upstream message.
func ErrorText(err error) string {
	msg := format.Escape(apperr.UserMessage(err))
	if apperr.KindOf(err) == apperr.KindLookup {
		return format.Error("Ошибка: " + msg)
	}
	return "<b>❌ Ошибка</b>\n\n" + msg + "\n\nПожалуйста, попробуйте позже или обратитесь в службу поддержки."
}
