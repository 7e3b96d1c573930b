package present

import (
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/servicebot/core/telegram/format"
	"github.com/m3rciful/servicebot/internal/apperr"
	"github.com/m3rciful/servicebot/internal/model"
	"github.com/m3rciful/servicebot/internal/orders"
	"github.com/m3rciful/servicebot/internal/paging"
	"github.com/m3rciful/servicebot/internal/tokens"
)

const (
	textStaffWelcome = "👋 Добро пожаловать в бот для сотрудников автосервиса!\n\n📱 Пожалуйста, авторизуйтесь для продолжения."
	textStaffHelp    = "🔍 <b>Справка по использованию бота для сотрудников:</b>\n\n" +
		"/start - Начать работу с ботом или вернуться в главное меню\n" +
		"/help - Показать эту справку\n" +
		"/cancel - Прервать вход\n\n" +
		"Используйте кнопки меню для навигации по функциям бота."
	textNotAuthorized = "Для работы с заказами необходимо авторизоваться. Отправьте /start."
)

// StaffMenuMarkup is the root keyboard of the staff bot.
func StaffMenuMarkup() *tele.ReplyMarkup {
	return inline(
		[]btn{button("📋 Показать все заказы", tokens.ShowOrders)},
		[]btn{button("ℹ️ Помощь", tokens.Help)},
	)
}

// StaffWelcome opens the staff bot.
func StaffWelcome() Screen { return Screen{Text: textStaffWelcome} }

// StaffMenu is the staff main menu.
func StaffMenu() Screen { return Screen{Text: "🏠 Главное меню", Markup: StaffMenuMarkup()} }

// StaffHelp lists the staff commands.
func StaffHelp() Screen { return Screen{Text: textStaffHelp, Markup: StaffMenuMarkup()} }

// StaffLoggedIn confirms a staff login.
func StaffLoggedIn(login string) Screen {
	return Screen{
		Text:   format.Success("Вы успешно авторизованы как сотрудник, " + format.Escape(login) + "!"),
		Markup: StaffMenuMarkup(),
	}
}

// StaffLoginFailed wraps the failure text of a staff login.
func StaffLoginFailed(text string) Screen {
	return Screen{Text: text + "\n\nПопробуйте снова с команды /start."}
}

// StaffCancelled answers /cancel. The menu is offered only to logged-in staff.
func StaffCancelled(text string, authenticated bool) Screen {
	if authenticated {
		return Screen{Text: text, Markup: StaffMenuMarkup()}
	}
	return Screen{Text: text}
}

// StaffUnauthorized is the alert shown to users without a staff session.
func StaffUnauthorized() string { return format.Warning(textNotAuthorized) }

// OrderText renders the detail of an order. Service-bay orders carry the
// car, the planned window and the mechanic. It is the only detail renderer.
func OrderText(o model.Order) string {
	serviceBay := o.Kind == model.OrderKindServiceBay
	var b strings.Builder
	if serviceBay {
		fmt.Fprintf(&b, "<b>Заказ СТО №%s</b>\n\n", format.Escape(orderNumber(o)))
		fmt.Fprintf(&b, "📅 <b>Дата создания:</b> %s\n", format.Escape(o.Date.Display()))
	} else {
		fmt.Fprintf(&b, "<b>Заказ №%s</b>\n\n", format.Escape(orderNumber(o)))
		fmt.Fprintf(&b, "📅 <b>Дата:</b> %s\n", format.Escape(o.Date.Display()))
	}
	fmt.Fprintf(&b, "👤 <b>Клиент:</b> %s\n", format.Escape(format.Or(o.Client.Name, "Неизвестно")))
	fmt.Fprintf(&b, "📱 <b>Телефон:</b> %s\n", format.Escape(format.Or(o.Client.Phone, "Нет телефона")))
	if serviceBay {
		mechanic := "Не назначен"
		if o.MechanicAssigned() {
			mechanic = o.Mechanic
		}
		fmt.Fprintf(&b, "🚗 <b>Автомобиль:</b> %s\n", format.Escape(format.Or(o.Car, "Не указан")))
		fmt.Fprintf(&b, "🕒 <b>Запланировано с:</b> %s\n", format.Escape(o.StartDate.Display()))
		fmt.Fprintf(&b, "🕒 <b>Запланировано до:</b> %s\n", format.Escape(o.EndDate.Display()))
		fmt.Fprintf(&b, "👨‍🔧 <b>Механик:</b> %s\n", format.Escape(mechanic))
	}
	fmt.Fprintf(&b, "💰 <b>Сумма:</b> %s руб.\n", model.FormatAmount(o.Amount))
	fmt.Fprintf(&b, "📊 <b>Статус:</b> %s\n", format.Escape(statusText(o.Status, "Нет статуса")))
	if o.Comment != "" {
		fmt.Fprintf(&b, "💬 <b>Комментарий:</b> %s\n", format.Escape(o.Comment))
	}
	if len(o.Items) > 0 {
		if serviceBay {
			b.WriteString("\n<b>Запчасти и услуги:</b>\n")
		} else {
			b.WriteString("\n<b>Позиции заказа:</b>\n")
		}
		for i, it := range o.Items {
			fmt.Fprintf(&b, "%d. %s\n   Кол-во: %d × %s = %s руб.\n",
				i+1,
				format.Escape(format.Or(it.Name, "Неизвестная позиция")),
				it.Quantity,
				model.FormatAmount(it.UnitPrice),
				model.FormatAmount(it.Amount),
			)
		}
	}
	return b.String()
}

func orderNumber(o model.Order) string { return format.Or(o.Number, "б/н") }

// OrderList renders one page of the order list.
func OrderList(l orders.Listing) Screen {
	if l.Total == 0 {
		return Screen{Text: "📋 Список заказов пуст", Markup: StaffMenuMarkup()}
	}
	var (
		b    strings.Builder
		rows [][]btn
	)
	b.WriteString("📋 <b>Список всех заказов:</b>\n\n")
	offset := (l.Page - 1) * paging.PageSize
	for i, o := range l.Orders {
		n := orderNumber(o)
		status := statusText(o.Status, "Нет статуса")
		fmt.Fprintf(&b, "%d. <b>Заказ №%s</b>\n", offset+i+1, format.Escape(n))
		fmt.Fprintf(&b, "📅 Дата: %s\n", format.Escape(o.Date.Display()))
		fmt.Fprintf(&b, "👤 Клиент: %s\n", format.Escape(format.Or(o.Client.Name, "Неизвестно")))
		if o.Kind == model.OrderKindServiceBay {
			fmt.Fprintf(&b, "🚗 Автомобиль: %s\n", format.Escape(format.Or(o.Car, "Не указан")))
		} else {
			fmt.Fprintf(&b, "📱 Телефон: %s\n", format.Escape(format.Or(o.Client.Phone, "Нет телефона")))
		}
		fmt.Fprintf(&b, "💰 Сумма: %s руб.\n", model.FormatAmount(o.Amount))
		fmt.Fprintf(&b, "📊 Статус: %s\n\n", format.Escape(status))

		label := fmt.Sprintf("№%s - %s - %s руб. (%s)", n, format.Or(o.Client.Name, "Клиент"), model.FormatAmount(o.Amount), status)
		rows = append(rows, []btn{button(label, tokens.Entity(tokens.Order, n))})
	}
	rows = append(rows, pager(tokens.Orders, l.Page, l.TotalPages))
	rows = append(rows, []btn{button("🔙 Назад в меню", tokens.StaffMenu)})
	return Screen{Text: strings.TrimRight(b.String(), "\n") + pageSuffix(l.Page, l.TotalPages), Markup: inline(rows...)}
}

// OrderDetail renders an order with its actions.
func OrderDetail(d orders.Detail) Screen {
	n := orderNumber(d.Order)
	return Screen{
		Text:   "📝 <b>Детали заказа #" + format.Escape(n) + ":</b>\n\n" + d.Text,
		Markup: orderActions(n),
	}
}

func orderActions(number string) *tele.ReplyMarkup {
	return inline(
		[]btn{button("🔄 Изменить статус", tokens.StatusChange(number))},
		[]btn{button("📋 К списку заказов", tokens.ShowOrders), button("🔙 В меню", tokens.StaffMenu)},
	)
}

// StatusPicker offers every valid status of an order.
func StatusPicker(ch orders.Choices) Screen {
	rows := make([][]btn, 0, len(ch.Statuses)+1)
	for _, s := range ch.Statuses {
		rows = append(rows, []btn{button(format.Or(s.Label, s.Code), tokens.StatusSet(ch.Number, s.Code))})
	}
	rows = append(rows, []btn{button("🔙 Назад к заказу", tokens.Entity(tokens.Order, ch.Number))})
	return Screen{
		Text: "🔄 <b>Изменение статуса заказа #" + format.Escape(ch.Number) + "</b>\n\n" +
			"Текущий статус: " + format.Bold(ch.Current.Label) + "\n\n" +
			"Выберите новый статус заказа:",
		Markup: inline(rows...),
	}
}

// StatusToast is the short callback answer after a status change.
func StatusToast(res orders.Result) string { return "✅ Статус изменен на: " + res.Label }

// StatusChanged confirms a status change and shows the order again.
func StatusChanged(res orders.Result) Screen {
	text := "✅ Статус заказа #" + format.Escape(res.Number) + " успешно изменен на " + format.Bold(res.Label)
	if !res.Change.UpdatedAt.IsZero() {
		text += "\n🕒 Время обновления: " + format.Escape(res.Change.UpdatedAt.Display())
	}
	if res.DetailErr != nil {
		return Screen{Text: text + "\n\n" + OrderErrorText(res.DetailErr), Markup: StaffMenuMarkup()}
	}
	d := OrderDetail(res.Detail)
	return Screen{Text: text + "\n\n" + d.Text, Markup: d.Markup}
}

// OrderErrorText names the failed workflow operation.
func OrderErrorText(err error) string {
	var op *orders.OpError
	if errors.As(err, &op) {
		return format.Escape(op.UserMessage())
	}
	return format.Error(format.Escape(apperr.UserMessage(err)))
}

// OrderError renders a failed workflow step.
func OrderError(err error) Screen {
	return Screen{Text: OrderErrorText(err), Markup: StaffMenuMarkup()}
}
