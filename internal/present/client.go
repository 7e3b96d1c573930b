package present

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/servicebot/core/telegram/format"
	"github.com/m3rciful/servicebot/internal/apperr"
	"github.com/m3rciful/servicebot/internal/catalog"
	"github.com/m3rciful/servicebot/internal/model"
	"github.com/m3rciful/servicebot/internal/tokens"
)

const (
	textAbout = "<b>ℹ️ О сервисе</b>\n\n" +
		"Мы занимаемся диагностикой и ремонтом автомобилей, заменой масла и расходников, " +
		"ремонтом ходовой и тормозной системы, а также продажей запчастей и автоаксессуаров.\n\n" +
		"Режим работы:\nПн–Сб: 9:00 – 20:00\nВоскресенье: выходной"
	textHelp = "<b>Помощь</b>\n\n" +
		"Для работы с ботом используйте кнопки в меню:\n" +
		"- <b>Категории:</b> просмотр каталога товаров.\n" +
		"- <b>Все товары:</b> показать весь ассортимент.\n" +
		"- <b>Услуги:</b> диагностика и ремонт.\n" +
		"- <b>Личный кабинет:</b> вход, регистрация и история заказов.\n" +
		"- <b>О сервисе:</b> информация о компании.\n\n" +
		"Команда /cancel прерывает регистрацию или вход."
	textProfileFeatures = "• Управлять своим профилем\n" +
		"• Просматривать историю заказов\n" +
		"• Отслеживать статус текущих заказов\n" +
		"• Получать персональные предложения"
	textUnknownMessage = "К сожалению, я не понимаю текстовые сообщения. " +
		"Пожалуйста, используйте меню бота для навигации.\n\n" +
		"<i>Если у вас возникли вопросы, вы всегда можете начать заново, используя команду /start</i>"

	// NotReady is the alert shown for buttons whose feature is not available yet.
	NotReady = "🔧 Эта функция находится в разработке"
	// CartNotReady is the alert of the add-to-cart button.
	CartNotReady = "🔧 Функция добавления в корзину находится в разработке. Мы сообщим, когда она станет доступна!"
	// BookingNotReady is the alert of the booking button.
	BookingNotReady = "📅 Онлайн-запись на услугу скоро будет доступна! Пока вы можете позвонить нам для записи."
)

// MainMenuMarkup is the root keyboard of the client bot.
func MainMenuMarkup() *tele.ReplyMarkup {
	return inline(
		[]btn{button("📂 Категории", tokens.CatalogCategories)},
		[]btn{button("🛒 Все товары", tokens.CatalogProducts)},
		[]btn{button("🔧 Услуги", tokens.CatalogServices)},
		[]btn{button("👤 Личный кабинет", tokens.Profile)},
		[]btn{button("ℹ️ О сервисе", tokens.About)},
	)
}

// AuthMenuMarkup offers login and registration.
func AuthMenuMarkup() *tele.ReplyMarkup {
	return inline(
		[]btn{button("🔑 Войти", tokens.Login), button("📝 Зарегистрироваться", tokens.Register)},
		[]btn{button("« Назад", tokens.MainMenu)},
	)
}

// ProfileMarkup is the keyboard of an authenticated profile.
func ProfileMarkup() *tele.ReplyMarkup {
	return inline(
		[]btn{button("📦 История заказов", tokens.OrderHistory)},
		[]btn{button("🚪 Выйти", tokens.Logout)},
		[]btn{button("« Назад", tokens.MainMenu)},
	)
}

// MainMenu greets the user by first name.
func MainMenu(firstName string) Screen {
	name := format.Escape(format.Or(firstName, "гость"))
	text := "<b>🌟 Добро пожаловать, " + name + "! 🌟</b>\n\n" +
		"Я бот автосервиса. С моей помощью вы можете:\n\n" +
		"• 🚗 <b>Найти</b> необходимые запчасти для вашего автомобиля\n" +
		"• 🔧 <b>Узнавать</b> о доступных услугах и их стоимости\n" +
		"• 👤 <b>Управлять</b> своим профилем и отслеживать заказы\n\n" +
		"Пожалуйста, выберите раздел, который вас интересует:"
	return Screen{Text: text, Markup: MainMenuMarkup()}
}

// Help lists what the client bot can do.
func Help() Screen { return Screen{Text: textHelp, Markup: MainMenuMarkup()} }

// About describes the shop.
func About() Screen {
	return Screen{Text: textAbout, Markup: inline([]btn{button("🔙 Назад", tokens.MainMenu)})}
}

// UnknownMessage answers free text outside any dialog.
func UnknownMessage(firstName string) Screen {
	name := format.Escape(format.Or(firstName, "гость"))
	return Screen{Text: "<b>👋 Здравствуйте, " + name + "!</b>\n\n" + textUnknownMessage, Markup: MainMenuMarkup()}
}

// Profile shows the personal area. Unauthenticated users get the auth menu.
func Profile(firstName string, authenticated bool) Screen {
	if authenticated {
		name := format.Escape(format.Or(firstName, "гость"))
		return Screen{
			Text:   "<b>👤 Личный кабинет</b>\n\nДобро пожаловать в личный кабинет, " + name + "!\n\nЗдесь вы можете:\n" + textProfileFeatures,
			Markup: ProfileMarkup(),
		}
	}
	return Screen{
		Text: "<b>👤 Личный кабинет</b>\n\nВ личном кабинете вы можете:\n" + textProfileFeatures +
			"\n\n<i>Для полного доступа к функциям личного кабинета необходимо войти или зарегистрироваться.</i>",
		Markup: AuthMenuMarkup(),
	}
}

// LoggedOut confirms a logout.
func LoggedOut() Screen {
	return Screen{Text: format.Success("Вы успешно вышли из системы."), Markup: AuthMenuMarkup()}
}

// LogoutFailed reports a failed logout.
func LogoutFailed() Screen {
	return Screen{Text: format.Error("Произошла ошибка при выходе из системы."), Markup: ProfileMarkup()}
}

// Loading is shown while a catalog request is in flight.
func Loading(what string) Screen {
	return Screen{Text: "<b>🔄 Загружаем " + what + "...</b>\nПожалуйста, подождите..."}
}

// CatalogError renders a failed list fetch.
func CatalogError(err error) Screen {
	return Screen{Text: ErrorText(err), Markup: MainMenuMarkup()}
}

// Listing renders one page of a catalog dataset.
func Listing(l catalog.Listing) Screen {
	if l.Empty() {
		return emptyListing(l)
	}
	var (
		title  string
		items  [][]btn
		footer [][]btn
	)
	switch l.Dataset {
	case tokens.Categories:
		title = "<b>📂 Категории товаров</b>\n\nВыберите интересующую вас категорию товаров из списка ниже:"
		for _, c := range l.Categories {
			items = append(items, []btn{button("📁 "+c.Name, tokens.Entity(tokens.Category, c.ID))})
		}
		footer = [][]btn{{button("🛒 Все товары", tokens.CatalogProducts)}, {mainMenuBtn}}
	case tokens.Services:
		title = "<b>🔧 Услуги автосервиса</b>\n\n" +
			"Мы предлагаем полный спектр услуг по обслуживанию и ремонту автомобилей.\n\n" +
			"<i>Выберите услугу из списка ниже:</i>"
		for _, s := range l.Services {
			items = append(items, []btn{button(s.Name+" - "+s.Price.String(), tokens.Entity(tokens.Service, s.ID))})
		}
		footer = [][]btn{{mainMenuBtn}}
	case tokens.CategoryProducts:
		title = "<b>🛒 Товары категории \"" + format.Escape(categoryName(l.Category)) + "\"</b>\n\n" +
			"Выберите интересующий вас товар из списка ниже:"
		items = productButtons(l.Products)
		footer = [][]btn{{button("🔙 Назад к категориям", tokens.Back(tokens.Categories))}, {mainMenuBtn}}
	default:
		title = "<b>🛒 Каталог автозапчастей и аксессуаров</b>\n\n" +
			"Мы предлагаем широкий выбор качественных товаров для вашего автомобиля.\n\n" +
			"<i>Выберите товар из списка ниже:</i>"
		items = productButtons(l.Products)
		footer = [][]btn{{button("🔙 Назад к категориям", tokens.Back(tokens.Categories))}, {mainMenuBtn}}
	}

	rows := append(items, pager(l.Dataset, l.Page, l.TotalPages))
	rows = append(rows, footer...)
	return Screen{Text: title + pageSuffix(l.Page, l.TotalPages), Markup: inline(rows...)}
}

func productButtons(ps []model.Product) [][]btn {
	rows := make([][]btn, 0, len(ps))
	for _, p := range ps {
		rows = append(rows, []btn{button(p.Name+" - "+p.Price.String(), tokens.Entity(tokens.Product, p.ID))})
	}
	return rows
}

func categoryName(c model.Category) string { return format.Or(c.Name, "Категория") }

func emptyListing(l catalog.Listing) Screen {
	const later = "Пожалуйста, загляните позже или свяжитесь с нами для получения дополнительной информации."
	switch l.Dataset {
	case tokens.Categories:
		return Screen{Text: "<b>😔 Каталог категорий пуст</b>\n\nК сожалению, в данный момент в каталоге нет доступных категорий.\n" + later, Markup: MainMenuMarkup()}
	case tokens.Services:
		return Screen{Text: "<b>😔 Каталог услуг пуст</b>\n\nК сожалению, в данный момент в каталоге нет доступных услуг.\n" + later, Markup: MainMenuMarkup()}
	case tokens.CategoryProducts:
		name := format.Escape(categoryName(l.Category))
		return Screen{
			Text: "<b>😔 В категории \"" + name + "\" нет товаров</b>\n\n" +
				"К сожалению, в данный момент в этой категории нет доступных товаров.\n" +
				"Пожалуйста, выберите другую категорию или загляните позже.",
			Markup: inline([]btn{button("🔙 Назад к категориям", tokens.Back(tokens.Categories))}, []btn{mainMenuBtn}),
		}
	}
	return Screen{Text: "<b>😔 Каталог товаров пуст</b>\n\nК сожалению, в данный момент в каталоге нет доступных товаров.\n" + later, Markup: MainMenuMarkup()}
}

// ProductDetail renders a product card. The back button returns to the list
// the product was picked from.
func ProductDetail(d catalog.ProductDetail) Screen {
	p := d.Product
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", format.Bold(format.Or(p.Name, "Без названия")))
	fmt.Fprintf(&b, "<b>Цена:</b> %s\n", format.Escape(p.Price.String()))
	status := "Нет в наличии"
	if p.InStock || p.Stock > 0 {
		status = "В наличии"
	}
	fmt.Fprintf(&b, "<b>Статус:</b> %s\n", status)
	fmt.Fprintf(&b, "<b>Наличие:</b> %d шт.\n", p.Stock)
	if p.CategoryName != "" {
		fmt.Fprintf(&b, "<b>Категория:</b> %s\n", format.Escape(p.CategoryName))
	}
	if p.Supplier != "" {
		fmt.Fprintf(&b, "<b>Поставщик:</b> %s\n", format.Escape(p.Supplier))
	}
	fmt.Fprintf(&b, "\n<b>Описание:</b>\n%s\n", format.Escape(format.Or(p.Description, "Описание отсутствует")))
	return Screen{Text: b.String(), Markup: productDetailMarkup(p.ID, d.Origin)}
}

func productBack(origin string) btn {
	if origin == tokens.CategoryProducts {
		return button("🔙 Назад к товарам категории", tokens.Back(tokens.CategoryProducts))
	}
	return button("🔙 Назад к товарам", tokens.Back(tokens.Products))
}

func productDetailMarkup(id, origin string) *tele.ReplyMarkup {
	return inline(
		[]btn{button("🛒 Добавить в корзину", tokens.Entity(tokens.AddToCart, id))},
		[]btn{productBack(origin)},
		[]btn{mainMenuBtn},
	)
}

// ProductError renders a failed product detail. Lookup failures go back to
// the main menu; upstream failures offer the list the product came from.
func ProductError(d catalog.ProductDetail, err error) Screen {
	if apperr.KindOf(err) == apperr.KindLookup {
		return Screen{Text: ErrorText(err), Markup: MainMenuMarkup()}
	}
	return Screen{
		Text:   format.Error(format.Escape(apperr.UserMessage(err))),
		Markup: inline([]btn{productBack(d.Origin)}, []btn{mainMenuBtn}),
	}
}

// ServiceDetail renders a service card.
func ServiceDetail(d catalog.ServiceDetail) Screen {
	s := d.Service
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", format.Bold(format.Or(s.Name, "Без названия")))
	fmt.Fprintf(&b, "<b>Цена:</b> %s\n", format.Escape(s.Price.String()))
	if s.Duration > 0 {
		fmt.Fprintf(&b, "<b>Длительность:</b> %d мин.\n\n", s.Duration)
	} else {
		b.WriteString("<b>Длительность:</b> Нет данных о длительности\n\n")
	}
	fmt.Fprintf(&b, "<b>Описание:</b>\n%s\n", format.Escape(format.Or(s.Description, "Описание отсутствует")))
	return Screen{
		Text: b.String(),
		Markup: inline(
			[]btn{button("📅 Записаться", tokens.Entity(tokens.BookService, s.ID))},
			[]btn{button("🔙 Назад к услугам", tokens.Back(tokens.Services))},
			[]btn{mainMenuBtn},
		),
	}
}

// ServiceError renders a failed service detail.
func ServiceError(err error) Screen {
	if apperr.KindOf(err) == apperr.KindLookup {
		return Screen{Text: ErrorText(err), Markup: MainMenuMarkup()}
	}
	return Screen{
		Text:   format.Error(format.Escape(apperr.UserMessage(err))),
		Markup: inline([]btn{button("🔙 Назад к услугам", tokens.Back(tokens.Services))}, []btn{mainMenuBtn}),
	}
}

// History renders the purchase history of the logged-in user.
func History(orders []model.Order) Screen {
	markup := inline([]btn{button("🔙 Назад", tokens.Profile)})
	if len(orders) == 0 {
		return Screen{Text: "📭 У вас пока нет заказов.", Markup: markup}
	}
	var b strings.Builder
	b.WriteString("<b>📦 История заказов</b>\n\n")
	for i, o := range orders {
		fmt.Fprintf(&b, "<b>Заказ №%d</b>\n", i+1)
		fmt.Fprintf(&b, "- Дата: %s\n", format.Escape(format.Or(o.Date.Display(), "—")))
		fmt.Fprintf(&b, "- Статус: %s\n", format.Escape(statusText(o.Status, "—")))
		fmt.Fprintf(&b, "- Сумма: %s руб.\n", model.FormatAmount(o.Amount))
		b.WriteString("- Товары:\n")
		for j, it := range o.Items {
			fmt.Fprintf(&b, "  %d. %s — %d шт × %s руб.\n", j+1, format.Escape(format.Or(it.Name, "—")), it.Quantity, model.FormatAmount(it.UnitPrice))
		}
		b.WriteString("\n")
	}
	return Screen{Text: b.String(), Markup: markup}
}

// HistoryError renders a failed history fetch. A missing phone asks the user
// to log in again.
func HistoryError(err error) Screen {
	text := "Не удалось получить историю заказов."
	if apperr.KindOf(err) == apperr.KindLookup {
		text = "Для просмотра истории заказов войдите в систему."
		return Screen{Text: format.Warning(text), Markup: AuthMenuMarkup()}
	}
	return Screen{Text: format.Error(text), Markup: inline([]btn{button("🔙 Назад", tokens.Profile)})}
}

func statusText(s model.Status, fallback string) string {
	return format.Or(s.Label, format.Or(s.Code, fallback))
}
