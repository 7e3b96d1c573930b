package dialog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/servicebot/core/logger"
	"github.com/m3rciful/servicebot/core/telegram/format"
	"github.com/m3rciful/servicebot/core/telegram/state"
	"github.com/m3rciful/servicebot/internal/apperr"
	"github.com/m3rciful/servicebot/internal/upstream"
)

const (
	promptName          = "<b>📝 Регистрация</b>\n\nПожалуйста, введите ваше ФИО:"
	promptPhone         = "📱 Пожалуйста, поделитесь своим контактом, нажав на кнопку ниже:"
	promptEmail         = "📧 Введите ваш email:"
	promptLoginChoice   = "🔑 Хотите использовать введенный email в качестве логина?"
	promptManualLogin   = "👤 Введите логин, который хотите использовать:"
	promptRegPassword   = "🔒 Придумайте пароль (не менее 6 символов):"
	promptLogin         = "<b>🔑 Авторизация</b>\n\nПожалуйста, введите ваш логин (email):"
	promptLoginPassword = "🔒 Введите пароль:"

	warnName        = "Пожалуйста, введите ваше ФИО."
	warnPhone       = "Пожалуйста, введите корректный номер телефона или поделитесь контактом."
	warnContact     = "Получен некорректный номер телефона. Пожалуйста, попробуйте еще раз."
	warnEmail       = "Пожалуйста, введите корректный email адрес."
	warnChoice      = "Пожалуйста, выберите вариант с помощью кнопок ниже."
	warnManualLogin = "Логин должен содержать не менее 3 символов. Пожалуйста, попробуйте еще раз."
	warnPassword    = "Пароль должен содержать не менее 6 символов. Пожалуйста, попробуйте еще раз."
	warnLogin       = "Пожалуйста, введите логин."

	textCancelled   = "<b>✅ Операция отменена</b>\n\nДействие было успешно отменено. Вы можете продолжить использование бота.\n\n<i>Чем ещё мы можем вам помочь?</i>"
	textStrictPhone = "Введен некорректный номер телефона. Пожалуйста, начните регистрацию заново."
	textLoggedIn    = "Вы успешно вошли в систему."
)

// step is one dialog state: validate turns input into the field value or a
// warning, advance performs the success transition.
type step struct {
	flow     string
	keyboard Keyboard
	validate func(in Input, fields map[string]string) (value, warning string)
	advance  func(ctx context.Context, key state.Key, value string) Reply
}

func (e *Engine) table() map[state.State]step {
	return map[state.State]step{
		StateRegName: {
			flow:     FlowRegister,
			keyboard: KeyboardCancel,
			validate: func(in Input, _ map[string]string) (string, string) {
				name := strings.TrimSpace(in.Text)
				if name == "" {
					return "", warnName
				}
				return name, ""
			},
			advance: func(_ context.Context, key state.Key, v string) Reply {
				e.store.Do(key, func(s *state.Session) {
					s.Fields[FieldName] = v
					s.State = StateRegPhone
				})
				return e.prompt(FlowRegister, promptPhone, KeyboardContact)
			},
		},
		StateRegPhone: {
			flow:     FlowRegister,
			keyboard: KeyboardContact,
			validate: func(in Input, _ map[string]string) (string, string) {
				if in.Contact != "" {
					p := contactPhone(in.Contact)
					if !ValidPhone(p) {
						return "", warnContact
					}
					return p, ""
				}
				p := strings.TrimSpace(in.Text)
				if !ValidPhone(p) {
					return "", warnPhone
				}
				return p, ""
			},
			advance: func(_ context.Context, key state.Key, v string) Reply {
				e.store.Do(key, func(s *state.Session) {
					s.Fields[FieldPhone] = v
					s.Fields[FieldFormattedPhone] = FormatPhoneForAPI(v)
					s.State = StateRegEmail
				})
				return e.prompt(FlowRegister, promptEmail, KeyboardRemove)
			},
		},
		StateRegEmail: {
			flow:     FlowRegister,
			keyboard: KeyboardCancel,
			validate: func(in Input, _ map[string]string) (string, string) {
				email := strings.TrimSpace(in.Text)
				if !ValidEmail(email) {
					return "", warnEmail
				}
				return email, ""
			},
			advance: func(_ context.Context, key state.Key, v string) Reply {
				e.store.Do(key, func(s *state.Session) {
					s.Fields[FieldEmail] = v
					s.State = StateRegLoginChoice
				})
				return e.prompt(FlowRegister, promptLoginChoice, KeyboardLoginChoice)
			},
		},
		StateRegLoginChoice: {
			flow:     FlowRegister,
			keyboard: KeyboardLoginChoice,
			validate: func(in Input, _ map[string]string) (string, string) {
				switch in.Choice {
				case ChoiceEmail, ChoiceManual:
					return in.Choice, ""
				}
				return "", warnChoice
			},
			advance: func(_ context.Context, key state.Key, choice string) Reply {
				if choice == ChoiceManual {
					e.store.SetState(key, StateRegManualLogin)
					return e.prompt(FlowRegister, promptManualLogin, KeyboardCancel)
				}
				var email string
				e.store.Do(key, func(s *state.Session) {
					email = s.Fields[FieldEmail]
					s.Fields[FieldLogin] = email
					s.State = StateRegPassword
				})
				text := fmt.Sprintf("✅ Email %s будет использоваться как логин.\n\n%s", format.Bold(email), promptRegPassword)
				return e.prompt(FlowRegister, text, KeyboardCancel)
			},
		},
		StateRegManualLogin: {
			flow:     FlowRegister,
			keyboard: KeyboardCancel,
			validate: func(in Input, _ map[string]string) (string, string) {
				if !ValidLogin(in.Text) {
					return "", warnManualLogin
				}
				return strings.TrimSpace(in.Text), ""
			},
			advance: func(_ context.Context, key state.Key, v string) Reply {
				e.store.Do(key, func(s *state.Session) {
					s.Fields[FieldLogin] = v
					s.State = StateRegPassword
				})
				return e.prompt(FlowRegister, promptRegPassword, KeyboardCancel)
			},
		},
		StateRegPassword: {
			flow:     FlowRegister,
			keyboard: KeyboardCancel,
			validate: func(in Input, _ map[string]string) (string, string) {
				if !ValidPassword(in.Text) {
					return "", warnPassword
				}
				return in.Text, ""
			},
			advance: e.register,
		},
		StateLogin: {
			flow:     FlowLogin,
			keyboard: KeyboardCancel,
			validate: func(in Input, _ map[string]string) (string, string) {
				login := strings.TrimSpace(in.Text)
				if login == "" {
					return "", warnLogin
				}
				return login, ""
			},
			advance: func(_ context.Context, key state.Key, v string) Reply {
				e.store.Do(key, func(s *state.Session) {
					s.Fields[FieldLogin] = v
					s.State = StateLoginPassword
				})
				return e.prompt(FlowLogin, promptLoginPassword, KeyboardCancel)
			},
		},
		StateLoginPassword: {
			flow:     FlowLogin,
			keyboard: KeyboardCancel,
			validate: func(in Input, _ map[string]string) (string, string) {
				return in.Text, ""
			},
			advance: e.login,
		},
	}
}

func (e *Engine) prompt(flow, text string, kb Keyboard) Reply {
	return Reply{Flow: flow, Outcome: OutcomePrompt, Text: text, Keyboard: kb, Track: true}
}

func warningText(w string) string { return format.Warning(w) }

// register submits the collected fields. The strict phone rule runs first;
// a number that passed the step check but fails here ends the dialog.
func (e *Engine) register(ctx context.Context, key state.Key, password string) Reply {
	fields := e.store.Fields(key)
	if !StrictPhone(fields[FieldPhone]) {
		e.abort(key)
		e.observe(FlowRegister, StateRegPassword, "strict_phone")
		logger.Warn(ctx, component, "dialog.strict_phone", slog.String("flow", FlowRegister))
		return Reply{
			Flow:     FlowRegister,
			Outcome:  OutcomeFailed,
			Text:     format.Error(textStrictPhone),
			Keyboard: KeyboardMainMenu,
		}
	}

	reg := upstream.Registration{
		Name:     fields[FieldName],
		Phone:    fields[FieldFormattedPhone],
		Email:    fields[FieldEmail],
		Login:    fields[FieldLogin],
		Password: password,
	}
	if reg.Phone == "" {
		reg.Phone = FormatPhoneForAPI(fields[FieldPhone])
	}

	if err := e.auth.Register(ctx, reg); err != nil {
		e.abort(key)
		e.observe(FlowRegister, StateRegPassword, "rejected")
		logger.Warn(ctx, component, "dialog.submit",
			slog.String("flow", FlowRegister),
			slog.String("status", "fail"),
			slog.String("err_code", string(apperr.KindOf(err))),
		)
		return Reply{
			Flow:     FlowRegister,
			Outcome:  OutcomeFailed,
			Text:     format.Error("Ошибка регистрации: " + format.Escape(apperr.UserMessage(err))),
			Keyboard: KeyboardAuthMenu,
		}
	}

	e.finish(ctx, key)
	e.observe(FlowRegister, StateRegPassword, "submitted")
	logger.Info(ctx, component, "dialog.submit",
		slog.String("flow", FlowRegister),
		slog.String("status", "ok"),
	)
	return Reply{
		Flow:     FlowRegister,
		Outcome:  OutcomeSucceeded,
		Text:     registeredText(reg, fields[FieldPhone]),
		Keyboard: KeyboardAuthMenu,
	}
}

// login submits the credentials. Only a successful answer marks the user
// as authenticated.
func (e *Engine) login(ctx context.Context, key state.Key, password string) Reply {
	login := e.store.Field(key, FieldLogin)
	user, err := e.auth.Login(ctx, login, password)
	if err != nil {
		e.abort(key)
		e.observe(FlowLogin, StateLoginPassword, "rejected")
		logger.Warn(ctx, component, "dialog.submit",
			slog.String("flow", FlowLogin),
			slog.String("status", "fail"),
			slog.String("err_code", string(apperr.KindOf(err))),
		)
		return Reply{
			Flow:     FlowLogin,
			Outcome:  OutcomeFailed,
			Text:     format.Error("Ошибка входа: " + format.Escape(apperr.UserMessage(err))),
			Keyboard: KeyboardAuthMenu,
		}
	}

	if err := e.cache.Set(ctx, key.UserID, true); err != nil {
		logger.Error(ctx, component, "dialog.auth_cache",
			slog.String("flow", FlowLogin),
			slog.String("err", err.Error()),
		)
	}
	if user.Username == "" {
		user.Username = login
	}
	e.store.SetTemp(key, ProfileKey, user)
	e.finish(ctx, key)
	e.observe(FlowLogin, StateLoginPassword, "submitted")
	logger.Info(ctx, component, "dialog.submit",
		slog.String("flow", FlowLogin),
		slog.String("status", "ok"),
	)
	return Reply{
		Flow:     FlowLogin,
		Outcome:  OutcomeSucceeded,
		Text:     format.Success(textLoggedIn),
		Keyboard: KeyboardMainMenu,
		User:     user,
	}
}

func registeredText(reg upstream.Registration, phone string) string {
	shown := phone
	if reg.Phone != "" {
		shown = "+7" + reg.Phone
	}
	var b strings.Builder
	b.WriteString("<b>✅ Регистрация успешно завершена!</b>\n\n")
	b.WriteString("<b>Ваши данные:</b>\n")
	fmt.Fprintf(&b, "👤 ФИО: %s\n", format.Bold(reg.Name))
	fmt.Fprintf(&b, "📱 Телефон: %s\n", format.Bold(shown))
	fmt.Fprintf(&b, "📧 Email: %s\n", format.Bold(reg.Email))
	fmt.Fprintf(&b, "🔑 Логин: %s\n\n", format.Bold(reg.Login))
	b.WriteString("<i>Теперь вы можете войти в систему, используя свои учетные данные.</i>")
	return b.String()
}

