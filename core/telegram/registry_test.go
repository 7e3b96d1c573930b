package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/servicebot/core/telegram/commands"
)

func named(name string, out *string) tele.HandlerFunc {
	return func(tele.Context) error {
		*out = name
		return nil
	}
}

func TestCallbackPrecedence(t *testing.T) {
	var got string
	reg := NewRegistry()
	require.NoError(t, reg.RegisterPrefix("category_", named("category", &got)))
	require.NoError(t, reg.RegisterPrefix("category_products_page_", named("page", &got)))
	require.NoError(t, reg.RegisterCallback("category_products_current_page", named("noop", &got)))

	cases := map[string]string{
		"category_42":                    "category",
		"category_products_page_3":       "page",
		"category_products_current_page": "noop",
	}
	for key, want := range cases {
		h, ok := reg.GetCallback(key)
		require.True(t, ok, key)
		require.NoError(t, h(nil))
		assert.Equal(t, want, got, key)
	}

	_, ok := reg.GetCallback("unknown")
	assert.False(t, ok)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	h := func(tele.Context) error { return nil }
	require.NoError(t, reg.RegisterCallback("main", h))
	assert.Error(t, reg.RegisterCallback("main", h))
	require.NoError(t, reg.RegisterPrefix("order_", h))
	assert.Error(t, reg.RegisterPrefix("order_", h))
	assert.Error(t, reg.RegisterCallback("", h))
	assert.Error(t, reg.RegisterPrefix("x_", nil))

	assert.Equal(t, []string{"main", "order_*"}, reg.ListCallbacks())
}

func TestCommandAliases(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", commands.Command{
		Handler:     func(tele.Context) error { return nil },
		Description: "Главное меню",
		Aliases:     []string{"menu"},
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     func(tele.Context) error { return nil },
		Description: "Отмена",
		Hidden:      true,
	})
	reg.RegisterCommand("help", commands.Command{
		Handler:     func(tele.Context) error { return nil },
		Description: "Справка",
	})

	name, _, ok := reg.LookupCommand("menu")
	require.True(t, ok)
	assert.Equal(t, "/start", name)
	_, _, ok = reg.LookupCommand("help")
	assert.False(t, ok, "commands without a slash are skipped")

	visible := reg.ListCommands(true)
	require.Len(t, visible, 1)
	assert.Equal(t, "start", visible[0].Text)
}
