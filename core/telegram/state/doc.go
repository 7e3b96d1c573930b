// Package state is the conversation session store for Telegram bots.
//
// A session is keyed by (chat, user) and holds the dialog state, the form
// fields collected so far, the ids of prompt messages to delete when the
// dialog ends and free-form values such as paging cursors. Sessions expire
// after a period of inactivity; an expired session reads as idle.
package state
