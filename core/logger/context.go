package logger

import "context"

type metaKey struct{}

// Meta identifies the Telegram update a log line belongs to.
type Meta struct {
	RID      string
	UpdateID int
	UserID   int64
	ChatID   int64
	Handler  string
}

// WithMeta stores m in ctx, replacing any previous value.
func WithMeta(ctx context.Context, m Meta) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, metaKey{}, m)
}

// MetaFrom returns the metadata stored in ctx.
func MetaFrom(ctx context.Context) Meta {
	if ctx == nil {
		return Meta{}
	}
	m, _ := ctx.Value(metaKey{}).(Meta)
	return m
}

// ForUpdate builds the metadata of an update and stores it in ctx.
func ForUpdate(ctx context.Context, updateID int, chatID, userID int64) context.Context {
	return WithMeta(ctx, Meta{
		RID:      BuildRID(updateID, chatID, userID),
		UpdateID: updateID,
		UserID:   userID,
		ChatID:   chatID,
	})
}

// WithRID sets only the correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	m := MetaFrom(ctx)
	m.RID = rid
	return WithMeta(ctx, m)
}

// RIDFrom returns the correlation id of ctx, if any.
func RIDFrom(ctx context.Context) string { return MetaFrom(ctx).RID }

// WithHandler names the handler serving the update.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		return ctx
	}
	m := MetaFrom(ctx)
	m.Handler = handler
	return WithMeta(ctx, m)
}
