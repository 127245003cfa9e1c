package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

// Fanout is modeled on github.com/samber/slog-multi: every record goes to
// each handler that is enabled for its level. A panicking handler is turned
// into an error so the other handlers still see the record.
func Fanout(handlers ...slog.Handler) slog.Handler {
	return &fanoutHandler{handlers: handlers}
}

var _ slog.Handler = (*fanoutHandler)(nil)

type fanoutHandler struct {
	handlers []slog.Handler
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return slices.ContainsFunc(h.handlers, func(sub slog.Handler) bool {
		return sub.Enabled(ctx, level)
	})
}

func (h *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, sub := range h.handlers {
		if !sub.Enabled(ctx, r.Level) {
			continue
		}
		if err := safeHandle(ctx, sub, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.each(func(sub slog.Handler) slog.Handler {
		return sub.WithAttrs(slices.Clone(attrs))
	})
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.each(func(sub slog.Handler) slog.Handler {
		return sub.WithGroup(name)
	})
}

func (h *fanoutHandler) each(fn func(slog.Handler) slog.Handler) slog.Handler {
	handlers := make([]slog.Handler, 0, len(h.handlers))
	for _, sub := range h.handlers {
		handlers = append(handlers, fn(sub))
	}
	return Fanout(handlers...)
}

func safeHandle(ctx context.Context, h slog.Handler, r slog.Record) (err error) {
	defer func() {
		if v := recover(); v != nil {
			if e, ok := v.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("log handler panic: %+v", v)
			}
		}
	}()

	return h.Handle(ctx, r)
}
