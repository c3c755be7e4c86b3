// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

package vulkan

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gogpu/frame/driver"
)

// halPrefix is prepended by the HAL debug callback to every message.
const halPrefix = "vulkan: "

// halHandler turns HAL debug-callback records into driver messages for the
// connection's messengers. Records without a "type" attribute, and
// diagnostics no messenger accepted, go on to next.
type halHandler struct {
	conn  *Connection
	next  slog.Handler
	attrs []slog.Attr
}

func (h *halHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.conn.subscribed(levelSeverity(level)) || h.next.Enabled(ctx, level)
}

func (h *halHandler) Handle(ctx context.Context, r slog.Record) error {
	if msg, ok := recordMessage(r, h.attrs); ok && h.conn.dispatch(msg) > 0 {
		return nil
	}
	if !h.next.Enabled(ctx, r.Level) {
		return nil
	}
	return h.next.Handle(ctx, r)
}

func (h *halHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &halHandler{
		conn:  h.conn,
		next:  h.next.WithAttrs(attrs),
		attrs: append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...),
	}
}

func (h *halHandler) WithGroup(name string) slog.Handler {
	return &halHandler{conn: h.conn, next: h.next.WithGroup(name), attrs: h.attrs}
}

// recordMessage converts r when it carries a debug-callback "type" attribute.
func recordMessage(r slog.Record, attrs []slog.Attr) (driver.Message, bool) {
	var kind, id string
	found := false
	visit := func(a slog.Attr) bool {
		switch a.Key {
		case "type":
			kind, found = a.Value.String(), true
		case "id":
			id = a.Value.String()
		}
		return true
	}
	for _, a := range attrs {
		visit(a)
	}
	r.Attrs(visit)
	if !found {
		return driver.Message{}, false
	}
	return driver.Message{
		Severity: levelSeverity(r.Level),
		Type:     messageType(kind),
		IDName:   id,
		Text:     strings.TrimPrefix(r.Message, halPrefix),
	}, true
}

func levelSeverity(l slog.Level) driver.Severity {
	switch {
	case l >= slog.LevelError:
		return driver.SeverityError
	case l >= slog.LevelWarn:
		return driver.SeverityWarning
	case l >= slog.LevelInfo:
		return driver.SeverityInfo
	default:
		return driver.SeverityVerbose
	}
}

func messageType(kind string) driver.MessageType {
	switch kind {
	case "Validation":
		return driver.MessageTypeValidation
	case "Performance":
		return driver.MessageTypePerformance
	default:
		return driver.MessageTypeGeneral
	}
}
