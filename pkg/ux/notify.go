// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"time"
)

// MessageTimeout is how long a transient status message stays visible
// before the view drops it.
const MessageTimeout = 3 * time.Second

// NoticeKind classifies a transient message for styling.
type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeSuccess
	NoticeWarning
	NoticeError
)

// Notice is one transient status message.
type Notice struct {
	Kind     NoticeKind
	Text     string
	postedAt time.Time
}

// Render returns the styled single-line form of the notice.
func (n Notice) Render() string {
	switch n.Kind {
	case NoticeSuccess:
		return Styles.Success.Render(string(IconSuccess) + " " + n.Text)
	case NoticeWarning:
		return Styles.Warning.Render(string(IconWarning) + " " + n.Text)
	case NoticeError:
		return Styles.Error.Render(string(IconError) + " " + n.Text)
	default:
		return Styles.Muted.Render(n.Text)
	}
}

// Notifier holds the single visible transient message. Posting replaces the
// previous message; messages expire MessageTimeout after posting. The
// notifier is display state owned by the view loop, so it carries no locks.
type Notifier struct {
	current *Notice
	now     func() time.Time
}

// NewNotifier creates a notifier. A nil now func selects time.Now.
func NewNotifier(now func() time.Time) *Notifier {
	if now == nil {
		now = time.Now
	}
	return &Notifier{now: now}
}

// Post replaces the visible message.
func (n *Notifier) Post(kind NoticeKind, text string) {
	n.current = &Notice{
		Kind:     kind,
		Text:     text,
		postedAt: n.now(),
	}
}

// Active returns the visible message, dropping it first if it has expired.
func (n *Notifier) Active() (Notice, bool) {
	if n.current == nil {
		return Notice{}, false
	}
	if n.now().Sub(n.current.postedAt) >= MessageTimeout {
		n.current = nil
		return Notice{}, false
	}
	return *n.current, true
}

// Clear drops the visible message immediately.
func (n *Notifier) Clear() {
	n.current = nil
}
