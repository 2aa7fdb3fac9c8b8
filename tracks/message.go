// tracks/message.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package tracks

import (
	"context"
	"time"
)

type MessageOrigin int

const (
	Downloaded MessageOrigin = iota
	Imported
	Cached
)

func (o MessageOrigin) String() string {
	return [...]string{"downloaded", "imported", "cached"}[o]
}

// Message is the raw text of a track system's current message along with
// where it came from. A nil *Message means that no message has been
// obtained yet.
type Message struct {
	Type   TrackType     `msgpack:"type" json:"type"`
	Text   string        `msgpack:"text" json:"text"`
	Origin MessageOrigin `msgpack:"origin" json:"origin"`
	Time   time.Time     `msgpack:"time" json:"time"`
}

// MessageProvider supplies track messages. GetMessage may block, e.g. on
// a network request; it should return promptly when ctx is canceled.
type MessageProvider interface {
	GetMessage(ctx context.Context) (*Message, error)
}
