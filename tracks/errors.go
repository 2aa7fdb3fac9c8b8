// tracks/errors.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package tracks

import "errors"

var (
	ErrNoDownloader     = errors.New("No downloader for track type")
	ErrNoMessage        = errors.New("No track message available")
	ErrTypeMismatch     = errors.New("Track message is for a different track type")
	ErrUnknownTrackType = errors.New("Unknown track type")
)
