package main

import (
	"time"

	"github.com/tehqua/QuantFlow/internal/live"
)

// tickMsg drives the periodic snapshot refresh.
type tickMsg time.Time

// snapshotMsg carries the latest controller snapshot.
type snapshotMsg struct {
	Snapshot live.Snapshot
}

// sessionErrorMsg indicates the session could not be started.
type sessionErrorMsg struct {
	Err error
}
