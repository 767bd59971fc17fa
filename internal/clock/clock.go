package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock supplies the current time. Time-range and rotation logic take a
// Clock so tests can pin "now".
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// New returns the wall clock in UTC.
func New() Clock { return realClock{} }

var Module = fx.Module("clock",
	fx.Provide(New),
)
