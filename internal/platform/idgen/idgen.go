// Package idgen は各 Service が差し替え可能な時計と ULID 採番を提供する。
package idgen

import (
	"time"

	ulid "github.com/oklog/ulid/v2"
)

type Clock interface{ Now() time.Time }

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

type IDGen interface{ NewULID(t time.Time) string }

type ULIDGen struct{}

// DefaultEntropy はプロセス共有の単調増加エントロピー（goroutine safe）。
func (ULIDGen) NewULID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String()
}
