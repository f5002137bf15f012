package model

import "time"

// Clock is the time source used for expiry decisions.
type Clock interface {
	Now() time.Time
}
