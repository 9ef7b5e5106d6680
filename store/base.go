package store

import (
	"time"

	"github.com/lithammer/shortuuid/v4"
)

// prepareCreate fills the lifecycle columns of a row about to be inserted.
func prepareCreate(base *CommitmentBase, now time.Time) {
	if base.UID == "" {
		base.UID = shortuuid.New()
	}
	if base.RowStatus == "" {
		base.RowStatus = Normal
	}
	now = now.Truncate(time.Second)
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
}
