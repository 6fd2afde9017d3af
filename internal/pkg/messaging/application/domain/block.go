package messaging

import "time"

// Block represents a 1:1 block. A block in either direction stops new
// messages and new conversations between the pair; existing history stays.
type Block struct {
	BlockerID string    `db:"blocker_id"`
	BlockedID string    `db:"blocked_id"`
	CreatedAt time.Time `db:"created_at"`
}

// Covers tells whether the block applies to the given pair, regardless of
// direction.
func (b *Block) Covers(a, z string) bool {
	if b == nil {
		return false
	}
	return (b.BlockerID == a && b.BlockedID == z) || (b.BlockerID == z && b.BlockedID == a)
}
