package ports

import (
	"context"

	"github.com/lcalzada-xor/netsentry/internal/core/domain"
)

// PacketSource feeds decoded packets into the detection engine. Live capture
// and the replay generator both satisfy it.
type PacketSource interface {
	// Run blocks, invoking handle once per decoded IP packet, until the
	// context is cancelled or the source fails.
	Run(ctx context.Context, handle func(domain.PacketInfo)) error

	// Stats returns packets delivered and packets dropped by the source.
	Stats() (received, dropped uint64)
}
