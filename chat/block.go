package chat

import "context"

// BlockStatus is the state of a (viewer, counterpart) pair. Any state other
// than Unblocked disables sending for the viewer; reading history stays
// allowed in every state.
type BlockStatus int

const (
	Unblocked BlockStatus = iota
	ViewerBlockedByCounterpart
	ViewerBlocksCounterpart
	MutualBlock
)

func (s BlockStatus) String() string {
	switch s {
	case ViewerBlockedByCounterpart:
		return "viewer_blocked_by_counterpart"
	case ViewerBlocksCounterpart:
		return "viewer_blocks_counterpart"
	case MutualBlock:
		return "mutual_block"
	default:
		return "unblocked"
	}
}

// SendDisabled reports whether the viewer may not send. Gating is the OR of
// the two directions, so every non-Unblocked state behaves the same.
func (s BlockStatus) SendDisabled() bool { return s != Unblocked }

// StatusBetween derives the pair state from the registry's two directional
// lookups.
func StatusBetween(ctx context.Context, reg BlockRegistry, viewerID, counterpartID string) (BlockStatus, error) {
	viewerBlocked, err := reg.IsBlocked(ctx, counterpartID, viewerID)
	if err != nil {
		return Unblocked, err
	}
	viewerBlocks, err := reg.IsBlocked(ctx, viewerID, counterpartID)
	if err != nil {
		return Unblocked, err
	}

	switch {
	case viewerBlocked && viewerBlocks:
		return MutualBlock, nil
	case viewerBlocked:
		return ViewerBlockedByCounterpart, nil
	case viewerBlocks:
		return ViewerBlocksCounterpart, nil
	}
	return Unblocked, nil
}
