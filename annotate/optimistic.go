package annotate

// The optimistic mutation discipline used by position changes: the
// caller shows the entity at the new position before the protocol
// resolves. The protocol captures the last known-good position, issues
// the remote update, and on failure instructs the renderer to restore
// the captured position before rethrowing the original error. With
// nothing captured (entity absent from the mirror) no revert is issued
// and the error still propagates.
//
// Each entity kind used to re-implement this capture/attempt/revert
// dance separately. It is enforced once here.

func runOptimisticMutation(
	capture func() (Position, bool),
	attempt func() error,
	revert func(position Position),
) error {
	position, captured := capture()

	err := attempt()
	if err == nil {
		// the optimistic state was correct
		return nil
	}

	if captured {
		revert(position)
	}
	return err
}
