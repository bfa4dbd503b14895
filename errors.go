package loopbridge

import "errors"

var (
	// ErrDuplicateTwin is returned when a twin name is registered twice on
	// the same builder. Conflicts are surfaced explicitly instead of letting
	// the last registration silently win.
	ErrDuplicateTwin = errors.New("loopbridge: duplicate twin name")

	// ErrInvalidTwinName is returned for empty or whitespace-only twin names.
	ErrInvalidTwinName = errors.New("loopbridge: invalid twin name")

	// ErrUnknownTwin is returned by TwinSet.Call for a name that was never
	// registered.
	ErrUnknownTwin = errors.New("loopbridge: unknown twin")

	// ErrTwinArgument is returned by TwinSet.Call when the supplied argument
	// does not have the registered method's parameter type.
	ErrTwinArgument = errors.New("loopbridge: twin argument type mismatch")

	// ErrTwinSetBuilt is returned when registering on a builder after Build.
	// A twin set is installed once and immutable thereafter.
	ErrTwinSetBuilt = errors.New("loopbridge: twin builder already built")
)
