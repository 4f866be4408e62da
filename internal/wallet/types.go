package wallet

import (
	"context"

	"github.com/rifasite/checkout/internal/gateway"
)

// State is the externally visible phase of a sync session.
type State string

const (
	StateIdle     State = "idle"      // Nothing mounted; either never evaluated or the last attempt failed
	StateNotReady State = "not_ready" // Fields incomplete; container shows the placeholder
	StateCreating State = "creating"  // One create-and-mount attempt is outstanding
	StateMounted  State = "mounted"   // Widget mounted for the applied signature
)

// Snapshot is a consistent view of the fields relevant to preference creation.
type Snapshot interface {
	// Ready reports whether a preference may be requested for these fields.
	Ready() bool
	// Signature identifies the field values; equal signatures mean an identical request.
	Signature() string
	// Request builds the preference payload for these fields.
	Request() gateway.PreferenceRequest
}

// Source yields the current snapshot. Implementations must be safe for
// concurrent use: snapshots are taken from both the caller and the worker.
type Source interface {
	Snapshot() Snapshot
}

// Creator obtains a payment preference id from the backend.
type Creator interface {
	CreatePreference(ctx context.Context, req gateway.PreferenceRequest) (string, error)
}

// Widget is the external payment widget SDK.
type Widget interface {
	// Mount renders the widget for preferenceID inside containerID.
	Mount(ctx context.Context, containerID, preferenceID string) (Handle, error)
	// Reset clears the container back to its empty placeholder.
	Reset(containerID string)
}

// Handle is a mounted widget instance.
type Handle interface {
	Unmount() error
}

// Status is reported to the UI on every state transition.
type Status struct {
	State     State
	Signature string
	Err       error
}
