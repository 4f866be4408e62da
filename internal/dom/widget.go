//go:build js && wasm

package dom

import (
	"context"
	"errors"
	"syscall/js"

	"github.com/rifasite/checkout/internal/logger"
	"github.com/rifasite/checkout/internal/wallet"
)

// Bricks mounts the payment provider's wallet brick.
type Bricks struct {
	builder js.Value
}

// NewBricks initializes the provider SDK loaded by the page.
func NewBricks(publicKey, locale string) (*Bricks, error) {
	ctor := js.Global().Get("MercadoPago")
	if !ctor.Truthy() {
		return nil, errors.New("payment SDK not loaded")
	}
	mp := ctor.New(publicKey, map[string]any{"locale": locale})
	builder, err := call(mp, "bricks")
	if err != nil {
		return nil, err
	}
	return &Bricks{builder: builder}, nil
}

func (b *Bricks) Mount(ctx context.Context, containerID, preferenceID string) (wallet.Handle, error) {
	if el := byID(containerID); el.Truthy() {
		el.Get("classList").Call("remove", "hidden")
	}
	p, err := call(b.builder, "create", "wallet", containerID, map[string]any{
		"initialization": map[string]any{
			"preferenceId": preferenceID,
		},
	})
	if err != nil {
		return nil, err
	}
	ctrl, err := await(ctx, p)
	if err != nil {
		return nil, err
	}
	lg := logger.FromContext(ctx)
	lg.Debug().Str("container_id", containerID).Msg("dom.brick_created")
	return brickHandle{ctrl: ctrl}, nil
}

func (b *Bricks) Reset(containerID string) {
	el := byID(containerID)
	if !el.Truthy() {
		return
	}
	el.Get("classList").Call("add", "hidden")
	el.Set("innerHTML", "")
}

type brickHandle struct {
	ctrl js.Value
}

func (h brickHandle) Unmount() error {
	if !h.ctrl.Truthy() {
		return nil
	}
	_, err := call(h.ctrl, "unmount")
	return err
}
