package selection

import (
	"encoding/json"

	"github.com/rifasite/checkout/internal/buyer"
	"github.com/rifasite/checkout/internal/gateway"
)

// Snapshot is a consistent copy of the selection and buyer fields.
type Snapshot struct {
	Numbers []int // ascending
	Buyer   buyer.Info
}

// Ready reports whether a payment preference may be requested.
func (s Snapshot) Ready() bool {
	return len(s.Numbers) > 0 && s.Buyer.Complete()
}

// Signature covers every field sent in the preference request.
func (s Snapshot) Signature() string {
	b, _ := json.Marshal(struct {
		Numbers []int  `json:"n"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Phone   string `json:"phone"`
	}{s.Numbers, s.Buyer.Name, s.Buyer.Email, s.Buyer.Phone})
	return string(b)
}

// Request builds the raffle preference payload.
func (s Snapshot) Request() gateway.PreferenceRequest {
	return gateway.PreferenceRequest{
		Kind:          gateway.KindRaffle,
		ChosenNumbers: append([]int(nil), s.Numbers...),
		Buyer:         s.Buyer.Gateway(),
	}
}
