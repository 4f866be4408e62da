package donation

import (
	"strconv"
	"strings"

	"github.com/rifasite/checkout/internal/buyer"
	"github.com/rifasite/checkout/internal/gateway"
	"github.com/rifasite/checkout/internal/money"
)

// Snapshot is a consistent copy of the donation form.
type Snapshot struct {
	Amount    money.CLP
	MinAmount money.CLP
	Buyer     buyer.Info
}

// Ready reports whether the amount meets the minimum and the buyer is complete.
func (s Snapshot) Ready() bool {
	return s.Amount >= s.MinAmount && s.Amount > 0 && s.Buyer.Complete()
}

// Signature covers the amount and every buyer field.
func (s Snapshot) Signature() string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(s.Amount.Int64(), 10))
	for _, v := range []string{s.Buyer.Name, s.Buyer.Email, s.Buyer.Phone} {
		b.WriteByte('|')
		b.WriteString(strconv.Quote(v))
	}
	return b.String()
}

// Request builds the donation preference payload.
func (s Snapshot) Request() gateway.PreferenceRequest {
	return gateway.PreferenceRequest{
		Kind:      gateway.KindDonation,
		AmountCLP: s.Amount.Int64(),
		Buyer:     s.Buyer.Gateway(),
	}
}
