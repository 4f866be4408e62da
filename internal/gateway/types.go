package gateway

import "time"

// Kind selects which preference endpoint a request goes to.
type Kind string

const (
	KindRaffle   Kind = "raffle"
	KindDonation Kind = "donation"
)

// Buyer is the contact block sent with every request.
type Buyer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// PreferenceRequest asks the backend for a payment preference id.
// Raffle requests carry ChosenNumbers; donation requests carry AmountCLP.
type PreferenceRequest struct {
	Kind          Kind  `json:"-"`
	ChosenNumbers []int `json:"chosen_numbers,omitempty"`
	AmountCLP     int64 `json:"amount_clp,omitempty"`
	Buyer         Buyer `json:"buyer"`
}

type preferenceResponse struct {
	PreferenceID string `json:"preference_id"`
}

// ReservationRequest holds numbers for payment by bank transfer.
type ReservationRequest struct {
	ChosenNumbers []int `json:"chosen_numbers"`
	Buyer         Buyer `json:"buyer"`
}

type failedReservationRequest struct {
	ExternalReference string `json:"external_reference"`
}

// Reservation is the backend's confirmation of a transfer hold.
type Reservation struct {
	OK            bool      `json:"ok"`
	ReservedUntil time.Time `json:"reserved_until"`
	Count         int       `json:"count"`
	ChosenNumbers []int     `json:"chosen_numbers,omitempty"`
	RedirectURL   string    `json:"redirect_url,omitempty"`
	PaymentID     int64     `json:"payment_id,omitempty"`
}

// errorBody is the backend's error envelope.
type errorBody struct {
	Error           string `json:"error"`
	ConflictNumbers []int  `json:"conflict_numbers,omitempty"`
}
