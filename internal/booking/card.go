package booking

import (
	"fmt"
	"strings"
)

// Card holds the payment details used for paid slots.
type Card struct {
	Number string
	Expiry string
	CVC    string
}

// ParseCard decodes the card secret, supplied as "number@expiry@cvc".
func ParseCard(s string) (Card, error) {
	parts := strings.Split(s, "@")
	if len(parts) != 3 {
		return Card{}, fmt.Errorf("card secret must have 3 @-separated fields, got %d", len(parts))
	}

	card := Card{
		Number: strings.TrimSpace(parts[0]),
		Expiry: strings.TrimSpace(parts[1]),
		CVC:    strings.TrimSpace(parts[2]),
	}
	if card.Number == "" || card.Expiry == "" || card.CVC == "" {
		return Card{}, fmt.Errorf("card secret has empty fields")
	}

	return card, nil
}

// IsZero reports whether no card was configured.
func (c Card) IsZero() bool {
	return c == Card{}
}
