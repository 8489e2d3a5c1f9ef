package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidOfferAmount is returned when offer content does not hold a positive whole amount.
var ErrInvalidOfferAmount = errors.New("offer content must be a positive amount such as $480000")

// ParseOfferAmount reads the amount back out of offer content. It accepts the
// stored form plus surrounding spaces and thousands separators ("$ 480,000").
func ParseOfferAmount(content string) (int64, error) {
	s := strings.TrimSpace(content)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, ErrInvalidOfferAmount
	}
	amount, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOfferAmount, content)
	}
	if amount <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOfferAmount, content)
	}
	return amount, nil
}
