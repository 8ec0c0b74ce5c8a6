// Package pricing implements the demand-bounded pricing gate. It is pure and
// allocation-free: quoting never touches seat inventory locks.
package pricing

// Clamp bounds a predicted price to the admissible band [base, 2*base].
// Prices are minor currency units.
func Clamp(basePrice, predictedPrice int64) int64 {
	if predictedPrice <= basePrice {
		return basePrice
	}
	if ceiling := 2 * basePrice; predictedPrice > ceiling {
		return ceiling
	}
	return predictedPrice
}
