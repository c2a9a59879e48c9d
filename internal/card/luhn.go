package card

// Luhn reports whether a digit string passes the Luhn checksum.
// Every second digit from the rightmost is doubled, subtracting 9 when the
// double exceeds 9; the total must be divisible by 10.
func Luhn(number string) bool {
	if number == "" {
		return false
	}

	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := number[i]
		if d < '0' || d > '9' {
			return false
		}
		digit := int(d - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}

	return sum%10 == 0
}
