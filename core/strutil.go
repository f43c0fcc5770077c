package core

// appendInt appends the decimal form of n to buf without using strconv or
// fmt, which keeps them out of the firmware image
func appendInt(buf []byte, n int64) []byte {
	if n == 0 {
		return append(buf, '0')
	}

	var digits [20]byte
	pos := len(digits)

	// Work on the negative value so the minimum int64 doesn't overflow
	negative := n < 0
	if !negative {
		n = -n
	}
	for n != 0 {
		pos--
		digits[pos] = byte('0' - n%10)
		n /= 10
	}

	if negative {
		buf = append(buf, '-')
	}
	return append(buf, digits[pos:]...)
}

// itoa converts an integer to a string
func itoa(n int) string {
	var buf [21]byte
	return string(appendInt(buf[:0], int64(n)))
}
