package http

import (
	"errors"
	"math"
)

var errInvalidNumber = errors.New("invalid number")

// atoi accepts plain ASCII digits only, so signs and spaces are rejected.
func atoi(s string) (int, error) {
	if s == "" {
		return 0, errInvalidNumber
	}

	var n int
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, errInvalidNumber
		}
		d := int(c - '0')
		if n > (math.MaxInt-d)/10 {
			return 0, errInvalidNumber
		}
		n = n*10 + d
	}
	return n, nil
}

// Helper function to write integer to buffer without allocation
func writeIntToBuffer(n int, buf []byte) int {
	if n == 0 {
		buf[0] = '0'
		return 1
	}

	temp := n
	digits := 0
	for temp > 0 {
		digits++
		temp /= 10
	}

	for i := digits - 1; i >= 0; i-- {
		buf[i] = '0' + byte(n%10)
		n /= 10
	}

	return digits
}
