package util

import (
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// IsAlphabetic returns true if s is not empty and only holds letters.
func IsAlphabetic(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !unicode.IsLetter(c) {
			return false
		}
	}
	return true
}

// EndsWord returns true if the last rune of s separates words.
func EndsWord(s string) bool {
	r, size := utf8.DecodeLastRuneInString(s)
	if size == 0 {
		return false
	}
	return unicode.IsSpace(r) || unicode.IsPunct(r)
}

type exitStatuser interface {
	ExitStatus() int
}

// GetExitStatus returns the exit status carried by err, looking through
// wrapped errors. It returns 1 and false if there is none.
func GetExitStatus(err error) (int, bool) {
	var ese exitStatuser
	if errors.As(err, &ese) {
		return ese.ExitStatus(), true
	}
	return 1, false
}
