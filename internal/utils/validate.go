package utils

import (
    "regexp"
    "strings"
)

var (
    emailRe  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
    phoneRe  = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
    walletRe = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool { return emailRe.MatchString(strings.TrimSpace(s)) }

// ValidPhone accepts 10 to 15 digits with an optional leading plus.
// Spaces and dashes are ignored.
func ValidPhone(s string) bool { return phoneRe.MatchString(CompactPhone(s)) }

// CompactPhone strips spaces, dashes and parentheses from a phone number.
func CompactPhone(s string) string {
    return strings.Map(func(r rune) rune {
        switch r {
        case ' ', '-', '(', ')':
            return -1
        }
        return r
    }, strings.TrimSpace(s))
}

// ValidWallet reports whether s is a 0x-prefixed 40 hex digit address.
func ValidWallet(s string) bool { return walletRe.MatchString(strings.TrimSpace(s)) }
