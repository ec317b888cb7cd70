package library

import (
	"strconv"
	"strings"
)

// Book is a single catalog record. ID is assigned by the catalog and never changes.
type Book struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Genre           string `json:"genre"`
	PublicationYear Year   `json:"publication_year"`
}

// User represents a registered account.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // Don't serialize password hash
}

// Session holds the identity bound to one session token.
// An empty Username means the session is anonymous.
type Session struct {
	Username string `json:"username,omitempty"`
}

// Authenticated reports whether a user is logged in on this session.
func (s Session) Authenticated() bool { return s.Username != "" }

// Year is a publication year as typed into the add/edit form.
// Input that does not start with digits is kept as an invalid year instead of
// being rejected, so Valid must be checked before using Value.
type Year struct {
	Value int  `json:"value"`
	Valid bool `json:"valid"`
}

// ParseYear reads the year the way ParseLeadingInt does, so
// "1965 (first ed.)" parses as 1965.
func ParseYear(raw string) Year {
	n, ok := ParseLeadingInt(raw)
	if !ok || n != int64(int(n)) {
		return Year{}
	}
	return Year{Value: int(n), Valid: true}
}

// ParseLeadingInt parses an optional sign and the leading digits of the
// trimmed input, ignoring whatever follows them. A 0x or 0X prefix switches
// to hex digits. It reports false when no digits lead the input.
func ParseLeadingInt(raw string) (int64, bool) {
	s := strings.TrimSpace(raw)
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	base := 10
	if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base = 16
		s = s[2:]
	}
	end := 0
	for end < len(s) && isDigit(s[end], base) {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(s[:end], base, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}

func isDigit(c byte, base int) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case base == 16:
		return (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
	}
	return false
}

// String renders the year for display; invalid years render as NaN.
func (y Year) String() string {
	if !y.Valid {
		return "NaN"
	}
	return strconv.Itoa(y.Value)
}
