// Package identity models who owns a wishlist: a signed-in user or an
// anonymous browser holding a guest token.
package identity

import "strconv"

// Kind discriminates the two owner variants.
type Kind string

const (
	KindUser  Kind = "user"
	KindGuest Kind = "guest"
)

// MaxTokenLength matches the width of the token column.
const MaxTokenLength = 64

// Identity is either User(id) or Guest(token). The zero value is neither and
// is rejected by every store operation.
type Identity struct {
	kind   Kind
	userID int64
	token  string
}

// User returns the identity of a signed-in customer.
func User(id int64) Identity {
	return Identity{kind: KindUser, userID: id}
}

// Guest returns the identity of an anonymous browser holding token.
func Guest(token string) Identity {
	return Identity{kind: KindGuest, token: token}
}

// Kind reports which variant the identity holds.
func (i Identity) Kind() Kind { return i.kind }

// UserID returns the user id and true for user identities.
func (i Identity) UserID() (int64, bool) {
	return i.userID, i.kind == KindUser
}

// Token returns the guest token and true for guest identities.
func (i Identity) Token() (string, bool) {
	return i.token, i.kind == KindGuest
}

// IsZero reports whether the identity was never set.
func (i Identity) IsZero() bool { return i.kind == "" }

// Valid reports whether the identity can own rows.
func (i Identity) Valid() bool {
	switch i.kind {
	case KindUser:
		return i.userID > 0
	case KindGuest:
		return i.token != "" && len(i.token) <= MaxTokenLength
	}
	return false
}

// String never exposes the guest token.
func (i Identity) String() string {
	switch i.kind {
	case KindUser:
		return "user:" + strconv.FormatInt(i.userID, 10)
	case KindGuest:
		return "guest"
	}
	return "none"
}
