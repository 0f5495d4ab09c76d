package models

import "math/big"

// userKeyBits truncates external account ids into the internal key space.
const userKeyBits = 48

var userKeyMod = new(big.Int).Lsh(big.NewInt(1), userKeyBits)

// UserKey derives the internal numeric key for an external Google account id.
// Account ids are decimal strings wider than 64 bits, so the value is reduced
// mod 2^48. All overlay rows hang off this key, which gives per-user isolation.
func UserKey(externalID string) (int64, bool) {
	n, ok := new(big.Int).SetString(externalID, 10)
	if !ok || n.Sign() < 0 {
		return 0, false
	}
	return new(big.Int).Mod(n, userKeyMod).Int64(), true
}

// Identity is the resolved caller of an authenticated request.
type Identity struct {
	// ExternalID is the Google account id from the verified token.
	ExternalID string
	// Key is UserKey(ExternalID).
	Key int64
	// Token is the raw access token, reused to call the Calendar API.
	Token string
}
