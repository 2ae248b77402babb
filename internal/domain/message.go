// SPDX-License-Identifier: AGPL-3.0-or-later

package domain

import "strconv"

// SignedRequest carries the signed fields of an inbound operation. It is
// transient: nothing here is persisted. UserUUID is empty for creation,
// where no account exists yet. Hash is the caller-asserted current hash;
// NewHash and PubKey are only set for the operations that use them.
type SignedRequest struct {
	UserUUID  string
	Hash      string
	NewHash   string
	PubKey    string
	Signature string
	Timestamp int64 // unix seconds
}

// Canonical payload construction. Signatures are computed over these exact
// concatenations, so field order and formatting must never change: plain
// string values joined with no separators, the timestamp rendered as its
// decimal representation. Field boundaries rely on the fixed-width encodings
// of timestamps, keys and UUIDs.

// CreatePayload is the signed payload for account creation:
// timestamp + pubKey + hash.
func (m SignedRequest) CreatePayload() []byte {
	return []byte(strconv.FormatInt(m.Timestamp, 10) + m.PubKey + m.Hash)
}

// VerifyPayload is the signed payload for hash verification:
// timestamp + userUUID + hash.
func (m SignedRequest) VerifyPayload() []byte {
	return []byte(strconv.FormatInt(m.Timestamp, 10) + m.UserUUID + m.Hash)
}

// UpdateHashPayload is the signed payload for hash rotation:
// timestamp + userUUID + hash + newHash.
func (m SignedRequest) UpdateHashPayload() []byte {
	return []byte(strconv.FormatInt(m.Timestamp, 10) + m.UserUUID + m.Hash + m.NewHash)
}

// DeletePayload is the signed payload for account deletion:
// timestamp + userUUID + hash.
func (m SignedRequest) DeletePayload() []byte {
	return []byte(strconv.FormatInt(m.Timestamp, 10) + m.UserUUID + m.Hash)
}
