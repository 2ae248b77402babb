// SPDX-License-Identifier: MIT

package golang

// CreateUserRequest is the payload for account creation.
type CreateUserRequest struct {
	PubKey    string `json:"pubKey"`
	Hash      string `json:"hash"`
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
}

// UserRequest is the payload for hash verification and account deletion.
type UserRequest struct {
	UserUUID  string `json:"userUUID"`
	Hash      string `json:"hash"`
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
}

// UpdateHashRequest is the payload for hash rotation.
type UpdateHashRequest struct {
	UserUUID  string `json:"userUUID"`
	Hash      string `json:"hash"`
	NewHash   string `json:"newHash"`
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
}

// UserResponse is the server's view of an account.
type UserResponse struct {
	UserUUID string `json:"userUUID"`
	PubKey   string `json:"pubKey"`
	Hash     string `json:"hash"`
}

// ErrorResponse is the server's rejection body.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Reasons []string `json:"reasons,omitempty"`
}
