// SPDX-License-Identifier: MIT

// Package golang is the client SDK for the continuebee user service.
// It keeps a persistent keypair on disk, signs every request with it,
// and never holds a session: each call carries a fresh timestamped
// signature over the exact payload the server reconstructs.
package golang

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/planet-nine-app/continuebee/pkg/crypto"
)

// ErrNotRegistered is returned by operations that need a userUUID
// before Register has succeeded.
var ErrNotRegistered = errors.New("client has no userUUID, call Register first")

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
	Reasons    []string
}

func (e *APIError) Error() string {
	if len(e.Reasons) > 0 {
		return fmt.Sprintf("server returned %d: %s (%s)", e.StatusCode, e.Message, strings.Join(e.Reasons, "; "))
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

type Config struct {
	ServerURL string
	AppName   string
	DataDir   string        // where the identity file is stored
	Timeout   time.Duration // HTTP timeout (default: 10s)
}

type Client struct {
	config   Config
	identity *Identity
	idPath   string
	client   *http.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.DataDir == "" {
		cfg.DataDir = "."
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	ensureDataDir(cfg.DataDir)
	idPath := cfg.DataDir + "/" + slug(cfg.AppName) + "_continuebee_identity.json"
	id, err := loadOrGenerateIdentity(idPath)
	if err != nil {
		return nil, fmt.Errorf("failed to init identity: %w", err)
	}

	return &Client{
		config:   cfg,
		identity: id,
		idPath:   idPath,
		client:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// UserUUID returns the server-assigned identifier, empty before Register.
func (c *Client) UserUUID() string {
	return c.identity.UserUUID
}

// PublicKey returns the hex-encoded compressed public key.
func (c *Client) PublicKey() string {
	return c.identity.PublicKey
}

// Registered reports whether this identity already holds a userUUID.
func (c *Client) Registered() bool {
	return c.identity.UserUUID != ""
}

// Register creates the account on the server, storing hash as the
// client state checksum. The assigned userUUID is persisted alongside
// the keypair so later calls survive restarts.
func (c *Client) Register(ctx context.Context, hash string) (*UserResponse, error) {
	ts := time.Now().Unix()
	payload := strconv.FormatInt(ts, 10) + c.identity.PublicKey + hash
	signature, err := crypto.Sign(c.identity.PrivateKey, []byte(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to sign request: %w", err)
	}

	req := CreateUserRequest{
		PubKey:    c.identity.PublicKey,
		Hash:      hash,
		Signature: signature,
		Timestamp: ts,
	}

	user, err := c.doUser(ctx, http.MethodPost, "/user/create", req, http.StatusCreated)
	if err != nil {
		return nil, err
	}

	c.identity.UserUUID = user.UserUUID
	if err := c.identity.save(c.idPath); err != nil {
		return nil, fmt.Errorf("account created but identity not persisted: %w", err)
	}

	return user, nil
}

// VerifyHash checks that hash matches the server-side state checksum.
// A nil error means the client and server agree.
func (c *Client) VerifyHash(ctx context.Context, hash string) error {
	if !c.Registered() {
		return ErrNotRegistered
	}

	ts := time.Now().Unix()
	payload := strconv.FormatInt(ts, 10) + c.identity.UserUUID + hash
	signature, err := crypto.Sign(c.identity.PrivateKey, []byte(payload))
	if err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}

	req := UserRequest{
		UserUUID:  c.identity.UserUUID,
		Hash:      hash,
		Signature: signature,
		Timestamp: ts,
	}

	return c.do(ctx, http.MethodPost, "/user/verify", req, http.StatusOK, nil)
}

// UpdateHash replaces the stored checksum, proving knowledge of the
// current one. currentHash must match the server's stored value.
func (c *Client) UpdateHash(ctx context.Context, currentHash, newHash string) (*UserResponse, error) {
	if !c.Registered() {
		return nil, ErrNotRegistered
	}

	ts := time.Now().Unix()
	payload := strconv.FormatInt(ts, 10) + c.identity.UserUUID + currentHash + newHash
	signature, err := crypto.Sign(c.identity.PrivateKey, []byte(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to sign request: %w", err)
	}

	req := UpdateHashRequest{
		UserUUID:  c.identity.UserUUID,
		Hash:      currentHash,
		NewHash:   newHash,
		Signature: signature,
		Timestamp: ts,
	}

	return c.doUser(ctx, http.MethodPut, "/user/update-hash", req, http.StatusAccepted)
}

// Delete removes the account. On success the local userUUID is cleared
// so the identity can register again.
func (c *Client) Delete(ctx context.Context, hash string) error {
	if !c.Registered() {
		return ErrNotRegistered
	}

	ts := time.Now().Unix()
	payload := strconv.FormatInt(ts, 10) + c.identity.UserUUID + hash
	signature, err := crypto.Sign(c.identity.PrivateKey, []byte(payload))
	if err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}

	req := UserRequest{
		UserUUID:  c.identity.UserUUID,
		Hash:      hash,
		Signature: signature,
		Timestamp: ts,
	}

	if err := c.do(ctx, http.MethodDelete, "/user/delete", req, http.StatusOK, nil); err != nil {
		return err
	}

	c.identity.UserUUID = ""
	return c.identity.save(c.idPath)
}

func (c *Client) doUser(ctx context.Context, method, path string, body any, wantStatus int) (*UserResponse, error) {
	var user UserResponse
	if err := c.do(ctx, method, path, body, wantStatus, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, wantStatus int, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.ServerURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != wantStatus {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var errResp ErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			apiErr.Message = errResp.Error
			apiErr.Reasons = errResp.Reasons
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func ensureDataDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		_ = os.MkdirAll(dir, 0755)
	}
}

func slug(s string) string {
	s = strings.ToLower(s)

	replacements := map[rune]string{
		'à': "a", 'á': "a", 'â': "a", 'ã': "a", 'ä': "a", 'å': "a",
		'è': "e", 'é': "e", 'ê': "e", 'ë': "e",
		'ì': "i", 'í': "i", 'î': "i", 'ï': "i",
		'ò': "o", 'ó': "o", 'ô': "o", 'õ': "o", 'ö': "o",
		'ù': "u", 'ú': "u", 'û': "u", 'ü': "u",
		'ý': "y", 'ÿ': "y",
		'ñ': "n", 'ç': "c",
	}

	var result strings.Builder
	for _, r := range s {
		if replacement, ok := replacements[r]; ok {
			result.WriteString(replacement)
		} else if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			result.WriteRune(r)
		} else if r == ' ' || r == '-' || r == '_' {
			result.WriteRune('-')
		}
	}

	cleaned := strings.Trim(result.String(), "-")
	for strings.Contains(cleaned, "--") {
		cleaned = strings.ReplaceAll(cleaned, "--", "-")
	}

	if cleaned == "" {
		return "app"
	}

	return cleaned
}
