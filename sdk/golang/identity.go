// SPDX-License-Identifier: MIT

package golang

import (
	"encoding/json"
	"os"

	"github.com/planet-nine-app/continuebee/pkg/crypto"
)

// Identity is the client's keypair plus the userUUID the server assigned
// at creation. UserUUID is empty until Register succeeds.
type Identity struct {
	UserUUID   string `json:"user_uuid,omitempty"`
	PrivateKey string `json:"private_key"` // Hex encoded
	PublicKey  string `json:"public_key"`  // Hex encoded
}

func loadOrGenerateIdentity(filePath string) (*Identity, error) {
	if _, err := os.Stat(filePath); err == nil {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}
		var id Identity
		if err := json.Unmarshal(data, &id); err == nil && id.PrivateKey != "" {
			return &id, nil
		}
	}

	priv, pub, err := crypto.GenerateKeypair()
	if err != nil {
		return nil, err
	}

	id := &Identity{
		PrivateKey: priv,
		PublicKey:  pub,
	}

	if err := id.save(filePath); err != nil {
		return nil, err
	}

	return id, nil
}

func (id *Identity) save(filePath string) error {
	data, _ := json.MarshalIndent(id, "", "  ")
	return os.WriteFile(filePath, data, 0600)
}
