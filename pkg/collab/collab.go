// Package collab defines the minimal, documented surface the duplicator is
// allowed to use in place of a real CRDT library. The spec this module
// implements treats the CRDT library as an external collaborator and only
// names which operations are invoked and in what order; this package is the
// concrete stand-in for that contract inside this repository.
package collab

import (
	"encoding/json"
	"fmt"
)

// Type is the role tag every collab object carries.
type Type string

const (
	TypeDocument          Type = "document"
	TypeDatabase          Type = "database"
	TypeDatabaseRow       Type = "database_row"
	TypeFolder            Type = "folder"
	TypeWorkspaceDatabase Type = "workspace_database"
)

// Origin tags who authored an update. Carried for parity with the broadcast
// payload shape; never used for access control here.
type Origin string

const (
	OriginServer Origin = "server"
	OriginClient Origin = "client"
	OriginEmpty  Origin = "empty"
)

const currentVersion byte = 1

// EncodedV1 is the opaque "encoded collab v1" byte blob the rest of the repo
// passes around without looking inside.
type EncodedV1 struct {
	Version byte
	Data    []byte
}

// Encode serialises v into an EncodedV1 envelope.
func Encode(v interface{}) (EncodedV1, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return EncodedV1{}, fmt.Errorf("collab: encode: %w", err)
	}
	return EncodedV1{Version: currentVersion, Data: data}, nil
}

// Decode unpacks an EncodedV1 envelope into out.
func Decode(enc EncodedV1, out interface{}) error {
	if enc.Version != currentVersion {
		return fmt.Errorf("collab: unsupported encoded collab version %d", enc.Version)
	}
	if err := json.Unmarshal(enc.Data, out); err != nil {
		return fmt.Errorf("collab: decode: %w", err)
	}
	return nil
}

// ToBytes produces the wire form stored by CollabStore: a version byte
// followed by the payload.
func (e EncodedV1) ToBytes() []byte {
	b := make([]byte, 0, len(e.Data)+1)
	b = append(b, e.Version)
	return append(b, e.Data...)
}

// FromBytes parses the wire form produced by ToBytes.
func FromBytes(b []byte) (EncodedV1, error) {
	if len(b) == 0 {
		return EncodedV1{}, fmt.Errorf("collab: empty encoded collab bytes")
	}
	return EncodedV1{Version: b[0], Data: append([]byte(nil), b[1:]...)}, nil
}
