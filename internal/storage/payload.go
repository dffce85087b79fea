package storage

import (
	"encoding/json"
	"fmt"

	"github.com/oldnordic/llmgrep/pkg/types"
)

// decodePayload decodes an entity's JSON payload into its typed variant
func decodePayload[T any](kind types.EntityKind, data string) (*T, error) {
	if data == "" {
		return nil, fmt.Errorf("failed to decode %s payload: empty data", kind)
	}
	var v T
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", kind, err)
	}
	return &v, nil
}

// DecodeSymbol decodes a Symbol entity payload
func DecodeSymbol(data string) (*types.SymbolNode, error) {
	return decodePayload[types.SymbolNode](types.EntitySymbol, data)
}

// DecodeFile decodes a File entity payload
func DecodeFile(data string) (*types.FileNode, error) {
	return decodePayload[types.FileNode](types.EntityFile, data)
}

// DecodeReference decodes a Reference entity payload
func DecodeReference(data string) (*types.ReferenceNode, error) {
	return decodePayload[types.ReferenceNode](types.EntityReference, data)
}

// DecodeCall decodes a Call entity payload
func DecodeCall(data string) (*types.CallNode, error) {
	return decodePayload[types.CallNode](types.EntityCall, data)
}
