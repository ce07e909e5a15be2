package storage

import (
	"encoding/json"

	"github.com/omar16100/parsnip/internal/models"
)

// Record is any value a backend persists as a blob.
type Record interface {
	models.Entity | models.Relation | models.Project
}

// Encode serializes a record into its self-contained stored form.
func Encode[T Record](v *T) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, Serialization("encode", err)
	}
	return data, nil
}

// Decode parses a blob produced by Encode.
func Decode[T Record](data []byte) (*T, error) {
	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		return nil, Serialization("decode", err)
	}
	return v, nil
}
