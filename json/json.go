// Package json is a thin jsoniter wrapper that fills `default` struct tags
// before encoding or decoding, so serialized configuration and reports carry
// their documented defaults.
package json

import (
	"io"
	"os"

	"github.com/creasty/defaults"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Encoder struct {
	*jsoniter.Encoder
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{Encoder: json.NewEncoder(w)}
}

// Encode fills defaults on v before encoding.
func (e *Encoder) Encode(v any) error {
	if err := defaults.Set(v); err != nil {
		return err
	}
	return e.Encoder.Encode(v)
}

type Decoder struct {
	*jsoniter.Decoder
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{Decoder: json.NewDecoder(r)}
}

// Decode fills defaults on v before decoding so absent keys keep them.
func (d *Decoder) Decode(v any) error {
	if err := defaults.Set(v); err != nil {
		return err
	}
	return d.Decoder.Decode(v)
}

func Marshal(v any) ([]byte, error) {
	if err := defaults.Set(v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	if err := defaults.Set(v); err != nil {
		return nil, err
	}
	return json.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v any) error {
	if err := defaults.Set(v); err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// WriteFile marshals v indented and writes it to path, overwriting.
func WriteFile(path string, v any) error {
	data, err := MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// ReadFile reads path and unmarshals it into v.
func ReadFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return Unmarshal(data, v)
}
