// Package loaders provides ready-made stacks loaders for common file
// formats.
//
// Plain loaders decode a file once:
//
//	stacks.RegisterLoader(lib, loaders.YAML[Config]())
//	cfg, err := stacks.Load[Config](lib, "conf/app.yaml")
//
// Live loaders return a *Live[T] that is updated in place when the backing
// store reports a change to the file.
package loaders

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/aweris/stacks"
)

// Decoder turns raw file contents into a value.
type Decoder[T any] func(data []byte) (T, error)

// Decode returns a loader that reads the whole file and hands it to dec.
func Decode[T any](dec Decoder[T]) stacks.Loader[T] {
	return stacks.LoaderFunc[T](func(r io.Reader, _ *stacks.Library) (T, error) {
		var zero T
		data, err := io.ReadAll(r)
		if err != nil {
			return zero, err
		}
		return dec(data)
	})
}

// Bytes loads the raw contents of a file.
func Bytes() stacks.Loader[[]byte] {
	return Decode[[]byte](decodeBytes)
}

// String loads a file as text.
func String() stacks.Loader[string] {
	return Decode[string](decodeString)
}

// JSON loads a file with encoding/json.
func JSON[T any]() stacks.Loader[T] {
	return Decode[T](decodeJSON[T])
}

// YAML loads a file with gopkg.in/yaml.v3.
func YAML[T any]() stacks.Loader[T] {
	return Decode[T](decodeYAML[T])
}

// TOML loads a file with go-toml.
func TOML[T any]() stacks.Loader[T] {
	return Decode[T](decodeTOML[T])
}

func decodeBytes(data []byte) ([]byte, error) { return data, nil }

func decodeString(data []byte) (string, error) { return string(data), nil }

func decodeJSON[T any](data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode json: %w", err)
	}
	return v, nil
}

func decodeYAML[T any](data []byte) (T, error) {
	var v T
	// An empty document leaves v at its zero value.
	if err := yaml.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode yaml: %w", err)
	}
	return v, nil
}

func decodeTOML[T any](data []byte) (T, error) {
	var v T
	dec := toml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("decode toml: %w", err)
	}
	return v, nil
}
