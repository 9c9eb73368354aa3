package room

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed schema.cue
var schemaSrc string

var (
	schemaOnce sync.Once
	schemaVal  cue.Value
)

func schema() cue.Value {
	schemaOnce.Do(func() {
		schemaVal = cuecontext.New().CompileString(schemaSrc, cue.Filename("schema.cue"))
	})
	return schemaVal
}

// Validate checks raw room JSON against the wire schema. Records from the
// shared store are written by other clients and can be torn by partial
// merges; anything that fails validation is dropped before it can corrupt
// local state.
func Validate(data []byte) error {
	s := schema()
	if err := s.Err(); err != nil {
		return fmt.Errorf("room schema: %w", err)
	}
	expr, err := cuejson.Extract("room.json", data)
	if err != nil {
		return fmt.Errorf("room payload: %w", err)
	}
	val := s.Context().BuildExpr(expr)
	if err := val.Err(); err != nil {
		return fmt.Errorf("room payload: %w", err)
	}
	if err := s.Unify(val).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("room payload: %w", err)
	}
	return nil
}

// Decode validates and unmarshals a room record.
func Decode(data []byte) (Room, error) {
	if err := Validate(data); err != nil {
		return Room{}, err
	}
	var r Room
	if err := json.Unmarshal(data, &r); err != nil {
		return Room{}, fmt.Errorf("decode room: %w", err)
	}
	return r, nil
}
