package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"pigflow.ai/internal/protocol"
	"pigflow.ai/schemas"
)

// maxPayload bounds what we are willing to read (after decompression).
const maxPayload = 256 << 20

var (
	schemaOnce sync.Once
	schemaVal  *jsonschema.Schema
	schemaErr  error
)

func datasetSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		raw, err := schemas.FS.ReadFile(schemas.Dataset)
		if err != nil {
			schemaErr = err
			return
		}
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft7
		if err := c.AddResource(schemas.Dataset, bytes.NewReader(raw)); err != nil {
			schemaErr = err
			return
		}
		schemaVal, schemaErr = c.Compile(schemas.Dataset)
	})
	return schemaVal, schemaErr
}

// Decode validates raw JSON against the dataset schema and decodes it.
func Decode(raw []byte) (*protocol.Dataset, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &LoadError{Stage: StageDecode, Err: err}
	}
	sch, err := datasetSchema()
	if err != nil {
		return nil, &LoadError{Stage: StageSchema, Err: fmt.Errorf("compile schema: %w", err)}
	}
	if err := sch.Validate(doc); err != nil {
		return nil, &LoadError{Stage: StageSchema, Err: err}
	}
	var ds protocol.Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, &LoadError{Stage: StageDecode, Err: err}
	}
	return &ds, nil
}

func readAll(r io.Reader, compressed bool) ([]byte, error) {
	if compressed {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		r = dec
	}
	b, err := io.ReadAll(io.LimitReader(r, maxPayload+1))
	if err != nil {
		return nil, err
	}
	if len(b) > maxPayload {
		return nil, fmt.Errorf("payload exceeds %d bytes", maxPayload)
	}
	return b, nil
}
