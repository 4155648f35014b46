package generator

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const commandsSchemaURL = "docgraph://schema/commands.schema.json"

//go:embed schema/commands.schema.json
var commandsSchemaJSON []byte

var (
	commandsSchemaOnce sync.Once
	commandsSchema     *jsonschema.Schema
	commandsSchemaErr  error
)

func loadCommandsSchema() (*jsonschema.Schema, error) {
	commandsSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(commandsSchemaURL, bytes.NewReader(commandsSchemaJSON)); err != nil {
			commandsSchemaErr = err
			return
		}
		commandsSchema, commandsSchemaErr = compiler.Compile(commandsSchemaURL)
	})
	return commandsSchema, commandsSchemaErr
}

// LoadCommands decodes an introspector JSON array after checking it against
// the embedded command schema.
func LoadCommands(r io.Reader) ([]Command, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read introspector JSON: %w", err)
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("invalid introspector JSON: %w", err)
	}
	schema, err := loadCommandsSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to compile command schema: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("introspector JSON does not match the command schema: %w", err)
	}

	var cmds []Command
	if err := json.Unmarshal(raw, &cmds); err != nil {
		return nil, fmt.Errorf("invalid introspector JSON: %w", err)
	}
	return cmds, nil
}
