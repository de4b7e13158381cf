// Package tools defines the contract between the agent and the functions it
// can call.
//
// Includes:
//   - Definition: name, description, JSON input schema, handler.
//   - GenerateSchema[T](): derive a JSON Schema from a Go struct.
//   - Registry: name lookup with stable registration order.
package tools
