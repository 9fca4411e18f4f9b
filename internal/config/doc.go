// Package config loads gitai settings from YAML or sandboxed Lua files.
//
// # Search Order
//
// LoadConfig uses the first file found:
//  1. $GITAI_CONFIG (an explicit path; missing is an error)
//  2. ./.gitcommit.yaml
//  3. ./.gitcommit.lua
//  4. <repository root>/.gitcommit.yaml
//  5. ~/.gitcommit.yaml
//
// With no file the defaults are used. Keys absent from a file keep their
// default values. OLLAMA_HOST, when set, overrides ollama.url.
//
// # Lua Configuration
//
// A .lua file must assign a global gitai table with the same keys as the
// YAML form:
//
//	gitai = {
//	  model = platform.when(platform.is_apple_silicon, "qwen2.5-coder:14b") or "qwen2.5-coder:7b",
//	  language = "en",
//	  scopes = { "api", "cli" },
//	  ticket = { enabled = true, prefix = "JIRA" },
//	}
//
// The file runs in a gopher-lua VM without os, io, module loading, debug or
// metatable access, and with a read-only platform table describing the host.
// Parsing honors context cancellation, and files over MaxConfigSize are
// rejected before execution.
package config
