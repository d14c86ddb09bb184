// Package catalog holds the MCP entity types the gateway aggregates across
// providers: tools, resources, and prompts, plus the aggregated snapshot
// published to the gateway server.
package catalog

import "encoding/json"

// Tool is a named, schema-typed callable exposed by a provider. Provider,
// Category and NamespaceReason are gateway-injected metadata layered on top
// of the upstream tool definition; they are additional JSON members that an
// MCP client unaware of them simply ignores.
type Tool struct {
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	InputSchema     json.RawMessage `json:"inputSchema,omitempty"`
	Provider        string          `json:"provider,omitempty"`
	Category        string          `json:"category,omitempty"`
	NamespaceReason string          `json:"namespaceReason,omitempty"`
}

// ResourceType classifies the shape of a resource's content.
type ResourceType string

const (
	ResourceTypeText   ResourceType = "text"
	ResourceTypeBinary ResourceType = "binary"
	ResourceTypeImage  ResourceType = "image"
)

// Resource is a named, URI-addressable artifact exposed by a provider. Once
// aggregated, URI is always provider-prefixed as "<provider>://<original>".
type Resource struct {
	URI          string       `json:"uri"`
	Name         string       `json:"name"`
	Description  string       `json:"description,omitempty"`
	MimeType     string       `json:"mimeType,omitempty"`
	ResourceType ResourceType `json:"resourceType,omitempty"`
}

// ResourceContent is the body returned by a resources/read call.
type ResourceContent struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     []byte `json:"blob,omitempty"`
}

// PromptParameter describes one named input to a Prompt.
type PromptParameter struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// Prompt is a named, parameterizable message template exposed by a provider.
type Prompt struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Parameters  []PromptParameter `json:"parameters,omitempty"`
	Provider    string            `json:"provider,omitempty"`
}

// PromptMessage is one turn of a rendered prompt.
type PromptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PromptResult is the rendered output of a prompts/get call.
type PromptResult struct {
	Messages    []PromptMessage `json:"messages"`
	Description string          `json:"description,omitempty"`
}
