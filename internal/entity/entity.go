// Package entity defines the graph data model: code symbols and the directed
// relations between them. Identity is derived from content, never assigned.
package entity

import (
	"strconv"

	"skg/internal/identity"
)

// Kind discriminates the entity variants.
type Kind string

const (
	KindFunction  Kind = "function"
	KindClass     Kind = "class"
	KindFile      Kind = "file"
	KindInterface Kind = "interface"
	KindGeneric   Kind = "generic"
)

// Entity is a code symbol in the knowledge graph. The Detail field carries
// kind-specific attributes; exactly one variant applies per Kind, and
// KindGeneric carries none.
type Entity struct {
	ID        string `json:"id"` // identity key, computed; never hand-assigned
	OrgID     string `json:"orgId"`
	RepoID    string `json:"repoId"`
	Kind      Kind   `json:"kind"`
	Name      string `json:"name"`
	FilePath  string `json:"filePath"`
	Language  string `json:"language,omitempty"`
	Signature string `json:"signature,omitempty"`
	Body      string `json:"body,omitempty"`
	StartLine int    `json:"startLine,omitempty"` // 1-indexed
	EndLine   int    `json:"endLine,omitempty"`

	Detail Detail `json:"detail,omitempty"`
}

// Detail is the kind-specific payload. Implementations are value types;
// a nil Detail is valid for KindGeneric and KindFile entities with no
// extra attributes.
type Detail interface {
	DetailKind() Kind
}

// FunctionDetail carries function/method attributes.
type FunctionDetail struct {
	Arity    int    `json:"arity,omitempty"`
	Receiver string `json:"receiver,omitempty"` // method receiver type, if any
	Exported bool   `json:"exported,omitempty"`
}

func (FunctionDetail) DetailKind() Kind { return KindFunction }

// ClassDetail carries class/struct attributes.
type ClassDetail struct {
	Bases    []string `json:"bases,omitempty"`
	Abstract bool     `json:"abstract,omitempty"`
}

func (ClassDetail) DetailKind() Kind { return KindClass }

// FileDetail carries file-level attributes.
type FileDetail struct {
	Lines int `json:"lines,omitempty"`
}

func (FileDetail) DetailKind() Kind { return KindFile }

// InterfaceDetail carries interface attributes.
type InterfaceDetail struct {
	Methods []string `json:"methods,omitempty"`
}

func (InterfaceDetail) DetailKind() Kind { return KindInterface }

// Key computes the stable identity key for e from its identity tuple.
// Two extractions of unchanged code produce the same key.
func (e *Entity) Key() string {
	return identity.EntityKey(e.OrgID, e.RepoID, e.FilePath, string(e.Kind), e.Name, e.Signature)
}

// ContentHash digests the mutable attributes used for update detection.
// Identity fields are excluded: changes to them surface through Key instead.
func (e *Entity) ContentHash() string {
	return identity.ContentHash(e.Signature, e.Body, lineRange(e.StartLine, e.EndLine))
}

// New returns a copy of e with ID populated from its identity tuple.
func New(e Entity) Entity {
	e.ID = e.Key()
	return e
}

func lineRange(start, end int) string {
	return strconv.Itoa(start) + "-" + strconv.Itoa(end)
}
