// Package drift classifies how semantically different a changed entity is
// from its prior version, using two cheap signals: a structural hash and an
// embedding similarity. No LLM call; the classifier runs on every changed
// entity before the expensive re-justification path is considered.
package drift

import (
	"encoding/hex"
	"math"
	"strings"
	"unicode"

	"golang.org/x/crypto/blake2b"
)

// Category labels the nature of an observed change.
type Category string

const (
	// Stable: structure unchanged; whitespace, comments, formatting.
	Stable Category = "stable"
	// Cosmetic: structure changed but meaning essentially identical,
	// e.g. a variable rename.
	Cosmetic Category = "cosmetic"
	// Refactor: meaningfully restructured, same intent.
	Refactor Category = "refactor"
	// IntentDrift: the entity's purpose likely changed. This is the signal
	// that warrants re-justification and a human-visible drift alert.
	IntentDrift Category = "intent_drift"
)

// Similarity bands. The refactor band includes its upper bound.
const (
	cosmeticFloor = 0.95
	refactorFloor = 0.80
)

// Input carries the before/after signals for one changed entity.
type Input struct {
	ASTHashOld   string
	ASTHashNew   string
	EmbeddingOld []float32
	EmbeddingNew []float32
}

// Result is the classification outcome.
type Result struct {
	Category   Category `json:"category"`
	Similarity float64  `json:"embeddingSimilarity"`
}

// Classify labels a change from its structural and semantic signals.
// Identical AST hashes short-circuit to Stable with similarity 1.0; no
// embedding computation is needed for a purely non-structural change.
func Classify(in Input) Result {
	if in.ASTHashOld == in.ASTHashNew {
		return Result{Category: Stable, Similarity: 1.0}
	}

	sim := CosineSimilarity(in.EmbeddingOld, in.EmbeddingNew)
	return Result{Category: band(sim), Similarity: sim}
}

// band maps a similarity to its category. The refactor band is
// (0.80, 0.95], upper bound inclusive; anything at or below 0.80 is
// intent drift.
func band(sim float64) Category {
	switch {
	case sim > cosmeticFloor:
		return Cosmetic
	case sim > refactorFloor:
		return Refactor
	default:
		return IntentDrift
	}
}

// CosineSimilarity computes dot(a,b) / (|a| * |b|). Mismatched-length or
// empty vectors yield 0; an unknown similarity classifies as intent drift
// rather than masking a real change.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// NormalizeStructure collapses whitespace runs to a single space so that
// formatting-only edits produce identical structural hashes. Comment
// stripping is the extractor's job; callers with real AST hashes should
// prefer those.
func NormalizeStructure(source string) string {
	var b strings.Builder
	b.Grow(len(source))
	inSpace := false
	for _, r := range source {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// StructuralHash digests a normalized signature/AST rendering for drift
// detection. Deliberately a different construction (BLAKE2b) from the
// identity hasher so the two can never be confused or cross-compared.
func StructuralHash(structure string) string {
	sum := blake2b.Sum256([]byte(structure))
	return hex.EncodeToString(sum[:8])
}
