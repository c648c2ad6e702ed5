// Package pattern fingerprints conflict shapes for deduplication and fuzzy
// similarity. A conflict's files, kind, and intent tags are tokenized, run
// through a MinHash signature, and compressed to a fixed hex digest. Exact
// digests support cheap dedup; cached token sets give accurate Jaccard
// similarity without storing full history verbatim.
package pattern

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"

	"accord/internal/logging"
)

// signatureSize is the number of independently seeded hash functions in
// the MinHash signature.
const signatureSize = 64

var (
	uuidSegment      = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	timestampSegment = regexp.MustCompile(`^\d{8,14}$|^\d{4}-\d{2}-\d{2}`)
	trailingNumeric  = regexp.MustCompile(`\d+$`)
)

// Hasher computes conflict fingerprints and remembers the token sets they
// were derived from. The cache is in-memory only; similarity degrades to a
// digest comparison when one side has been evicted.
type Hasher struct {
	mu    sync.RWMutex
	cache map[string]map[string]struct{} // digest -> token set
}

// NewHasher creates a Hasher with an empty token cache.
func NewHasher() *Hasher {
	return &Hasher{cache: make(map[string]map[string]struct{})}
}

// ExtractTokens normalizes the conflict shape into its token set.
// Paths are normalized segment by segment: UUID-like, timestamp-like, and
// trailing-numeric segments become placeholders so two conflicts differing
// only in generated names fingerprint identically.
func (h *Hasher) ExtractTokens(kind string, files []string, intents []string) []string {
	tokens := make(map[string]struct{})
	tokens["type:"+strings.ToLower(kind)] = struct{}{}

	for _, file := range files {
		normalized := normalizePath(file)
		segments := strings.Split(normalized, "/")
		for depth, seg := range segments {
			if seg == "" {
				continue
			}
			tokens[fmt.Sprintf("path:%d:%s", depth, seg)] = struct{}{}
		}
		if ext := strings.TrimPrefix(path.Ext(normalized), "."); ext != "" {
			tokens["ext:"+ext] = struct{}{}
		}
	}

	for _, intent := range intents {
		tokens["intent:"+strings.ToLower(strings.TrimSpace(intent))] = struct{}{}
	}

	out := make([]string, 0, len(tokens))
	for tok := range tokens {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}

// normalizePath replaces volatile path segments with placeholders.
func normalizePath(p string) string {
	segments := strings.Split(strings.ReplaceAll(p, "\\", "/"), "/")
	for i, seg := range segments {
		base := seg
		ext := ""
		if i == len(segments)-1 {
			if dot := strings.LastIndexByte(seg, '.'); dot > 0 {
				base, ext = seg[:dot], seg[dot:]
			}
		}
		switch {
		case uuidSegment.MatchString(base):
			segments[i] = "{uuid}" + ext
		case timestampSegment.MatchString(base):
			segments[i] = "{ts}" + ext
		case trailingNumeric.MatchString(base) && trailingNumeric.FindString(base) != base:
			segments[i] = trailingNumeric.ReplaceAllString(base, "{n}") + ext
		}
	}
	return strings.Join(segments, "/")
}

// ComputeHash builds the MinHash signature over the token set and
// compresses it to a fixed-length hex digest. The token set is cached in
// memory keyed by the digest.
func (h *Hasher) ComputeHash(kind string, files []string, intents []string) string {
	timer := logging.StartTimer(logging.CategoryPattern, "ComputeHash")
	defer timer.Stop()

	tokens := h.ExtractTokens(kind, files, intents)

	signature := make([]uint64, signatureSize)
	for i := range signature {
		signature[i] = ^uint64(0)
		for _, tok := range tokens {
			if v := seededHash(uint64(i), tok); v < signature[i] {
				signature[i] = v
			}
		}
	}

	buf := make([]byte, 8*signatureSize)
	for i, v := range signature {
		binary.BigEndian.PutUint64(buf[i*8:], v)
	}
	sum := sha256.Sum256(buf)
	digest := hex.EncodeToString(sum[:])

	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	h.mu.Lock()
	h.cache[digest] = set
	h.mu.Unlock()

	logging.Pattern("hashed %d tokens -> %s", len(tokens), digest[:12])
	return digest
}

// ComputeSimilarity estimates how similar two fingerprints are.
// Identical digests are 1.0. When both token sets are cached the result is
// the exact Jaccard similarity. Otherwise it falls back to a coarse
// character-equality ratio over the digests; lower fidelity, used only
// when the cache has evicted one side.
func (h *Hasher) ComputeSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}

	h.mu.RLock()
	setA, okA := h.cache[a]
	setB, okB := h.cache[b]
	h.mu.RUnlock()

	if okA && okB {
		return jaccard(setA, setB)
	}
	return digestRatio(a, b)
}

// jaccard is intersection size over union size.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// digestRatio is the fraction of positions where the two digests agree.
func digestRatio(a, b string) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	equal := 0
	for i := 0; i < n; i++ {
		if a[i] == b[i] {
			equal++
		}
	}
	return float64(equal) / float64(n)
}

// seededHash is an FNV-1a variant with the seed folded into the offset,
// giving signatureSize independent hash families.
func seededHash(seed uint64, s string) uint64 {
	const prime64 = 1099511628211
	h := uint64(14695981039346656037) ^ (seed * 0x9e3779b97f4a7c15)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}
