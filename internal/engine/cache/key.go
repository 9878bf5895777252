package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrInvalidKeyParams is returned when key parameters lack an operation.
var ErrInvalidKeyParams = errors.New("cache key parameters require an operation")

// KeyParams holds every input that affects a cached response.
// Two KeyParams that describe the same logical query generate the same key:
// environment order, duplicate environments and parameter map order are
// normalized away before hashing.
type KeyParams struct {
	// Operation is the request kind (e.g., "list_flags").
	Operation string

	// Project is the flag-management project key.
	Project string

	// Environments is the set of environments requested.
	Environments []string

	// Params carries any other response-affecting inputs, such as the API
	// base URL or resource path.
	Params map[string]string
}

// canonicalKey is the hashed representation. Field order is fixed by the
// struct, slices are sorted before marshalling.
type canonicalKey struct {
	Operation    string      `json:"op"`
	Project      string      `json:"project"`
	Environments []string    `json:"envs"`
	Params       [][2]string `json:"params"`
}

// GenerateKey returns a hex SHA256 digest identifying params.
func GenerateKey(params KeyParams) (string, error) {
	op := strings.ToLower(strings.TrimSpace(params.Operation))
	if op == "" {
		return "", ErrInvalidKeyParams
	}

	canonical := canonicalKey{
		Operation:    op,
		Project:      strings.TrimSpace(params.Project),
		Environments: normalizeSet(params.Environments),
		Params:       sortedPairs(params.Params),
	}

	data, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("marshal cache key: %w", err)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// normalizeSet trims, drops empties, deduplicates and sorts values.
func normalizeSet(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func sortedPairs(m map[string]string) [][2]string {
	pairs := make([][2]string, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, [2]string{strings.TrimSpace(k), v})
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i][0] < pairs[j][0]
	})
	return pairs
}

// KeyParamsBuilder assembles KeyParams fluently.
type KeyParamsBuilder struct {
	params KeyParams
}

// NewKeyParamsBuilder starts a builder for the given operation and project.
func NewKeyParamsBuilder(operation, project string) *KeyParamsBuilder {
	return &KeyParamsBuilder{params: KeyParams{Operation: operation, Project: project}}
}

// WithEnvironments adds environments to the key.
func (b *KeyParamsBuilder) WithEnvironments(envs ...string) *KeyParamsBuilder {
	b.params.Environments = append(b.params.Environments, envs...)
	return b
}

// WithParam adds a response-affecting parameter to the key.
func (b *KeyParamsBuilder) WithParam(name, value string) *KeyParamsBuilder {
	if b.params.Params == nil {
		b.params.Params = make(map[string]string)
	}
	b.params.Params[name] = value
	return b
}

// BuildParams returns the accumulated parameters.
func (b *KeyParamsBuilder) BuildParams() KeyParams {
	return b.params
}

// Build generates the key.
func (b *KeyParamsBuilder) Build() (string, error) {
	return GenerateKey(b.params)
}
