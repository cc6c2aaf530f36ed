package cache

import (
	"fmt"
	"strings"

	"github.com/camdumpdb/internal/version"
)

type KeyGenerator struct {
	Prefix  string
	Version string
}

// NewKeyGenerator creates a key generator. Keys carry the parser version so
// an upgraded parser never serves reports produced by an older one.
func NewKeyGenerator(prefix string) *KeyGenerator {
	if prefix == "" {
		prefix = "cdb"
	}
	return &KeyGenerator{
		Prefix:  prefix,
		Version: sanitizeKeyPart(version.GetVersionInfo()),
	}
}

// ReportKey addresses a parsed report by the SHA-256 of the dump content.
func (kg *KeyGenerator) ReportKey(contentHash string) string {
	return fmt.Sprintf("%s:%s:report:%s", kg.Prefix, kg.Version, contentHash)
}

// VersionPattern matches every key written by this parser version.
func (kg *KeyGenerator) VersionPattern() string {
	return fmt.Sprintf("%s:%s:*", kg.Prefix, kg.Version)
}

// AllPattern matches every key under the prefix, all versions.
func (kg *KeyGenerator) AllPattern() string {
	return kg.Prefix + ":*"
}

func sanitizeKeyPart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return strings.NewReplacer(":", "_", " ", "_").Replace(s)
}
