// Package id provides ULID generation for loader and harness instances.
//
// Ids are lexicographically sortable and carry a short type prefix so log
// lines stay readable:
//   - ldr_<ulid> identifies a loader instance
//   - hns_<ulid> identifies a harness registration in the lifecycle tracker
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// LoaderID identifies a loader instance
type LoaderID string

// HarnessID identifies a harness registration
type HarnessID string

const (
	LoaderPrefix  = "ldr"
	HarnessPrefix = "hns"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewLoaderID generates a new loader id
func NewLoaderID() LoaderID {
	return LoaderID(Default().GenerateWithPrefix(LoaderPrefix))
}

// NewHarnessID generates a new harness id
func NewHarnessID() HarnessID {
	return HarnessID(Default().GenerateWithPrefix(HarnessPrefix))
}

func (id LoaderID) String() string  { return string(id) }
func (id HarnessID) String() string { return string(id) }

// IsValid reports whether s is a ULID, with or without a type prefix.
func IsValid(s string) bool {
	if i := strings.LastIndexByte(s, '_'); i >= 0 {
		s = s[i+1:]
	}
	_, err := ulid.Parse(s)
	return err == nil
}

// Timestamp extracts the creation time from a (possibly prefixed) id.
func Timestamp(s string) (time.Time, error) {
	if i := strings.LastIndexByte(s, '_'); i >= 0 {
		s = s[i+1:]
	}
	parsed, err := ulid.Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
