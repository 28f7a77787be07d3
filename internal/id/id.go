// Package id generates the monotonic, sortable 128-bit identifiers used
// for deploy ids and node observation markers, per spec §4.1.
//
// A spec id is exactly a ULID: a 48-bit millisecond timestamp followed by
// 80 bits of randomness, Crockford base32 encoded to 26 characters, with
// the random portion incremented (not re-rolled) on repeated calls within
// the same millisecond so the emitted sequence is strictly increasing.
package id

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid"
)

var (
	mu      sync.Mutex
	entropy io.Reader
	ready   bool
)

// Init installs the process-wide monotonic entropy source. Safe to call
// more than once; only the first call takes effect.
func Init() {
	mu.Lock()
	defer mu.Unlock()
	if ready {
		return
	}
	entropy = ulid.Monotonic(rand.Reader, 0)
	ready = true
}

// New returns the next identifier in the monotonic sequence. If Init has
// not been called yet, it falls back to a plain random ULID rather than
// failing, per spec §4.1.
func New() string {
	mu.Lock()
	e := entropy
	r := ready
	mu.Unlock()

	if !r {
		u, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
		if err != nil {
			// crypto/rand is not expected to fail; retry once against
			// the monotonic source rather than panic the caller.
			Init()
			return New()
		}
		return u.String()
	}

	u, err := ulid.New(ulid.Timestamp(time.Now()), e)
	if err != nil {
		u, _ = ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	}
	return u.String()
}

func init() {
	Init()
}
