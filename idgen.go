package busybee

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync/atomic"
)

// IDGenerator generates unique correlation IDs for request tracking.
//
// Generated IDs look like UUIDs but are merely random base bytes
// combined with an atomic counter.  This is much faster than drawing
// fresh random bytes per request while IDs stay unique within and
// across processes with very high probability.
type IDGenerator struct {
	base    [16]byte
	counter uint64
}

// NewIDGenerator creates a new IDGenerator.
func NewIDGenerator() *IDGenerator {
	g := new(IDGenerator)
	_, err := rand.Read(g.base[:])
	if err != nil {
		panic(err)
	}
	var b [8]byte
	_, err = rand.Read(b[:])
	if err != nil {
		panic(err)
	}
	g.counter = binary.LittleEndian.Uint64(b[:])
	return g
}

// Generate returns a unique ID string in UUID form.
// It is safe to call Generate from multiple goroutines.
func (g *IDGenerator) Generate() string {
	c := atomic.AddUint64(&g.counter, 1)

	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], c)
	for i := 0; i < 8; i++ {
		b[i] ^= g.base[i]
	}

	return fmt.Sprintf("%02x%02x%02x%02x-%02x%02x-%02x%02x-%02x%02x-%02x%02x%02x%02x%02x%02x",
		b[0], b[1], b[2], b[3], b[4], b[5], b[6], b[7],
		g.base[8], g.base[9], g.base[10], g.base[11],
		g.base[12], g.base[13], g.base[14], g.base[15])
}
