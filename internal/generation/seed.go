package generation

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/vibemix/internal/models"
)

// DiversityToken varies prompt phrasing between generations of the same request.
//
// Two tokens for identical input may or may not differ; nothing depends on their value
// beyond picking templates and being echoed into prompts.
type DiversityToken struct {
	Value string
	Index int
}

// NewDiversityToken mixes the request content hash, the clock and random bytes.
func NewDiversityToken(req models.PlaylistRequest) DiversityToken {
	var noise [8]byte
	rand.Read(noise[:])

	h := fnv.New64a()
	binary.Write(h, binary.LittleEndian, contentHash(strings.Join(req.Emojis, ""), req.Vibe, strconv.Itoa(req.SongCount)))
	binary.Write(h, binary.LittleEndian, time.Now().UnixNano())
	h.Write(noise[:])

	sum := h.Sum(nil)
	return DiversityToken{
		Value: hex.EncodeToString(sum[:6]),
		Index: int(binary.BigEndian.Uint16(sum[6:])),
	}
}

// contentHash is a stable FNV-1a hash of parts.
func contentHash(parts ...string) uint64 {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return h.Sum64()
}
