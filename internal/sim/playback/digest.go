package playback

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
	"sort"
)

// stateDigest hashes the replay-relevant state so that two playbacks of the
// same dataset can be compared day by day.
func stateDigest(s *session) string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteI64(h, &tmp, int64(s.day))
	digestWriteI64(h, &tmp, int64(s.limit))

	farms := s.farms.List()
	sort.Slice(farms, func(i, j int) bool { return farms[i].ID < farms[j].ID })
	digestWriteI64(h, &tmp, int64(len(farms)))
	for _, f := range farms {
		digestWriteString(h, &tmp, f.ID)
		digestWriteI64(h, &tmp, int64(f.Pigs))
		digestWriteF64(h, &tmp, f.AvgWeight)
		h.Write([]byte{boolByte(f.VisitedThisWeek)})
	}

	digestWriteI64(h, &tmp, int64(len(s.routes)))
	for _, r := range s.routes {
		digestWriteString(h, &tmp, r.TruckID)
		digestWriteI64(h, &tmp, int64(r.Pigs))
		digestWriteI64(h, &tmp, int64(len(r.Stops)))
		for _, st := range r.Stops {
			digestWriteString(h, &tmp, st.RouteStopID)
			digestWriteI64(h, &tmp, int64(st.PigsLoaded))
		}
	}

	t := s.ledger.Totals()
	digestWriteF64(h, &tmp, t.Revenue)
	digestWriteF64(h, &tmp, t.Cost)
	digestWriteF64(h, &tmp, t.Penalties)
	digestWriteI64(h, &tmp, int64(t.PigsProcessed))

	return hex.EncodeToString(h.Sum(nil))
}

func digestWriteU64(h hash.Hash, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hash.Hash, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func digestWriteF64(h hash.Hash, tmp *[8]byte, v float64) {
	digestWriteU64(h, tmp, math.Float64bits(v))
}

func digestWriteString(h hash.Hash, tmp *[8]byte, s string) {
	digestWriteU64(h, tmp, uint64(len(s)))
	h.Write([]byte(s))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
