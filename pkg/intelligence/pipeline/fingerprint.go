package pipeline

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"
	"math"
	"sort"

	"github.com/PeterJemley/bridget-sub000/pkg/domain"
)

// Fingerprint hashes every snapshot field that influences an engine result
// into a stable hex digest. Event and location order does not matter: both
// are canonically sorted before hashing, so permutations of the same
// snapshot share a fingerprint and a memoized result.
func Fingerprint(snap Snapshot) string {
	h := sha256.New()

	events := append([]domain.SpanEvent(nil), snap.Events...)
	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.OpenTime.Equal(b.OpenTime) {
			return a.OpenTime.Before(b.OpenTime)
		}
		if a.EntityID != b.EntityID {
			return a.EntityID < b.EntityID
		}
		return a.DurationMinutes < b.DurationMinutes
	})
	for _, ev := range events {
		hashString(h, ev.EntityID)
		hashInt64(h, ev.OpenTime.UnixNano())
		if ev.CloseTime != nil {
			h.Write([]byte{1})
			hashInt64(h, ev.CloseTime.UnixNano())
		} else {
			h.Write([]byte{0})
		}
		hashFloat64(h, ev.DurationMinutes)
		hashFloat64(h, ev.Latitude)
		hashFloat64(h, ev.Longitude)
	}

	locations := append([]domain.EntityLocation(nil), snap.Locations...)
	sort.Slice(locations, func(i, j int) bool {
		return locations[i].EntityID < locations[j].EntityID
	})
	for _, loc := range locations {
		hashString(h, loc.EntityID)
		hashFloat64(h, loc.Latitude)
		hashFloat64(h, loc.Longitude)
	}

	hashInt64(h, snap.Now.UnixNano())
	hashInt64(h, int64(snap.Tier.Normalize()))

	return hex.EncodeToString(h.Sum(nil))
}

// hashString writes a length-prefixed string so adjacent fields cannot
// alias.
func hashString(w io.Writer, s string) {
	hashInt64(w, int64(len(s)))
	io.WriteString(w, s)
}

func hashInt64(w io.Writer, v int64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	w.Write(buf[:])
}

func hashFloat64(w io.Writer, v float64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(v))
	w.Write(buf[:])
}
