package sync

import (
	"encoding/binary"
	"fmt"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/spaolacci/murmur3"
)

const pointsPerStripe = 200

// ring consistently hashes keys onto stripe indices. Each stripe gets
// pointsPerStripe points on the ring to even out the distribution.
type ring struct {
	points *treemap.Map

	// firstStripe caches the stripe at the ring's lowest point, the
	// wrap-around target. treemap.Map.Min() is O(log n).
	firstStripe int
}

func newRing(stripes uint) *ring {
	points := treemap.NewWith(utils.Int64Comparator)
	for stripe := 0; stripe < int(stripes); stripe++ {
		base, _ := murmur3.Sum128([]byte(fmt.Sprintf("stripe%d", stripe)))
		baseBytes := make([]byte, 8)
		binary.LittleEndian.PutUint64(baseBytes, base)

		for i := 0; i < pointsPerStripe; i++ {
			hasher := murmur3.New128()
			hasher.Write(baseBytes)
			indexBytes := make([]byte, 4)
			binary.LittleEndian.PutUint32(indexBytes, uint32(i))
			hasher.Write(indexBytes)
			point, _ := hasher.Sum128()
			points.Put(int64(point), stripe)
		}
	}

	_, firstStripe := points.Min()

	return &ring{
		points:      points,
		firstStripe: firstStripe.(int),
	}
}

// stripe consistently maps a key to a stripe index.
func (r *ring) stripe(key []byte) int {
	hasher := murmur3.New128()
	hasher.Write(key)
	raw, _ := hasher.Sum128()
	_, found := r.points.Ceiling(int64(raw))
	if found == nil {
		return r.firstStripe
	}
	return found.(int)
}
