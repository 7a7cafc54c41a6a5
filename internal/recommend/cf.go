// Package recommend implements user-user collaborative filtering over a
// binary interaction log.
package recommend

import (
	"math"
	"sort"
)

// Interaction is one (user, item) observation. Repeats are allowed and
// collapse into set membership.
type Interaction struct {
	UserID uint
	ItemID uint
}

// Neighbor is a user similar to the target, with its cosine similarity.
type Neighbor struct {
	UserID     uint
	Similarity float64
}

// ItemSets groups interactions into one item set per user.
func ItemSets(interactions []Interaction) map[uint]map[uint]struct{} {
	sets := make(map[uint]map[uint]struct{})
	for _, in := range interactions {
		set, ok := sets[in.UserID]
		if !ok {
			set = make(map[uint]struct{})
			sets[in.UserID] = set
		}
		set[in.ItemID] = struct{}{}
	}
	return sets
}

// Cosine returns |a∩b| / (sqrt|a| * sqrt|b|). Empty sets yield 0.
func Cosine(a, b map[uint]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	common := 0
	for item := range small {
		if _, ok := large[item]; ok {
			common++
		}
	}
	return float64(common) / (math.Sqrt(float64(len(a))) * math.Sqrt(float64(len(b))))
}

// Neighbors ranks every other user with positive similarity to userID.
// Order is similarity descending, then user id ascending.
func Neighbors(sets map[uint]map[uint]struct{}, userID uint) []Neighbor {
	target := sets[userID]
	if len(target) == 0 {
		return nil
	}

	var neighbors []Neighbor
	for other, set := range sets {
		if other == userID || len(set) == 0 {
			continue
		}
		sim := Cosine(target, set)
		if sim <= 0 {
			continue
		}
		neighbors = append(neighbors, Neighbor{UserID: other, Similarity: sim})
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Similarity != neighbors[j].Similarity {
			return neighbors[i].Similarity > neighbors[j].Similarity
		}
		return neighbors[i].UserID < neighbors[j].UserID
	})
	return neighbors
}

// CollaborativeFilter returns the items seen by the topK most similar users
// that userID has not seen, in ascending item id order. It returns nil when
// userID has no interactions or no user shares an item with it.
func CollaborativeFilter(interactions []Interaction, userID uint, topK int) []uint {
	if topK <= 0 {
		return nil
	}

	sets := ItemSets(interactions)
	neighbors := Neighbors(sets, userID)
	if len(neighbors) > topK {
		neighbors = neighbors[:topK]
	}

	target := sets[userID]
	candidates := make(map[uint]struct{})
	for _, n := range neighbors {
		for item := range sets[n.UserID] {
			if _, seen := target[item]; seen {
				continue
			}
			candidates[item] = struct{}{}
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	items := make([]uint, 0, len(candidates))
	for item := range candidates {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i] < items[j] })
	return items
}
