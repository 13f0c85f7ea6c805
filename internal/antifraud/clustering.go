package antifraud

import (
	"math/bits"
	"strconv"
)

// phashClusterDistance is the Hamming threshold under which two perceptual
// hashes are considered the same leaflet photo for review clustering.
const phashClusterDistance = 4

// ClusterEntry is the slice of a stored submission that duplicate clustering
// looks at.
type ClusterEntry struct {
	ID                int64  `json:"id"`
	PhoneNumber       string `json:"phone_number"`
	LoyaltyCardNumber string `json:"loyalty_card_number"`
	PhotoPHash        string `json:"photo_phash"`
}

// GroupSimilar clusters stored submissions that likely belong to the same
// identity: a shared phone number, a shared loyalty card, or perceptual
// hashes within a small Hamming distance. Greedy single pass in input order;
// only clusters with at least two members are returned.
//
// O(n^2) in submission count, which is fine for on-demand admin review over
// a bounded dataset.
func GroupSimilar(entries []ClusterEntry) [][]ClusterEntry {
	assigned := make([]bool, len(entries))
	var clusters [][]ClusterEntry

	for i := range entries {
		if assigned[i] {
			continue
		}
		cluster := []ClusterEntry{entries[i]}
		assigned[i] = true

		for j := i + 1; j < len(entries); j++ {
			if assigned[j] {
				continue
			}
			if sameIdentity(entries[i], entries[j]) {
				cluster = append(cluster, entries[j])
				assigned[j] = true
			}
		}

		if len(cluster) >= 2 {
			clusters = append(clusters, cluster)
		}
	}

	return clusters
}

func sameIdentity(a, b ClusterEntry) bool {
	if a.PhoneNumber != "" && a.PhoneNumber == b.PhoneNumber {
		return true
	}
	if a.LoyaltyCardNumber != "" && a.LoyaltyCardNumber == b.LoyaltyCardNumber {
		return true
	}
	if a.PhotoPHash != "" && b.PhotoPHash != "" {
		return HammingDistanceHex(a.PhotoPHash, b.PhotoPHash) <= phashClusterDistance
	}
	return false
}

// HammingDistanceHex counts the differing bits between two 64-bit perceptual
// hashes in hex form. Unparseable input yields the maximum distance of 64 so
// a corrupt hash never clusters with anything.
func HammingDistanceHex(a, b string) int {
	x, err := strconv.ParseUint(a, 16, 64)
	if err != nil {
		return 64
	}
	y, err := strconv.ParseUint(b, 16, 64)
	if err != nil {
		return 64
	}
	return bits.OnesCount64(x ^ y)
}
