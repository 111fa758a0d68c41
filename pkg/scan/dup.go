package scan

import (
	"github.com/muxable/linklayer/pkg/address"
	"github.com/muxable/linklayer/pkg/pdu"
)

// DuplicateFilterSize is the number of advertisers the duplicate filter
// remembers. When it is full the oldest entry is evicted, and that
// advertiser is reported once more the next time it is heard.
const DuplicateFilterSize = 64

type dupKey struct {
	value uint64
	kind  address.Kind
	typ   pdu.Type
}

// dupFilter is a fixed size first-in first-out set.
type dupFilter struct {
	keys [DuplicateFilterSize]dupKey
	n    int
	next int
}

func (f *dupFilter) reset() {
	f.n, f.next = 0, 0
}

// add reports whether k was not in the filter, and remembers it.
func (f *dupFilter) add(k dupKey) bool {
	for _, seen := range f.keys[:f.n] {
		if seen == k {
			return false
		}
	}
	f.keys[f.next] = k
	f.next = (f.next + 1) % len(f.keys)
	if f.n < len(f.keys) {
		f.n++
	}
	return true
}
