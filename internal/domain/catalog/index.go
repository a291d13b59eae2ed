package catalog

// PriceBucketSize groups listings into 5 000 XAF price bands for the
// derived price index.
const PriceBucketSize int64 = 5000

// Index is a derived accelerator over a product collection: category,
// seller and price-bucket lookups resolving to product ids. It is always
// regenerable from the collection it was built from and is never
// persisted as a source of truth.
type Index struct {
	byCategory map[string][]string
	bySeller   map[string][]string
	byBucket   map[int64][]string
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	idx := &Index{}
	idx.Rebuild(nil)
	return idx
}

// BucketFor returns the price bucket a price belongs to.
func BucketFor(price int64) int64 {
	if price < 0 {
		return 0
	}
	return price / PriceBucketSize * PriceBucketSize
}

// Rebuild regenerates the whole index from the given collection,
// discarding any previous state.
func (idx *Index) Rebuild(products []Product) {
	idx.byCategory = make(map[string][]string)
	idx.bySeller = make(map[string][]string)
	idx.byBucket = make(map[int64][]string)

	for _, p := range products {
		idx.byCategory[p.Category] = append(idx.byCategory[p.Category], p.ID)
		idx.bySeller[p.SellerID] = append(idx.bySeller[p.SellerID], p.ID)
		b := BucketFor(p.Price)
		idx.byBucket[b] = append(idx.byBucket[b], p.ID)
	}
}

// ByCategory returns the ids of products in a category.
func (idx *Index) ByCategory(category string) []string {
	return idx.byCategory[category]
}

// BySeller returns the ids of products listed by a seller.
func (idx *Index) BySeller(sellerID string) []string {
	return idx.bySeller[sellerID]
}

// ByPriceBucket returns the ids of products whose price falls in the
// bucket containing the given price.
func (idx *Index) ByPriceBucket(price int64) []string {
	return idx.byBucket[BucketFor(price)]
}
