package similarity

import (
	"math"
	"sort"
	"sync/atomic"

	"shelfScout/domain"
)

// Vector is a sparse TF-IDF vector keyed by term.
type Vector map[string]float64

// Match is one query hit.
type Match struct {
	BookID     uint64  `json:"bookId"`
	Similarity float64 `json:"similarity"`
}

type document struct {
	bookID uint64
	vec    Vector
}

// index is an immutable snapshot: idf table plus one L2-normalized vector
// per book. Rebuilt wholesale, never mutated in place.
type index struct {
	idf  map[string]float64
	docs []document
	byID map[uint64]Vector
}

// Engine holds the current index behind an atomic.Value so a rebuild can
// run concurrently with queries. Readers see either the previous index or
// the fully-built replacement, never a partial one.
type Engine struct {
	current atomic.Value
}

func NewEngine() *Engine {
	e := &Engine{}
	e.current.Store(&index{
		idf:  map[string]float64{},
		byID: map[uint64]Vector{},
	})
	return e
}

// BuildIndex tokenizes the catalog, computes tf-idf weights, L2-normalizes
// every document vector and swaps the finished index in with a single
// store. Books whose text yields a zero-norm vector are left out.
func (e *Engine) BuildIndex(books []domain.Book) {
	type rawDoc struct {
		bookID uint64
		tf     map[string]float64
	}

	raws := make([]rawDoc, 0, len(books))
	df := make(map[string]int)

	for _, b := range books {
		tokens := Tokenize(b.IndexText)
		if len(tokens) == 0 {
			continue
		}

		tf := make(map[string]float64, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		docLen := float64(len(tokens))
		for tok := range tf {
			tf[tok] /= docLen
			df[tok]++
		}
		raws = append(raws, rawDoc{bookID: b.ID, tf: tf})
	}

	n := float64(len(raws))
	idf := make(map[string]float64, len(df))
	for term, count := range df {
		idf[term] = math.Log((n+1)/float64(count+1)) + 1
	}

	next := &index{
		idf:  idf,
		docs: make([]document, 0, len(raws)),
		byID: make(map[uint64]Vector, len(raws)),
	}
	for _, raw := range raws {
		vec := make(Vector, len(raw.tf))
		for term, tf := range raw.tf {
			vec[term] = tf * idf[term]
		}
		if !normalize(vec) {
			continue
		}
		next.docs = append(next.docs, document{bookID: raw.bookID, vec: vec})
		next.byID[raw.bookID] = vec
	}
	sort.Slice(next.docs, func(i, j int) bool {
		return next.docs[i].bookID < next.docs[j].bookID
	})

	e.current.Store(next)
}

// Size reports how many books the current index holds.
func (e *Engine) Size() int {
	return len(e.snapshot().docs)
}

// Vector returns the indexed TF-IDF vector for a book. The returned map is
// shared with the index and must not be mutated.
func (e *Engine) Vector(bookID uint64) (Vector, bool) {
	vec, ok := e.snapshot().byID[bookID]
	return vec, ok
}

// Query scores every indexed book against the given vector and returns up
// to k matches with similarity >= minSim, descending by similarity and ties
// broken by ascending book id.
func (e *Engine) Query(vec Vector, k int, minSim float64) []Match {
	if k <= 0 || len(vec) == 0 {
		return nil
	}

	idx := e.snapshot()
	matches := make([]Match, 0, len(idx.docs))
	for _, doc := range idx.docs {
		sim := cosine(vec, doc.vec)
		if sim >= minSim && sim > 0 {
			matches = append(matches, Match{BookID: doc.bookID, Similarity: sim})
		}
	}

	// docs iterate in ascending bookID order, so a stable sort on
	// similarity alone preserves the tie-break.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// QueryText folds free text through the frozen vocabulary and idf table of
// the current snapshot and queries with the resulting vector. Terms the
// index has never seen contribute nothing.
func (e *Engine) QueryText(text string, k int, minSim float64) []Match {
	return e.Query(e.VectorizeText(text), k, minSim)
}

// VectorizeText builds a TF-IDF vector for free text against the current
// snapshot's vocabulary. Useful for composing query vectors (context
// keywords plus saved-book vectors) before a single Query call.
func (e *Engine) VectorizeText(text string) Vector {
	idx := e.snapshot()

	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	tf := make(map[string]float64, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}

	vec := make(Vector, len(tf))
	docLen := float64(len(tokens))
	for term, count := range tf {
		if w, ok := idx.idf[term]; ok {
			vec[term] = (count / docLen) * w
		}
	}
	return vec
}

func (e *Engine) snapshot() *index {
	return e.current.Load().(*index)
}

// normalize scales vec to unit L2 norm in place. Returns false for a
// zero-norm vector, which callers exclude from the index.
func normalize(vec Vector) bool {
	var sumSq float64
	for _, w := range vec {
		sumSq += w * w
	}
	if sumSq == 0 {
		return false
	}
	norm := math.Sqrt(sumSq)
	for term := range vec {
		vec[term] /= norm
	}
	return true
}

// cosine computes cosine similarity between two sparse vectors. Iterates
// the smaller map for the dot product.
func cosine(a, b Vector) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}

	var dot float64
	for term, wa := range a {
		if wb, ok := b[term]; ok {
			dot += wa * wb
		}
	}
	if dot == 0 {
		return 0
	}
	return dot / (vecNorm(a) * vecNorm(b))
}

func vecNorm(vec Vector) float64 {
	var sumSq float64
	for _, w := range vec {
		sumSq += w * w
	}
	return math.Sqrt(sumSq)
}
