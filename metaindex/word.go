package metaindex

import (
	"strings"
	"sync"
	"unicode"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/uuid"
)

// WordIndex maps case-folded, whitespace/punctuation-tokenized words to a
// compressed bitset of entity handles (spec §4.5 "Word index... via a
// compressed bitset (e.g., Roaring-style)").
type WordIndex struct {
	mu     sync.RWMutex
	arena  *Arena
	bitmap map[string]*roaring.Bitmap
	// words[id] caches every token indexed for id since its last Unindex
	// (across all Index calls, one per text field), so Unindex can remove
	// exactly what Index added without re-tokenizing the caller's
	// (possibly since-mutated) strings.
	words map[uuid.UUID][]string
}

func NewWordIndex(arena *Arena) *WordIndex {
	return &WordIndex{arena: arena, bitmap: make(map[string]*roaring.Bitmap), words: make(map[uuid.UUID][]string)}
}

// Tokenize case-folds and splits s on anything that is not a letter or
// digit. No Unicode normalization is applied, so precomposed and
// decomposed spellings of the same word yield different tokens.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, strings.ToLower(f))
	}
	return out
}

// Index tokenizes text and adds id to every resulting word's bitset.
func (w *WordIndex) Index(id uuid.UUID, text string) {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return
	}
	h := w.arena.Handle(id)

	w.mu.Lock()
	defer w.mu.Unlock()
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if w.bitmap[t] == nil {
			w.bitmap[t] = roaring.New()
		}
		w.bitmap[t].Add(h)
	}
	w.words[id] = append(w.words[id], tokens...)
}

// Unindex removes id from every word bitset it was indexed under since
// its last Unindex.
func (w *WordIndex) Unindex(id uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	tokens, ok := w.words[id]
	if !ok {
		return
	}
	hdl := w.arena.Handle(id)
	for _, t := range tokens {
		if bm, ok := w.bitmap[t]; ok {
			bm.Remove(hdl)
		}
	}
	delete(w.words, id)
}

func (w *WordIndex) idsFromBitmap(bm *roaring.Bitmap) IDSet {
	out := NewIDSet()
	if bm == nil {
		return out
	}
	it := bm.Iterator()
	for it.HasNext() {
		h := it.Next()
		if id, ok := w.arena.Lookup(h); ok {
			out[id] = struct{}{}
		}
	}
	return out
}

// Contains returns every id whose indexed text contains word as an exact
// token match.
func (w *WordIndex) Contains(word string) IDSet {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.idsFromBitmap(w.bitmap[strings.ToLower(word)])
}

// StartsWith returns every id with at least one token starting with
// prefix. Implemented as an in-memory filter over known words, per spec
// §4.5 ("the latter two via in-memory filter").
func (w *WordIndex) StartsWith(prefix string) IDSet {
	prefix = strings.ToLower(prefix)
	w.mu.RLock()
	defer w.mu.RUnlock()
	var matches []*roaring.Bitmap
	for word, bm := range w.bitmap {
		if strings.HasPrefix(word, prefix) {
			matches = append(matches, bm)
		}
	}
	return w.unionBitmaps(matches)
}

// EndsWith returns every id with at least one token ending with suffix.
func (w *WordIndex) EndsWith(suffix string) IDSet {
	suffix = strings.ToLower(suffix)
	w.mu.RLock()
	defer w.mu.RUnlock()
	var matches []*roaring.Bitmap
	for word, bm := range w.bitmap {
		if strings.HasSuffix(word, suffix) {
			matches = append(matches, bm)
		}
	}
	return w.unionBitmaps(matches)
}

func (w *WordIndex) unionBitmaps(bms []*roaring.Bitmap) IDSet {
	out := NewIDSet()
	for _, bm := range bms {
		it := bm.Iterator()
		for it.HasNext() {
			h := it.Next()
			if id, ok := w.arena.Lookup(h); ok {
				out[id] = struct{}{}
			}
		}
	}
	return out
}

// TokenOverlapScore scores id by the fraction of queryTokens found among
// id's indexed words, used by the text stage of find() (spec §6 "score by
// term overlap normalized by query token count").
func (w *WordIndex) TokenOverlapScore(id uuid.UUID, queryTokens []string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	w.mu.RLock()
	tokens := w.words[id]
	w.mu.RUnlock()

	have := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		have[t] = struct{}{}
	}
	matched := 0
	for _, qt := range queryTokens {
		if _, ok := have[strings.ToLower(qt)]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}
