package postprocess

import "sort"

// Suppress filters overlapping candidates with greedy IoU-based Non-Maximum
// Suppression.
//
// In per-class mode (acrossClasses false, the default for detection models)
// candidates are partitioned by class and suppressed independently within
// each class, with classes emitted in ascending order. In cross-class mode a
// single pass runs over all candidates regardless of class.
//
// Candidates scoring below scoreThreshold are dropped even though callers
// normally pre-filter. A candidate is suppressed when its IoU with an
// already-kept higher-ranked candidate reaches iouThreshold; callers that
// want no suppression at all must not call Suppress.
//
// Arguments:
//   - cands: Decoded detection candidates, in decode order.
//   - scoreThreshold: Minimum confidence for a candidate to participate.
//   - iouThreshold: Overlap at or above which a candidate is suppressed.
//   - acrossClasses: Suppress across class boundaries instead of per class.
//
// Returns:
//   - The retained candidates, highest confidence first within each group.
func Suppress(cands []Candidate, scoreThreshold, iouThreshold float32, acrossClasses bool) []Candidate {
	if acrossClasses {
		return greedy(cands, scoreThreshold, iouThreshold)
	}

	byClass := map[int][]Candidate{}
	classes := []int{}
	for _, c := range cands {
		if _, ok := byClass[c.Class]; !ok {
			classes = append(classes, c.Class)
		}
		byClass[c.Class] = append(byClass[c.Class], c)
	}
	sort.Ints(classes)

	kept := make([]Candidate, 0, len(cands))
	for _, class := range classes {
		kept = append(kept, greedy(byClass[class], scoreThreshold, iouThreshold)...)
	}
	return kept
}

// greedy walks the candidates in descending confidence order, keeping each
// one unless it overlaps an already-kept candidate. The sort is stable, so
// equal scores retain their decode order.
func greedy(cands []Candidate, scoreThreshold, iouThreshold float32) []Candidate {
	ordered := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Score >= scoreThreshold {
			ordered = append(ordered, c)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score > ordered[j].Score
	})

	kept := make([]Candidate, 0, len(ordered))
	for _, c := range ordered {
		suppressed := false
		for i := range kept {
			if c.Box.IOU(kept[i].Box) >= iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, c)
		}
	}
	return kept
}
