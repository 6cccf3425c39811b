package position

import "sort"

// index answers genomic overlap queries for one chromosome's
// transcripts in O(log n + k): a sorted-by-start slice plus a
// prefix-max array of end coordinates, so a query only scans the
// candidates it can't prune. Built once per chromosome in NewMapper
// and never mutated afterward, so concurrent lookups need no locking.
type index struct {
	intervals []interval
	maxEnd    []int64 // maxEnd[i] = max(end) over intervals[:i+1]
}

type interval struct {
	start, end int64
	transcript *Transcript
}

// buildIndex indexes transcripts that share a chromosome. Multiple
// transcripts commonly overlap the same genomic range (alternative
// isoforms of a gene, or overlapping genes on opposite strands), which
// is why findOverlaps returns a slice rather than a single transcript.
func buildIndex(transcripts []*Transcript) *index {
	if len(transcripts) == 0 {
		return &index{}
	}

	intervals := make([]interval, len(transcripts))
	for i, t := range transcripts {
		intervals[i] = interval{start: t.Start, end: t.End, transcript: t}
	}
	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].start < intervals[j].start
	})

	maxEnd := make([]int64, len(intervals))
	maxEnd[0] = intervals[0].end
	for i := 1; i < len(intervals); i++ {
		maxEnd[i] = intervals[i].end
		if maxEnd[i-1] > maxEnd[i] {
			maxEnd[i] = maxEnd[i-1]
		}
	}

	return &index{intervals: intervals, maxEnd: maxEnd}
}

// findOverlaps returns every transcript whose [start, end] contains
// pos, canonical transcripts first so a caller that only wants one
// answer (Mapper.CanonicalOverlap) can take result[0] without having
// to rank the whole slice itself.
func (idx *index) findOverlaps(pos int64) []*Transcript {
	if len(idx.intervals) == 0 {
		return nil
	}

	// Every candidate must have start <= pos; hi is the first index
	// that doesn't, so candidates live in intervals[0:hi].
	hi := sort.Search(len(idx.intervals), func(i int) bool {
		return idx.intervals[i].start > pos
	})

	var result []*Transcript
	for i := hi - 1; i >= 0; i-- {
		// maxEnd[i] is the largest end among intervals[0:i+1]; once
		// it drops below pos, nothing further left can contain pos.
		if idx.maxEnd[i] < pos {
			break
		}
		if idx.intervals[i].end >= pos {
			result = append(result, idx.intervals[i].transcript)
		}
	}

	sortCanonicalFirst(result)
	return result
}

// sortCanonicalFirst stably moves canonical, protein-coding transcripts
// ahead of the rest, mirroring the preference a reverse genomic lookup
// should apply when several isoforms overlap the same position: prefer
// the canonical, protein-coding isoform as the default annotation
// target when the caller hasn't named one explicitly.
func sortCanonicalFirst(transcripts []*Transcript) {
	sort.SliceStable(transcripts, func(i, j int) bool {
		return rank(transcripts[i]) < rank(transcripts[j])
	})
}

func rank(t *Transcript) int {
	switch {
	case t.IsCanonical && t.IsProteinCoding():
		return 0
	case t.IsCanonical:
		return 1
	case t.IsProteinCoding():
		return 2
	default:
		return 3
	}
}
