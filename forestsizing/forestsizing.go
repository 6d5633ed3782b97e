// Package forestsizing computes block-map tree page counts from a
// logical-block count, per spec.md section 4.6. These are pure
// functions with no I/O.
package forestsizing

// EntriesPerLeafPage is the fixed number of logical-to-physical
// mapping entries a single block-map leaf page holds.
const EntriesPerLeafPage = 812

// DefaultRootCount is the fixed number of block-map tree roots a
// volume is built with.
const DefaultRootCount = 60

// LeafPages returns the number of block-map leaf pages needed to map
// logicalBlocks logical block numbers.
func LeafPages(logicalBlocks uint64) uint64 {
	return ceilDiv(logicalBlocks, EntriesPerLeafPage)
}

// BlockMapPageCount returns the total number of block-map pages
// (leaves plus interior pages) needed for a tree of rootCount roots,
// fan-out EntriesPerLeafPage, mapping logicalBlocks logical blocks.
// It folds each root's share of the leaves up the tree one level at a
// time until one page per root remains, matching the on-disk forest
// layout exactly (monotone in logicalBlocks: P7).
func BlockMapPageCount(logicalBlocks uint64) uint64 {
	return BlockMapPageCountForRoots(logicalBlocks, DefaultRootCount)
}

// BlockMapPageCountForRoots is BlockMapPageCount generalized to an
// arbitrary root count, for callers (layout.Make) that accept
// root_count as an explicit parameter per spec.md section 4.7.
func BlockMapPageCountForRoots(logicalBlocks, rootCount uint64) uint64 {
	leaves := LeafPages(logicalBlocks)
	total := leaves

	// Leaves are spread evenly across the roots; each root's own
	// leaf share folds up independently, one interior level per
	// rootCount-way reduction by EntriesPerLeafPage, until each root
	// has a single page left (its own root page, already counted
	// once we reach this point, so the loop stops there).
	leavesPerRoot := ceilDiv(leaves, rootCount)
	for pagesPerRoot := leavesPerRoot; pagesPerRoot > 1; pagesPerRoot = ceilDiv(pagesPerRoot, EntriesPerLeafPage) {
		interiorPagesPerRoot := ceilDiv(pagesPerRoot, EntriesPerLeafPage)
		total += interiorPagesPerRoot * rootCount
	}
	return total
}

// ComputeLogicalBlocks finds the largest logical-block count L such
// that L plus its block-map overhead fits within dataBlocks blocks of
// storage, for the "derive maximum" (logical_blocks = 0) case in
// spec.md section 6. The closed form approximates the fixed point by
// scaling dataBlocks by the leaf fan-out ratio and then walks down
// until BlockMapPageCount confirms it fits, since BlockMapPageCount is
// monotone (P7) but not perfectly linear once interior pages are
// folded in across roots.
func ComputeLogicalBlocks(dataBlocks uint64) uint64 {
	if dataBlocks == 0 {
		return 0
	}
	// L + L/812 (ignoring interior overhead) <= dataBlocks, so
	// L <= dataBlocks * 812/813, a safe starting overestimate.
	candidate := dataBlocks * EntriesPerLeafPage / (EntriesPerLeafPage + 1)
	for candidate > 0 && candidate+BlockMapPageCount(candidate) > dataBlocks {
		candidate--
	}
	for (candidate+1)+BlockMapPageCount(candidate+1) <= dataBlocks {
		candidate++
	}
	return candidate
}

func ceilDiv(a, b uint64) uint64 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}
