package analysis

// BuildStructure folds chronological raw pivots into the alternating
// high/low market-structure backbone. Consecutive same-type pivots collapse
// to the more extreme one (higher high, lower low); a weaker same-type pivot
// is discarded. The result always satisfies strict type alternation between
// adjacent elements.
func BuildStructure(pivots []SwingPoint) []SwingPoint {
	if len(pivots) == 0 {
		return nil
	}

	structure := make([]SwingPoint, 0, len(pivots))
	structure = append(structure, pivots[0])

	for _, p := range pivots[1:] {
		last := structure[len(structure)-1]
		if p.Type != last.Type {
			structure = append(structure, p)
			continue
		}
		if (p.Type == SwingHigh && p.Price > last.Price) ||
			(p.Type == SwingLow && p.Price < last.Price) {
			structure[len(structure)-1] = p
		}
	}
	return structure
}
