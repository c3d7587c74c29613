package timeline

import "annotcore/internal/annotation"

// Line is one row of a laid-out grid. Cells holds one entry per level; nil
// cells are padding.
type Line struct {
	Key   annotation.RealTime
	Cells []*Row
}

// Grid is the merged timeline laid out for display.
type Grid struct {
	Levels int
	Lines  []Line
}

// Layout groups merged rows into time buckets (rows sharing a key) and
// gives every bucket as many lines as its busiest level needs. A level with
// fewer rows in the bucket is padded, so sparse levels stay level with
// dense ones. Rows whose Level is outside [0, nLevels) are dropped.
func Layout(rows []Row, nLevels int) Grid {
	grid := Grid{Levels: nLevels}
	for start := 0; start < len(rows); {
		key := rows[start].Key
		end := start
		for end < len(rows) && rows[end].Key == key {
			end++
		}
		perLevel := make([][]*Row, nLevels)
		height := 0
		for i := start; i < end; i++ {
			l := rows[i].Level
			if l < 0 || l >= nLevels {
				continue
			}
			perLevel[l] = append(perLevel[l], &rows[i])
			height = max(height, len(perLevel[l]))
		}
		for line := 0; line < height; line++ {
			cells := make([]*Row, nLevels)
			for l := range perLevel {
				if line < len(perLevel[l]) {
					cells[l] = perLevel[l][line]
				}
			}
			grid.Lines = append(grid.Lines, Line{Key: key, Cells: cells})
		}
		start = end
	}
	return grid
}
