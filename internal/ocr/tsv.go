package ocr

import (
	"strconv"
	"strings"
)

// TSV columns: level page_num block_num par_num line_num word_num
// left top width height conf text
const (
	tsvLevel = iota
	_
	_
	_
	_
	_
	tsvLeft
	tsvTop
	tsvWidth
	tsvHeight
	tsvConf
	tsvText
	tsvColumns
)

// parseTSV returns the word rows and the page size from the level-1 row.
func parseTSV(out string) (words []Word, width, height int) {
	for i, ln := range strings.Split(out, "\n") {
		if i == 0 || ln == "" {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < tsvColumns-1 {
			continue
		}
		switch cols[tsvLevel] {
		case "1":
			if width == 0 {
				width = atoi(cols[tsvWidth])
				height = atoi(cols[tsvHeight])
			}
		case "5":
			if len(cols) < tsvColumns {
				continue
			}
			text := strings.TrimSpace(cols[tsvText])
			conf, err := strconv.ParseFloat(cols[tsvConf], 64)
			if text == "" || err != nil || conf < 0 {
				continue
			}
			words = append(words, Word{
				Text:       text,
				Left:       float64(atoi(cols[tsvLeft])),
				Top:        float64(atoi(cols[tsvTop])),
				Width:      float64(atoi(cols[tsvWidth])),
				Height:     float64(atoi(cols[tsvHeight])),
				Confidence: conf / 100,
			})
		}
	}
	return words, width, height
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
