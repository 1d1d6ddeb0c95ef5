package fallback

import (
	"strings"

	"github.com/facturaIA/hoadon-extractor/internal/money"
)

// fillerWords carry no value in an amount written out in words.
var fillerWords = map[string]bool{
	"đồng": true, "dong": true, "chẵn": true, "chan": true, "chấn": true,
	"lẻ": true, "le": true, "và": true, "va": true,
}

var digitWords = map[string]int64{
	"không": 0, "một": 1, "mot": 1, "mốt": 1, "hai": 2, "ba": 3,
	"bốn": 4, "bon": 4, "tư": 4, "năm": 5, "nam": 5, "lăm": 5,
	"sáu": 6, "sau": 6, "bảy": 7, "bay": 7, "tám": 8, "tam": 8,
	"chín": 9, "chin": 9, "linh": 0,
}

var scaleWords = map[string]int64{
	"nghìn": 1000, "nghin": 1000, "ngàn": 1000, "ngan": 1000,
	"triệu": 1000000, "trieu": 1000000,
	"tỷ": 1000000000, "ty": 1000000000, "tỉ": 1000000000,
}

// ParseWords reads an amount spelled out in Vietnamese, as printed on the
// "bằng chữ" line: "bảy trăm nghìn đồng" is 700000. Unknown words are
// skipped, so OCR noise lowers the value rather than failing.
func ParseWords(text string) money.VND {
	var result, hundreds, pending int64

	flush := func(multiplier int64) {
		result += (hundreds + pending) * multiplier
		hundreds, pending = 0, 0
	}

	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,;:!-")
		if fillerWords[tok] {
			continue
		}
		if d, ok := digitWords[tok]; ok {
			pending = d
			continue
		}
		if scale, ok := scaleWords[tok]; ok {
			// "nghìn" alone reads as one thousand
			if hundreds == 0 && pending == 0 {
				pending = 1
			}
			flush(scale)
			continue
		}
		switch tok {
		case "mười", "muoi", "mươi":
			if pending == 0 {
				hundreds += 10
			} else {
				hundreds += pending * 10
				pending = 0
			}
		case "trăm", "tram":
			hundreds += pending * 100
			pending = 0
		}
	}
	flush(1)
	return money.VND(result)
}
