package fields

import (
	"fmt"
	"regexp"
	"strconv"
)

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)Ngày\s*(\d{1,2})\s*tháng\s*(\d{1,2})\s*năm\s*(\d{4})`),
	regexp.MustCompile(`(?is)Ngày\s*(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{4})`),
	regexp.MustCompile(`(?is)(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{4})`),
	// parts split over lines or separated by bilingual captions
	regexp.MustCompile(`(?is)Ngày[:\s]*(\d{1,2})[\s\S]{0,100}tháng[:\s]*(\d{1,2})[\s\S]{0,100}năm[:\s]*(\d{4})`),
	regexp.MustCompile(`(?is)Ngày(?:[^0-9]{0,35})?(\d{1,2})[\s\S]{0,35}tháng(?:[^0-9]{0,35})?(\d{1,2})[\s\S]{0,35}năm(?:[^0-9]{0,35})?(\d{4})`),
}

func dateRules() []Rule {
	rules := make([]Rule, len(datePatterns))
	for i, re := range datePatterns {
		re := re
		rules[i] = Rule{
			Name: fmt.Sprintf("date/%d", i+1),
			Apply: func(d *Document, _ Values) []Match {
				for _, m := range re.FindAllStringSubmatch(d.Text, -1) {
					if date, ok := FormatDate(m[1], m[2], m[3]); ok {
						return one(Date, date)
					}
				}
				return nil
			},
		}
	}
	return rules
}

// FormatDate renders day, month and year as dd/mm/yyyy. Out of range parts fail.
func FormatDate(day, month, year string) (string, bool) {
	dd, err1 := strconv.Atoi(day)
	mm, err2 := strconv.Atoi(month)
	if err1 != nil || err2 != nil || dd < 1 || dd > 31 || mm < 1 || mm > 12 {
		return "", false
	}
	return fmt.Sprintf("%02d/%02d/%s", dd, mm, year), true
}
