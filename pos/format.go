package pos

import "strconv"

// FormatCurrency renders whole currency units with dot thousand
// separators, the es-CL convention of the storefront ("$1.234"). Currencies
// other than CLP get the same treatment with their code prefixed, which is
// all the terminal UI needs.
func FormatCurrency(amount int64, code string) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	digits := strconv.FormatInt(amount, 10)
	var out []byte
	for i, d := range []byte(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, d)
	}

	prefix := "$"
	if code != "" && code != "CLP" {
		prefix = code + " $"
	}
	if negative {
		return "-" + prefix + string(out)
	}
	return prefix + string(out)
}
