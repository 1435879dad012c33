package reports

import (
	"regexp"

	"kopilka/internal/core"
)

// personName matches "Name I." anywhere in the text. Go's \b and \s are ASCII only,
// so the boundary and the separator are spelled out with Unicode classes.
var personName = regexp.MustCompile(`(?:^|[^\p{L}\p{N}_])\p{Lu}\p{Ll}+[\s\p{Z}]\p{Lu}\.`)

// IsPersonName reports whether description looks like a transfer to a person.
func IsPersonName(description string) bool {
	return personName.MatchString(description)
}

// TransfersToPersons keeps transfers whose description names a person, in source order.
func TransfersToPersons(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, 0)
	for _, tx := range txs {
		if tx.Category == core.CategoryTransfers && IsPersonName(tx.Description) {
			out = append(out, tx)
		}
	}
	return out
}
