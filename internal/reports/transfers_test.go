package reports

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"kopilka/internal/core"
)

func TestIsPersonName(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"Константин Л.", true},
		{"Иван П.", true},
		{"Перевод для Валерий А.", true},
		{"Ivan P.", true},
		{"Ёжиков Ё.", true},
		{"Иван\u00a0П.", true},
		{"Иван\u2009П.", true},
		{"Константин Л", false},
		{"константин Л.", false},
		{"Константин Лебедев", false},
		{"ИП Константин", false},
		{"Перевод с карты", false},
		{"xКонстантин Л.", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsPersonName(tc.in); got != tc.want {
			t.Errorf("IsPersonName(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestTransfersToPersons(t *testing.T) {
	txs := []core.Transaction{
		{OperationDate: at(2021, time.December, 31, 0), Amount: dec("-800"), Category: core.CategoryTransfers, Description: "Константин Л."},
		{OperationDate: at(2021, time.December, 30, 0), Amount: dec("-100"), Category: "Супермаркеты", Description: "Иван П."},
		{OperationDate: at(2021, time.December, 30, 0), Amount: dec("-20000"), Category: core.CategoryTransfers, Description: "Иван П."},
		{OperationDate: at(2021, time.December, 29, 0), Amount: dec("-5"), Category: core.CategoryTransfers, Description: "Перевод на вклад"},
	}
	got := TransfersToPersons(txs)
	if len(got) != 2 {
		t.Fatalf("expected 2 transfers, got %d", len(got))
	}
	assertDec(t, "first", got[0].Amount, "-800")
	assertDec(t, "second", got[1].Amount, "-20000")

	raw, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), "Константин Л.") {
		t.Fatalf("non-ASCII text should survive: %s", raw)
	}
}

func TestTransfersToPersonsEmpty(t *testing.T) {
	got := TransfersToPersons(nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}
