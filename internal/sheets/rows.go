package sheets

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
)

const dateLayout = "2006-01-02"

// Header is the first row of the mirror sheet.
var Header = []any{"ID", "Date", "Month", "Description", "Category", "Type", "Amount", "Auto"}

// ColumnRange is the A1 column span covered by Header.
const ColumnRange = "A:H"

// ToRow renders t in Header order. Amounts are signed so the sheet can sum a
// column into a balance.
func ToRow(t core.Transaction) []any {
	amount := t.Amount
	if t.IsExpense() {
		amount = amount.Neg()
	}
	return []any{
		t.ID,
		t.Date.Format(dateLayout),
		string(core.MonthOf(t.Date)),
		literal(t.Description),
		literal(t.Category),
		string(t.Type),
		amount.String(),
		strconv.FormatBool(t.AutoCategorized),
	}
}

// literal keeps user text from being evaluated when rows are written with
// USER_ENTERED: a leading quote marks the cell as plain text.
func literal(s string) string {
	if startsFormula(s) {
		return "'" + s
	}
	return s
}

// unliteral undoes literal for rows read back without the Sheets API, which
// hides the quote itself.
func unliteral(s string) string {
	if rest, ok := strings.CutPrefix(s, "'"); ok && startsFormula(rest) {
		return rest
	}
	return s
}

func startsFormula(s string) bool {
	return s != "" && strings.ContainsRune("=+-@", rune(s[0]))
}

// FromRow parses a row written by ToRow. Values read back from the Sheets
// API arrive as strings or numbers depending on the cell format.
func FromRow(row []any) (core.Transaction, error) {
	cols := make([]string, len(Header))
	for i := range cols {
		if i < len(row) {
			cols[i] = strings.TrimSpace(fmt.Sprint(row[i]))
		}
	}
	if cols[0] == "" {
		return core.Transaction{}, fmt.Errorf("row without id")
	}

	date, err := time.Parse(dateLayout, cols[1])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row %s: date %q: %w", cols[0], cols[1], err)
	}
	typ, err := core.ParseTransactionType(cols[5])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row %s: %w", cols[0], err)
	}
	amount, err := core.ParseMoney(strings.ReplaceAll(cols[6], ",", "."))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row %s: %w", cols[0], err)
	}
	if amount.IsNegative() {
		amount = amount.Neg()
	}
	auto, _ := strconv.ParseBool(cols[7])

	return core.Transaction{
		ID:              cols[0],
		Date:            date,
		Description:     unliteral(cols[3]),
		Category:        unliteral(cols[4]),
		Type:            typ,
		Amount:          amount,
		AutoCategorized: auto,
	}, nil
}

// FindRow returns the 1-based sheet row whose first cell equals id, or 0.
// rows is the column A read starting at row 1.
func FindRow(rows [][]any, id string) int {
	for i, r := range rows {
		if len(r) > 0 && strings.TrimSpace(fmt.Sprint(r[0])) == id {
			return i + 1
		}
	}
	return 0
}

// IDs extracts the ids from column A, skipping the header and blanks.
func IDs(rows [][]any) []string {
	out := make([]string, 0, len(rows))
	for i, r := range rows {
		if len(r) == 0 {
			continue
		}
		v := strings.TrimSpace(fmt.Sprint(r[0]))
		if v == "" || (i == 0 && v == Header[0]) {
			continue
		}
		out = append(out, v)
	}
	return out
}
