package wtwd

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"thermite-middleware/lib/htmlutil"
	"thermite-middleware/lib/scraper"
	"thermite-middleware/lib/textutil"
	"thermite-middleware/lib/tire"

	"github.com/PuerkitoBio/goquery"
)

// TableLocator finds the results grid in a search page, Find returns an
// empty selection when the locator does not apply.
type TableLocator struct {
	Name string
	Find func(doc *goquery.Document) *goquery.Selection
}

// TableLocators are tried in order, the first one to find a table wins.
var TableLocators = []TableLocator{
	{
		Name: "grid id",
		Find: func(doc *goquery.Document) *goquery.Selection {
			return doc.Find(`table[id*="ItemGridView"]`).First()
		},
	},
	{
		Name: "grid class",
		Find: func(doc *goquery.Document) *goquery.Selection {
			return doc.Find("table.rgMasterTable").First()
		},
	},
	{
		Name: "radgrid class",
		Find: func(doc *goquery.Document) *goquery.Selection {
			return doc.Find("table").FilterFunction(func(_ int, table *goquery.Selection) bool {
				return textutil.ContainsAny(table.AttrOr("class", ""), "radgrid")
			}).First()
		},
	},
}

// LocateTable returns the results grid of a search page, if there is one.
func LocateTable(doc *goquery.Document) (*goquery.Selection, bool) {
	for _, locator := range TableLocators {
		table := locator.Find(doc)
		if table.Length() > 0 {
			return table, true
		}
	}
	return nil, false
}

// CandidateRows returns the rows of the grid that may hold a listing. The
// grid tags its data rows with rgRow / rgAltRow, when it doesn't every row
// that isn't a header or a "no records" placeholder is a candidate.
func CandidateRows(table *goquery.Selection) *goquery.Selection {
	body := table.Find("tbody").First()
	if body.Length() == 0 {
		body = table
	}

	rows := body.Find("tr.rgRow, tr.rgAltRow")
	if rows.Length() > 0 {
		return rows
	}
	return body.Find("tr").FilterFunction(func(_ int, row *goquery.Selection) bool {
		if row.Find("th").Length() > 0 {
			return false
		}
		return !textutil.ContainsAny(row.Text(), "no records")
	})
}

// Layout is the cell index of each column in the results grid.
type Layout struct {
	Part         int
	Description  int
	Size         int
	Manufacturer int
	Price        int
	Availability int
}

// DefaultLayout is the grid as the portal currently renders it:
// [0]=icon, [1]=part #, [2]=description, [3]=size, [4]=manufacturer,
// [5]=FET, [6]=price, [7]=availability
var DefaultLayout = Layout{
	Part:         1,
	Description:  2,
	Size:         3,
	Manufacturer: 4,
	Price:        6,
	Availability: 7,
}

// Row is the text of each cell of a result row that matters.
type Row struct {
	Part         string
	Description  string
	Size         string
	Manufacturer string
	Price        string
	Availability string
}

// ReadRow reads the cells of a row, a cell that does not exist is empty.
func ReadRow(row *goquery.Selection, layout Layout) Row {
	cells := row.ChildrenFiltered("td")
	text := func(i int) string {
		if i < 0 || i >= cells.Length() {
			return ""
		}
		return htmlutil.StrippedText(cells.Eq(i))
	}
	return Row{
		Part:         text(layout.Part),
		Description:  text(layout.Description),
		Size:         text(layout.Size),
		Manufacturer: text(layout.Manufacturer),
		Price:        text(layout.Price),
		Availability: text(layout.Availability),
	}
}

var pricePattern = regexp.MustCompile(`\$\s*[\d,]+(?:\.\d{2})?`)

// ExtractPrice looks for a dollar amount in the price cell then the
// description, it is 0 when there is none.
func ExtractPrice(priceCell, description string) float64 {
	for _, text := range []string{priceCell, description} {
		found := pricePattern.FindString(text)
		if found == "" {
			continue
		}
		cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(found)
		price, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64)
		if err != nil {
			return 0
		}
		return price
	}
	return 0
}

// ExtractStock concatenates every digit in the availability cell,
// "In Stock: 14" -> 14.
func ExtractStock(availability string) int {
	var digits strings.Builder
	for _, r := range availability {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	stock, err := strconv.Atoi(digits.String())
	if err != nil {
		return 0
	}
	return stock
}

// Brand is the manufacturer, or the first word of the description.
func (r Row) Brand() string {
	if r.Manufacturer != "" {
		return r.Manufacturer
	}
	words := strings.Fields(r.Description)
	if len(words) > 0 {
		return words[0]
	}
	return tire.Unknown
}

// Model is the description, or the part number.
func (r Row) Model() string {
	if r.Description != "" {
		return r.Description
	}
	return r.Part
}

// Tire normalizes the row, a row without a recognizable price fails
// validation like any other malformed listing.
func (r Row) Tire() (tire.Tire, error) {
	return tire.New(
		r.Brand(),
		r.Model(),
		ExtractSize(r.Size, r.Description),
		ExtractPrice(r.Price, r.Description),
		ExtractStock(r.Availability),
	)
}

// ParseRows turns every candidate row of a grid into an outcome.
func ParseRows(table *goquery.Selection, layout Layout) []scraper.Outcome {
	rows := CandidateRows(table)
	outcomes := make([]scraper.Outcome, 0, rows.Length())
	rows.Each(func(i int, row *goquery.Selection) {
		t, err := ReadRow(row, layout).Tire()
		if err != nil {
			outcomes = append(outcomes, scraper.Failed(i, err))
			return
		}
		outcomes = append(outcomes, scraper.Ok(i, t))
	})
	return outcomes
}
