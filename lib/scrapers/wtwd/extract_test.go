package wtwd

import (
	"strings"
	"testing"

	"thermite-middleware/lib/tire"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parse(t testing.TB, page string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)
	return doc
}

func gridRow(class string, cells ...string) string {
	var row strings.Builder
	row.WriteString(`<tr class="` + class + `">`)
	for _, c := range cells {
		row.WriteString("<td>" + c + "</td>")
	}
	row.WriteString("</tr>")
	return row.String()
}

func TestExtractPrice(t *testing.T) {
	require.Equal(t, 123.45, ExtractPrice("$123.45", ""))
	require.Equal(t, 1234.5, ExtractPrice("$ 1,234.50", ""))
	require.Equal(t, 98.0, ExtractPrice("$98", ""))
	require.Equal(t, 77.1, ExtractPrice("call", "special $77.10 each"))
	require.Equal(t, 0.0, ExtractPrice("call for price", "none"))
	require.Equal(t, 0.0, ExtractPrice("", ""))
}

func TestExtractStock(t *testing.T) {
	require.Equal(t, 14, ExtractStock("In Stock: 14"))
	require.Equal(t, 0, ExtractStock("Out of stock"))
	require.Equal(t, 0, ExtractStock(""))
	require.Equal(t, 24, ExtractStock("2 4"))
}

func TestLocateTable(t *testing.T) {
	table := []struct {
		name  string
		page  string
		found string
	}{
		{
			name:  "grid id",
			page:  `<table id="other"></table><table id="dnn_ctr_ItemGridView_ctl00" class="rgMasterTable"></table>`,
			found: "dnn_ctr_ItemGridView_ctl00",
		},
		{
			name:  "grid class",
			page:  `<table id="a"></table><table id="b" class="x rgMasterTable"></table>`,
			found: "b",
		},
		{
			name:  "radgrid class",
			page:  `<table id="a"></table><table id="c" class="RadGrid_Default"></table>`,
			found: "c",
		},
	}

	for _, row := range table {
		t.Run(row.name, func(t *testing.T) {
			found, ok := LocateTable(parse(t, row.page))
			require.True(t, ok)
			require.Equal(t, row.found, found.AttrOr("id", ""))
		})
	}

	_, ok := LocateTable(parse(t, `<table id="layout"><tr><td>nothing</td></tr></table>`))
	require.False(t, ok)
}

func TestCandidateRows(t *testing.T) {
	doc := parse(t, `<table class="rgMasterTable">
		<thead><tr><th>Part</th></tr></thead>
		<tbody>
			`+gridRow("rgRow", "", "A")+`
			`+gridRow("rgAltRow", "", "B")+`
			`+gridRow("rgPager", "", "1 2 3")+`
		</tbody>
	</table>`)
	rows := CandidateRows(doc.Find("table"))
	require.Equal(t, 2, rows.Length())

	doc = parse(t, `<table class="rgMasterTable">
		<tr><th>Part</th></tr>
		<tr><td>P1</td></tr>
		<tr><td>No records to display.</td></tr>
		<tr><td>P2</td></tr>
	</table>`)
	rows = CandidateRows(doc.Find("table"))
	require.Equal(t, 2, rows.Length())
	require.Equal(t, "P1", rows.Eq(0).Text())
	require.Equal(t, "P2", rows.Eq(1).Text())
}

func TestReadRow(t *testing.T) {
	doc := parse(t, `<table>`+gridRow(
		"rgRow",
		`<img src="tire.png"/>`,
		"NX123",
		"<span>NEXEN</span> <span>N5000 PLUS</span>",
		"225/45R17",
		"Nexen",
		"$1.50",
		"$89.99",
		"In Stock: 14",
	)+`</table>`)

	row := ReadRow(doc.Find("tr"), DefaultLayout)
	require.Equal(t, Row{
		Part:         "NX123",
		Description:  "NEXEN N5000 PLUS",
		Size:         "225/45R17",
		Manufacturer: "Nexen",
		Price:        "$89.99",
		Availability: "In Stock: 14",
	}, row)

	parsed, err := row.Tire()
	require.NoError(t, err)
	require.Equal(t, tire.Tire{
		Brand: "Nexen",
		Model: "NEXEN N5000 PLUS",
		Size:  "225/45R17",
		Price: 89.99,
		Stock: 14,
	}, parsed)
}

func TestReadRowShort(t *testing.T) {
	doc := parse(t, `<table>`+gridRow("rgRow", "", "NX123", "Hankook Ventus 2756520 $120.00")+`</table>`)

	row := ReadRow(doc.Find("tr"), DefaultLayout)
	require.Equal(t, "", row.Size)
	require.Equal(t, "", row.Availability)

	parsed, err := row.Tire()
	require.NoError(t, err)
	require.Equal(t, tire.Tire{
		Brand: "Hankook",
		Model: "Hankook Ventus 2756520 $120.00",
		Size:  "275/65R20",
		Price: 120,
		Stock: 0,
	}, parsed)
}

func TestRowFallbacks(t *testing.T) {
	require.Equal(t, tire.Unknown, Row{}.Brand())
	require.Equal(t, "P1", Row{Part: "P1"}.Model())
	require.Equal(t, "Acme", Row{Description: "Acme X1"}.Brand())
}

func TestParseRows(t *testing.T) {
	doc := parse(t, `<table class="rgMasterTable"><tbody>`+
		gridRow("rgRow", "", "P1", "Acme X1", "225/45R17", "Acme", "", "$89.99", "5")+
		gridRow("rgAltRow", "", "P2", "Acme X2", "225/45R17", "Acme", "", "Call", "5")+
		gridRow("rgRow", "", "P3", "Acme X3", "22545", "Acme", "", "$10.00", "5")+
		`</tbody></table>`)

	outcomes := ParseRows(doc.Find("table"), DefaultLayout)
	require.Len(t, outcomes, 3)
	require.NoError(t, outcomes[0].Err)
	require.Equal(t, "Acme X1", outcomes[0].Tire.Model)

	// no price
	require.Error(t, outcomes[1].Err)
	// no strategy recognizes the size and the raw cell has no separator
	require.Error(t, outcomes[2].Err)
}
