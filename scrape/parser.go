package scrape

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Row is one extracted staff entry before it is tagged with department and
// college by the scraper.
type Row struct {
	Name  string
	Major string
	Lab   string
	Phone string
	Email string
}

// Parser extracts staff rows from one page layout. Exactly one parser
// claims any given department.
type Parser interface {
	Support(dept Dept) bool
	Parse(doc *goquery.Document) []Row
}

// emailRe is the sanity check applied to every extracted row. Rows failing
// it are skipped and logged, not fatal.
var emailRe = regexp.MustCompile(`^[\w.+-]+@[\w-]+\.[\w.-]+$`)

// nonFacultyRe matches emeritus and on-leave markers; those rows are not
// current staff and are dropped before the email check.
var nonFacultyRe = regexp.MustCompile(`명예교수|휴직|퇴직|emeritus`)

// TableParser handles the standard table listing.
type TableParser struct {
	logger *slog.Logger
}

// NewTableParser creates the standard-table parser.
func NewTableParser(logger *slog.Logger) *TableParser {
	return &TableParser{logger: logger}
}

// Support claims the standard table layout.
func (p *TableParser) Support(dept Dept) bool {
	return dept.Layout == LayoutTable
}

// Parse walks the listing table rows: name, major, lab, phone, email
// columns in order.
func (p *TableParser) Parse(doc *goquery.Document) []Row {
	var rows []Row

	doc.Find("table.staff_list tbody tr").Each(func(_ int, tr *goquery.Selection) {
		if tr.Find("th").Length() > 0 {
			return // header row
		}
		if nonFacultyRe.MatchString(tr.Text()) {
			return
		}

		cells := tr.Find("td")
		if cells.Length() < 5 {
			return
		}

		row := Row{
			Name:  cellText(cells, 0),
			Major: cellText(cells, 1),
			Lab:   cellText(cells, 2),
			Phone: cellText(cells, 3),
			Email: cellText(cells, 4),
		}
		if !emailRe.MatchString(row.Email) {
			p.logger.Warn("Skipping staff row with invalid email", "name", row.Name, "email", row.Email)
			return
		}
		rows = append(rows, row)
	})

	return rows
}

func cellText(cells *goquery.Selection, i int) string {
	return strings.TrimSpace(cells.Eq(i).Text())
}

// DetailListParser handles the per-person definition-list layout used by
// the design departments.
type DetailListParser struct {
	logger *slog.Logger
}

// NewDetailListParser creates the detail-list parser.
func NewDetailListParser(logger *slog.Logger) *DetailListParser {
	return &DetailListParser{logger: logger}
}

// Support claims the detail-list layout.
func (p *DetailListParser) Support(dept Dept) bool {
	return dept.Layout == LayoutDetailList
}

// Parse walks one definition list per person; dt holds the field label and
// dd the value.
func (p *DetailListParser) Parse(doc *goquery.Document) []Row {
	var rows []Row

	doc.Find("div.professor").Each(func(_ int, person *goquery.Selection) {
		if nonFacultyRe.MatchString(person.Text()) {
			return
		}

		fields := make(map[string]string)
		person.Find("dl dt").Each(func(_ int, dt *goquery.Selection) {
			label := strings.TrimSpace(dt.Text())
			value := strings.TrimSpace(dt.NextFiltered("dd").Text())
			fields[label] = value
		})

		row := Row{
			Name:  fields["성명"],
			Major: fields["전공"],
			Lab:   fields["연구실"],
			Phone: fields["전화번호"],
			Email: fields["이메일"],
		}
		if !emailRe.MatchString(row.Email) {
			p.logger.Warn("Skipping staff row with invalid email", "name", row.Name, "email", row.Email)
			return
		}
		rows = append(rows, row)
	})

	return rows
}

// RealEstateParser handles the one-off listing layout of the real estate
// department. The page predates the other templates, so this parser walks
// the raw node tree instead of relying on stable selectors.
type RealEstateParser struct {
	logger *slog.Logger
}

// NewRealEstateParser creates the real-estate parser.
func NewRealEstateParser(logger *slog.Logger) *RealEstateParser {
	return &RealEstateParser{logger: logger}
}

// Support claims the real-estate layout.
func (p *RealEstateParser) Support(dept Dept) bool {
	return dept.Layout == LayoutRealEstate
}

// Parse traverses li items under the professor_list ul, collecting the
// classed spans inside each.
func (p *RealEstateParser) Parse(doc *goquery.Document) []Row {
	var rows []Row
	if len(doc.Nodes) == 0 {
		return nil
	}

	var inList bool
	var traverse func(n *html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.Data == "ul" && hasClass(n, "professor_list") {
				inList = true
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					traverse(c)
				}
				inList = false
				return
			}

			if inList && n.Data == "li" {
				row := Row{
					Name:  classedSpanText(n, "name"),
					Major: classedSpanText(n, "major"),
					Lab:   classedSpanText(n, "lab"),
					Phone: classedSpanText(n, "phone"),
					Email: classedSpanText(n, "email"),
				}
				if nonFacultyRe.MatchString(nodeText(n)) {
					return
				}
				if !emailRe.MatchString(row.Email) {
					p.logger.Warn("Skipping staff row with invalid email", "name", row.Name, "email", row.Email)
					return
				}
				rows = append(rows, row)
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc.Nodes[0])

	return rows
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" && strings.Contains(a.Val, class) {
			return true
		}
	}
	return false
}

func classedSpanText(n *html.Node, class string) string {
	if n.Type == html.ElementNode && n.Data == "span" && hasClass(n, class) {
		return nodeText(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if s := classedSpanText(c, class); s != "" {
			return s
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(b.String())
}
