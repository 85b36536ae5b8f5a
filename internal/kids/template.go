package kids

import (
	"strconv"
	"strings"

	"github.com/dukerupert/signups/internal/model"
)

// Fields are the only values an event's kid templates can reference, as
// {{id}}, {{age}}, {{gender}}, {{shelter}}, {{shirt_size}}, {{pant_size}},
// {{color}} and {{comments}}.
type Fields struct {
	ID        int64
	Age       int
	Gender    string
	Shelter   string
	ShirtSize string
	PantSize  string
	Color     string
	Comments  string
}

// FieldsFor collects the template fields of a kid under the given shelter label.
func FieldsFor(k *model.Kid, shelterLabel string) Fields {
	return Fields{
		ID:        k.ID,
		Age:       k.Age,
		Gender:    k.Gender,
		Shelter:   shelterLabel,
		ShirtSize: k.ShirtSize,
		PantSize:  k.PantSize,
		Color:     k.Color,
		Comments:  k.Comments,
	}
}

func (f Fields) lookup(name string) (string, bool) {
	switch name {
	case "id":
		return strconv.FormatInt(f.ID, 10), true
	case "age":
		return strconv.Itoa(f.Age), true
	case "gender":
		return f.Gender, true
	case "shelter":
		return f.Shelter, true
	case "shirt_size":
		return f.ShirtSize, true
	case "pant_size":
		return f.PantSize, true
	case "color":
		return f.Color, true
	case "comments":
		return f.Comments, true
	}
	return "", false
}

// Render fills {{name}} placeholders in tmpl. Whitespace inside the braces is
// ignored; unknown names and unterminated braces are copied through untouched.
// Substituted values are inserted verbatim and never re-scanned.
func Render(tmpl string, f Fields) string {
	var b strings.Builder
	b.Grow(len(tmpl))
	for {
		open := strings.Index(tmpl, "{{")
		if open < 0 {
			b.WriteString(tmpl)
			return b.String()
		}
		end := strings.Index(tmpl[open+2:], "}}")
		if end < 0 {
			b.WriteString(tmpl)
			return b.String()
		}
		end += open + 2

		b.WriteString(tmpl[:open])
		name := strings.TrimSpace(tmpl[open+2 : end])
		if v, ok := f.lookup(name); ok {
			b.WriteString(v)
		} else {
			b.WriteString(tmpl[open : end+2])
		}
		tmpl = tmpl[end+2:]
	}
}
