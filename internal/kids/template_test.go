package kids

import "testing"

func TestRender(t *testing.T) {
	f := Fields{
		ID: 12, Age: 7, Gender: "girl", Shelter: "AA",
		ShirtSize: "M", PantSize: "8", Color: "purple", Comments: "likes dinosaurs",
	}
	cases := []struct {
		tmpl string
		want string
	}{
		{"{{shelter}}-{{id}}: {{age}} year old {{gender}}", "AA-12: 7 year old girl"},
		{"Shirt {{ shirt_size }}, pants {{pant_size}}, {{color}}", "Shirt M, pants 8, purple"},
		{"Wish: {{comments}}", "Wish: likes dinosaurs"},
		{"no placeholders", "no placeholders"},
		{"{{unknown}} stays", "{{unknown}} stays"},
		{"{{constructor.constructor}}", "{{constructor.constructor}}"},
		{"open {{age", "open {{age"},
		{"", ""},
	}
	for _, c := range cases {
		if got := Render(c.tmpl, f); got != c.want {
			t.Errorf("Render(%q) = %q, want %q", c.tmpl, got, c.want)
		}
	}
}

func TestRenderDoesNotRescanValues(t *testing.T) {
	f := Fields{Comments: "{{age}}", Age: 5}
	if got := Render("{{comments}}", f); got != "{{age}}" {
		t.Errorf("Render = %q, want literal {{age}}", got)
	}
}
