package template

import "testing"

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		tpl  string
		data map[string]string
		want string
	}{
		{
			name: "basic substitution",
			tpl:  "Hi {{name}}, code {{code}}",
			data: map[string]string{"name": "Jane", "code": "DEF456"},
			want: "Hi Jane, code DEF456",
		},
		{
			name: "unmatched placeholder left verbatim",
			tpl:  "Hi {{name}}, your plan is {{plan}}",
			data: map[string]string{"name": "Jane"},
			want: "Hi Jane, your plan is {{plan}}",
		},
		{
			name: "no placeholders",
			tpl:  "plain text",
			data: map[string]string{"name": "Jane"},
			want: "plain text",
		},
		{
			name: "nil data",
			tpl:  "Hi {{name}}",
			data: nil,
			want: "Hi {{name}}",
		},
		{
			name: "empty template",
			tpl:  "",
			data: map[string]string{"name": "Jane"},
			want: "",
		},
		{
			name: "repeated placeholder",
			tpl:  "{{x}} and {{x}}",
			data: map[string]string{"x": "y"},
			want: "y and y",
		},
		{
			name: "substituted value is not re-scanned",
			tpl:  "{{a}}",
			data: map[string]string{"a": "{{b}}", "b": "nope"},
			want: "{{b}}",
		},
		{
			name: "non-word identifiers are not placeholders",
			tpl:  "{{first name}} {{name}}",
			data: map[string]string{"name": "Jane"},
			want: "{{first name}} Jane",
		},
		{
			name: "empty value substitutes to empty",
			tpl:  "[{{gone}}]",
			data: map[string]string{"gone": ""},
			want: "[]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Render(tt.tpl, tt.data)
			if got != tt.want {
				t.Errorf("Render(%q) = %q, want %q", tt.tpl, got, tt.want)
			}
		})
	}
}

func TestRenderReferentiallyTransparent(t *testing.T) {
	tpl := "Hello {{name}}, {{missing}}"
	data := map[string]string{"name": "Sam"}

	first := Render(tpl, data)
	second := Render(tpl, data)
	if first != second {
		t.Errorf("repeated renders differ: %q vs %q", first, second)
	}
	if data["name"] != "Sam" || len(data) != 1 {
		t.Errorf("Render mutated its input data: %v", data)
	}
}

func TestMerge(t *testing.T) {
	shared := map[string]string{"company": "Ignite", "name": "Customer"}
	override := map[string]string{"name": "Jane"}

	merged := Merge(shared, override)

	if merged["name"] != "Jane" {
		t.Errorf("override key lost: got %q, want %q", merged["name"], "Jane")
	}
	if merged["company"] != "Ignite" {
		t.Errorf("shared key lost: got %q", merged["company"])
	}
	if shared["name"] != "Customer" {
		t.Errorf("Merge mutated shared map: %v", shared)
	}
}

func TestMergeThroughRender(t *testing.T) {
	shared := map[string]string{"greeting": "Hello", "name": "there"}
	recipient := map[string]string{"name": "Jane"}

	got := Render("{{greeting}} {{name}}", Merge(shared, recipient))
	if got != "Hello Jane" {
		t.Errorf("got %q, want %q", got, "Hello Jane")
	}
}
