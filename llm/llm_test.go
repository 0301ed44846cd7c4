package llm

import (
	"errors"
	"strings"
	"testing"
)

type validated struct {
	Name string `json:"name"`
}

func (v *validated) Validate() error {
	if v.Name == "" {
		return errors.New("name required")
	}
	return nil
}

func TestDecodeJSON(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"bare object", `{"name": "ok"}`, "ok"},
		{"fenced", "```json\n{\"name\": \"ok\"}\n```", "ok"},
		{"fence without language", "```\n{\"name\": \"ok\"}\n```", "ok"},
		{"leading prose", "Sure, here is the result:\n{\"name\": \"ok\"}", "ok"},
		{"trailing prose", `{"name": "ok"} Hope that helps!`, "ok"},
	}
	for _, tc := range cases {
		var v validated
		if err := DecodeJSON(tc.raw, &v); err != nil {
			t.Errorf("%s: %v", tc.name, err)
			continue
		}
		if v.Name != tc.want {
			t.Errorf("%s: name = %q, want %q", tc.name, v.Name, tc.want)
		}
	}
}

func TestDecodeJSONErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"no json", "I cannot answer that."},
		{"broken json", `{"name": `},
		{"fails validation", `{"name": ""}`},
	}
	for _, tc := range cases {
		var v validated
		err := DecodeJSON(tc.raw, &v)
		if !errors.Is(err, ErrMalformedOutput) {
			t.Errorf("%s: err = %v, want ErrMalformedOutput", tc.name, err)
		}
	}
}

func TestDecodeJSONArray(t *testing.T) {
	var items []validated
	raw := "```json\n[{\"name\": \"a\"}, {\"name\": \"b\"}]\n```"
	if err := DecodeJSON(raw, &items); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if len(items) != 2 || items[0].Name != "a" || items[1].Name != "b" {
		t.Fatalf("got %+v", items)
	}
}

func TestWithSchema(t *testing.T) {
	schema := SchemaText(ObjectSchema(map[string]interface{}{
		"mood": StringEnumProperty("current mood", "happy", "sad"),
	}, "mood"))
	out := WithSchema("Classify the mood.", schema)
	for _, want := range []string{"Classify the mood.", "mood", "happy", "required"} {
		if !strings.Contains(out, want) {
			t.Errorf("prompt missing %q:\n%s", want, out)
		}
	}
}
