package web

import (
	"net/url"
	"testing"

	"github.com/bcnelson/fulcrum-data-manager/internal/domain"
	"github.com/google/go-cmp/cmp"
)

func TestParseSetForm(t *testing.T) {
	tests := []struct {
		name   string
		values url.Values
		want   domain.SetForm
	}{
		{
			name:   "no aspects",
			values: url.Values{"name": {"Coffee"}},
			want:   domain.SetForm{Name: "Coffee", Aspects: []domain.Aspect{}},
		},
		{
			name: "blank values dropped and order by index",
			values: url.Values{
				"name":               {"Coffee"},
				"aspects[10].name":   {"Origin"},
				"aspects[10].values": {"Peru", "", "Kenya"},
				"aspects[2].name":    {"Roast"},
				"aspects[2].values":  {"Light", "Dark", " ", ""},
			},
			want: domain.SetForm{Name: "Coffee", Aspects: []domain.Aspect{
				{Name: "Roast", Values: []string{"Light", "Dark"}},
				{Name: "Origin", Values: []string{"Peru", "Kenya"}},
			}},
		},
		{
			name: "blank block skipped",
			values: url.Values{
				"name":              {"Coffee"},
				"aspects[0].name":   {""},
				"aspects[0].values": {"", ""},
				"aspects[1].name":   {""},
				"aspects[1].values": {"Only"},
			},
			want: domain.SetForm{Name: "Coffee", Aspects: []domain.Aspect{
				{Name: "", Values: []string{"Only"}},
			}},
		},
		{
			name: "named block without values kept",
			values: url.Values{
				"aspects[0].name": {"Roast"},
				"unrelated":       {"x"},
			},
			want: domain.SetForm{Name: "", Aspects: []domain.Aspect{
				{Name: "Roast", Values: []string{}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, parseSetForm(tt.values)); diff != "" {
				t.Errorf("parseSetForm() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseTagForm(t *testing.T) {
	got := parseTagForm(url.Values{"name": {"Morning"}, "setIds": {"s1", ""}})
	want := domain.TagForm{Name: "Morning", SetIDs: []string{"s1", ""}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("parseTagForm() mismatch (-want +got):\n%s", diff)
	}

	got = parseTagForm(url.Values{"name": {"Morning"}})
	if got.SetIDs == nil || len(got.SetIDs) != 0 {
		t.Errorf("expected empty set ids, got %#v", got.SetIDs)
	}
}

func TestFieldKey(t *testing.T) {
	if got := fieldKey(3, "values"); got != "aspects[3].values" {
		t.Errorf("fieldKey() = %q", got)
	}
}
