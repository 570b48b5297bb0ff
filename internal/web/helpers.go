package web

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/bcnelson/fulcrum-data-manager/internal/domain"
)

var aspectFieldRe = regexp.MustCompile(`^aspects\[(\d+)\]\.(name|values)$`)

// fieldKey builds the validation field path for an aspect, e.g. aspects[2].values.
func fieldKey(index int, name string) string {
	return fmt.Sprintf("aspects[%d].%s", index, name)
}

// parseSetForm reads a set form posted as name, aspects[i].name and repeated
// aspects[i].values inputs. Blank value inputs are dropped and an aspect block
// whose name and values are all blank is skipped. Aspects keep the order of
// their indices.
func parseSetForm(values url.Values) domain.SetForm {
	type block struct {
		name   string
		values []string
	}
	blocks := make(map[int]*block)

	for key, vals := range values {
		m := aspectFieldRe.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		b, ok := blocks[idx]
		if !ok {
			b = &block{}
			blocks[idx] = b
		}
		switch m[2] {
		case "name":
			if len(vals) > 0 {
				b.name = vals[0]
			}
		case "values":
			for _, v := range vals {
				if strings.TrimSpace(v) != "" {
					b.values = append(b.values, v)
				}
			}
		}
	}

	indices := make([]int, 0, len(blocks))
	for idx := range blocks {
		indices = append(indices, idx)
	}
	slices.Sort(indices)

	form := domain.SetForm{Name: values.Get("name"), Aspects: []domain.Aspect{}}
	for _, idx := range indices {
		b := blocks[idx]
		if strings.TrimSpace(b.name) == "" && len(b.values) == 0 {
			continue
		}
		vals := b.values
		if vals == nil {
			vals = []string{}
		}
		form.Aspects = append(form.Aspects, domain.Aspect{Name: b.name, Values: vals})
	}
	return form
}

// parseTagForm reads a tag form posted as name and repeated setIds selects.
// Blank selections are kept so validation can flag them.
func parseTagForm(values url.Values) domain.TagForm {
	ids := values["setIds"]
	if ids == nil {
		ids = []string{}
	}
	return domain.TagForm{Name: values.Get("name"), SetIDs: ids}
}
