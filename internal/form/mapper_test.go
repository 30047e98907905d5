package form

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentic-research/annalist/internal/model"
)

func TestParsePlacement(t *testing.T) {
	tests := []struct {
		in   string
		want Placement
	}{
		{"", Placement{"small-12 columns", "small-12 columns", "small-12 columns"}},
		{"small:0,12", Placement{"small-12 columns", "small-12 columns", "small-12 columns"}},
		{"small:0,12;medium:0,6", Placement{
			Field: "small-12 medium-6 columns",
			Label: "small-12 medium-4 columns",
			Value: "small-12 medium-8 columns",
		}},
		{"small:0,12;medium:6,6", Placement{
			Field: "small-12 medium-6 medium-offset-6 columns",
			Label: "small-12 medium-4 columns",
			Value: "small-12 medium-8 columns",
		}},
		{"small:0,12;medium:0,12", Placement{
			Field: "small-12 medium-12 columns",
			Label: "small-12 medium-2 columns",
			Value: "small-12 medium-10 columns",
		}},
		{"small:0,12;medium:9,3,right", Placement{
			Field: "small-12 medium-3 medium-offset-9 columns right",
			Label: "small-12 medium-8 columns",
			Value: "small-12 medium-4 columns",
		}},
		{"small:0,12;bogus", Placement{"small-12 columns", "small-12 columns", "small-12 columns"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePlacement(tt.in))
		})
	}
}

func TestMapperFor(t *testing.T) {
	assert.IsType(t, TextMapper{}, MapperFor("Text", "Value_direct"))
	assert.IsType(t, TokenSetMapper{}, MapperFor("TokenSet", "Value_direct"))
	assert.IsType(t, CheckBoxMapper{}, MapperFor("CheckBox", ""))
	assert.Equal(t, URIImportMapper, MapperFor("URIImport", ""))
	assert.Equal(t, URIImportMapper, MapperFor("Text", "Value_import"))
	assert.Equal(t, FileUploadMapper, MapperFor("FileUpload", "Value_upload"))
	assert.IsType(t, TextMapper{}, MapperFor("Enum", "Value_entity"))
}

func TestMappers(t *testing.T) {
	vals := model.Values{}

	TokenSetMapper{}.DecodeStore("  a b  c ", vals, "ex:tags")
	assert.Equal(t, []any{"a", "b", "c"}, vals["ex:tags"])
	assert.Equal(t, "a b c", TokenSetMapper{}.Encode(vals["ex:tags"]))

	CheckBoxMapper{}.DecodeStore("Yes", vals, "ex:flag")
	assert.Equal(t, true, vals["ex:flag"])
	assert.Equal(t, "Yes", CheckBoxMapper{}.Encode(true))
	assert.Equal(t, false, CheckBoxMapper{}.Decode(""))

	assert.Equal(t, "3", TextMapper{}.Encode(float64(3)))
	assert.Equal(t, "", TextMapper{}.Encode(nil))

	vals["ex:import"] = map[string]any{"import_url": "http://example.org/a", "resource_name": "a.txt"}
	URIImportMapper.DecodeStore("http://example.org/a", vals, "ex:import")
	assert.Equal(t, "a.txt", vals["ex:import"].(map[string]any)["resource_name"])
	URIImportMapper.DecodeStore("http://example.org/b", vals, "ex:import")
	assert.Equal(t, map[string]any{"import_url": "http://example.org/b"}, vals["ex:import"])
	assert.Equal(t, "http://example.org/b", URIImportMapper.Encode(vals["ex:import"]))
}
