// Package rendertype classifies field render types by the JSON-LD shape of
// the values they store.
package rendertype

import "fmt"

// Class is the JSON-LD value shape of a render type.
type Class int

const (
	Unknown Class = iota
	Literal       // plain scalar, no context entry
	ID            // IRI reference, {"@type": "@id"}
	Set           // {"@container": "@set"}
	List          // {"@container": "@list"}
	Object        // nested object, no context entry
)

func (c Class) String() string {
	switch c {
	case Literal:
		return "literal"
	case ID:
		return "id"
	case Set:
		return "set"
	case List:
		return "list"
	case Object:
		return "object"
	}
	return "unknown"
}

// Value modes.
const (
	ValueDirect = "Value_direct"
	ValueEntity = "Value_entity"
	ValueField  = "Value_field"
	ValueImport = "Value_import"
	ValueUpload = "Value_upload"
)

var classes = map[string]Class{
	"Text":         Literal,
	"Textarea":     Literal,
	"Codearea":     Literal,
	"Markdown":     Literal,
	"ShowMarkdown": Literal,
	"Showmarkdown": Literal,
	"Showtext":     Literal,
	"Placement":    Literal,
	"CheckBox":     Literal,
	"Slug":         Literal,
	"EntityId":     Literal,
	"EntityTypeId": Literal,
	"Identifier":   Literal,
	"LangText":     Literal,

	"EntityRef":       ID,
	"Enum":            ID,
	"Enum_optional":   ID,
	"Enum_choice":     ID,
	"Enum_choice_opt": ID,
	"Type":            ID,
	"View":            ID,
	"List":            ID,
	"Field":           ID,
	"URILink":         ID,
	"URIImage":        ID,
	"RefAudio":        ID,
	"RefImage":        ID,
	"RefMultifield":   ID,

	"TokenSet":      Set,
	"Group_Set":     Set,
	"Group_Set_Row": Set,

	"Group_Seq":      List,
	"Group_Seq_Row":  List,
	"RepeatGroup":    List,
	"RepeatGroupRow": List,
	"RepeatListRow":  List,

	"URIImport":  Object,
	"FileUpload": Object,
}

var repeatTypes = map[string]bool{
	"RepeatGroup":    true,
	"RepeatGroupRow": true,
	"RepeatListRow":  true,
	"Group_Seq":      true,
	"Group_Seq_Row":  true,
	"Group_Set":      true,
	"Group_Set_Row":  true,
}

// Legacy repeat render type names and their current equivalents.
var repeatAliases = map[string]string{
	"RepeatGroup":    "Group_Seq",
	"RepeatGroupRow": "Group_Seq_Row",
	"RepeatListRow":  "Group_Seq_Row",
}

// Of returns the class of a render type, or Unknown.
func Of(renderType string) Class {
	return classes[renderType]
}

// IsRepeat reports whether a render type displays a repeating field group.
func IsRepeat(renderType string) bool {
	return repeatTypes[renderType]
}

// Canonical maps legacy repeat render type names to their current names.
func Canonical(renderType string) string {
	if c, ok := repeatAliases[renderType]; ok {
		return c
	}
	return renderType
}

// Effective returns the render type used to classify a field once its value
// mode is taken into account.
func Effective(renderType, valueMode string) string {
	switch valueMode {
	case ValueEntity, ValueField:
		return "Enum"
	case ValueImport:
		return "URIImport"
	case ValueUpload:
		return "FileUpload"
	}
	return renderType
}

// ModeError reports a render type and value mode pair with no known value
// shape.
type ModeError struct {
	RenderType string
	ValueMode  string
}

func (e *ModeError) Error() string {
	return fmt.Sprintf("unexpected value mode or render type (%s, %s)", e.ValueMode, e.RenderType)
}

// Classify returns the value class for a field's render type and value mode.
func Classify(renderType, valueMode string) (Class, error) {
	c := Of(Effective(renderType, valueMode))
	if c == Unknown {
		return Unknown, &ModeError{RenderType: renderType, ValueMode: valueMode}
	}
	return c, nil
}

// Known returns every classified render type.
func Known() []string {
	out := make([]string, 0, len(classes))
	for k := range classes {
		out = append(out, k)
	}
	return out
}
