package sourcemap

import (
	"embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed data/map.schema.json data/entry.schema.json
var schemaFS embed.FS

var (
	mapSchema   = mustSchema("data/map.schema.json")
	entrySchema = mustSchema("data/entry.schema.json")
)

func mustSchema(name string) *gojsonschema.Schema {
	data, err := schemaFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("read embedded schema %s: %v", name, err))
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		panic(fmt.Sprintf("compile embedded schema %s: %v", name, err))
	}
	return schema
}

// validateDocument checks that data is a JSON object keyed by skill names.
// Entry contents are checked separately.
func validateDocument(data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("not valid JSON")
	}
	result, err := mapSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

// validateEntry checks one entry against the entry schema.
//
// Returns:
//   - string: the offending field, empty for whole-entry problems
//   - string: the problem, empty when the entry is valid
func validateEntry(msg json.RawMessage) (field, problem string) {
	result, err := entrySchema.Validate(gojsonschema.NewBytesLoader(msg))
	if err != nil {
		return "", err.Error()
	}
	if result.Valid() {
		return "", ""
	}

	first := result.Errors()[0]
	field = first.Field()
	if field == gojsonschema.STRING_CONTEXT_ROOT || field == "" {
		field = ""
		if p, ok := first.Details()["property"].(string); ok {
			field = p
		}
	}
	switch {
	case first.Type() == "required":
		problem = "is required"
	case field == "repo" && first.Type() == "pattern":
		problem = "must be OWNER/REPO"
	case field == "path" && first.Type() == "pattern":
		problem = "must not be empty"
	default:
		problem = first.Description()
	}
	return field, problem
}

// placeholderPatterns match values copied from templates and never edited.
var placeholderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^owner/repo$`),
	regexp.MustCompile(`^OWNER/REPO$`),
	regexp.MustCompile(`<[^>]*>`),
	regexp.MustCompile(`(?i)^your[-_]`),
	regexp.MustCompile(`(?i)^example/`),
	regexp.MustCompile(`TODO`),
	regexp.MustCompile(`(?i)^path/to/`),
	regexp.MustCompile(`(?i)replace[-_]?me`),
	regexp.MustCompile(`(?i)^x{3,}$`),
}

// IsPlaceholder reports whether value looks like an unedited template value.
//
// Returns:
//   - string: the matching pattern
//   - bool: true when value is a placeholder
func IsPlaceholder(value string) (string, bool) {
	for _, re := range placeholderPatterns {
		if re.MatchString(value) {
			return re.String(), true
		}
	}
	return "", false
}
