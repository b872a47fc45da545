package models

// AnyFilter is the sentinel filter value meaning "no filter on this dimension".
// It never collides with a reference item name.
const AnyFilter = "any"

// QueryInput is the controlled state of the search form.
type QueryInput struct {
	Century        string `json:"century"`
	Classification string `json:"classification"`
	QueryString    string `json:"queryString"`
}

// DefaultQueryInput returns the form state at mount: empty text, both filters "any".
func DefaultQueryInput() QueryInput {
	return QueryInput{
		Century:        AnyFilter,
		Classification: AnyFilter,
	}
}

// IsFiltered reports whether value narrows its dimension.
func IsFiltered(value string) bool {
	return value != AnyFilter
}
