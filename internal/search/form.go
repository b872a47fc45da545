package search

import "github.com/hyperjump/artcollector/internal/models"

// AnyLabel is the label of the leading "no filter" option of each select.
const AnyLabel = "Any"

// SelectOption is one <option> of a filter select.
type SelectOption struct {
	Value    string
	Label    string
	Selected bool
}

// SelectView is the render model of one filter select.
type SelectView struct {
	// Count is the length of the reference list, shown next to the label.
	Count   int
	Value   string
	Options []SelectOption
}

// FormView is the render model of the whole search form.
type FormView struct {
	QueryString    string
	Classification SelectView
	Century        SelectView
}

// Form builds the render model from the current state.
func (o *Orchestrator) Form() FormView {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return FormView{
		QueryString:    o.input.QueryString,
		Classification: buildSelect(o.classificationList, o.input.Classification),
		Century:        buildSelect(o.centuryList, o.input.Century),
	}
}

// buildSelect renders "Any" first, then one option per item in list order.
// An unknown current value falls back to selecting "Any".
func buildSelect(items []models.ReferenceItem, current string) SelectView {
	options := make([]SelectOption, 0, len(items)+1)
	options = append(options, SelectOption{Value: models.AnyFilter, Label: AnyLabel})
	matched := false
	for _, it := range items {
		sel := !matched && it.Name == current
		if sel {
			matched = true
		}
		options = append(options, SelectOption{Value: it.Name, Label: it.Name, Selected: sel})
	}
	if !matched {
		options[0].Selected = true
		current = models.AnyFilter
	}
	return SelectView{Count: len(items), Value: current, Options: options}
}
