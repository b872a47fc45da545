package search

import (
	"context"
	"testing"

	"github.com/hyperjump/artcollector/internal/models"
)

func TestForm_SelectedOption(t *testing.T) {
	cat := &fakeCatalog{
		centuries:       staticRefs(models.ReferenceItem{ID: 2, Name: "19th century"}, models.ReferenceItem{ID: 3, Name: "20th century"}),
		classifications: staticRefs(models.ReferenceItem{ID: 1, Name: "Sculpture"}),
	}
	p := &parent{}
	o := NewOrchestrator(cat, p.setters())
	o.Mount(context.Background())

	tests := []struct {
		name         string
		century      string
		wantValue    string
		wantSelected string
	}{
		{"default any", "any", "any", "any"},
		{"known name", "20th century", "20th century", "20th century"},
		{"unknown falls back to any", "3rd millennium", "any", "any"},
		{"id is not a name", "2", "any", "any"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o.SetCentury(tt.century)
			sel := o.Form().Century
			if sel.Value != tt.wantValue {
				t.Errorf("Value = %q, want %q", sel.Value, tt.wantValue)
			}
			count := 0
			for _, opt := range sel.Options {
				if opt.Selected {
					count++
					if opt.Value != tt.wantSelected {
						t.Errorf("selected %q, want %q", opt.Value, tt.wantSelected)
					}
				}
			}
			if count != 1 {
				t.Errorf("expected exactly one selected option, got %d", count)
			}
		})
	}
}

func TestForm_BeforeMount(t *testing.T) {
	p := &parent{}
	o := NewOrchestrator(&fakeCatalog{}, p.setters())
	o.SetQueryString("vase")

	form := o.Form()
	if form.QueryString != "vase" {
		t.Errorf("QueryString = %q", form.QueryString)
	}
	if form.Century.Count != 0 || form.Classification.Count != 0 {
		t.Errorf("counts should be zero before mount: %+v", form)
	}
	if len(form.Century.Options) != 1 || form.Century.Options[0].Label != AnyLabel {
		t.Errorf("only the Any option is expected before mount: %+v", form.Century.Options)
	}
}
