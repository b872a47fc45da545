package models

import "encoding/json"

// ResultRecord is one object returned by a collection query. The orchestrator
// treats records as opaque; the named fields exist for rendering and local
// indexing. Raw keeps the upstream JSON so encoding a decoded record reproduces
// it unchanged.
type ResultRecord struct {
	ID              int    `json:"id"`
	ObjectNumber    string `json:"objectnumber,omitempty"`
	Title           string `json:"title,omitempty"`
	Century         string `json:"century,omitempty"`
	Classification  string `json:"classification,omitempty"`
	Culture         string `json:"culture,omitempty"`
	Dated           string `json:"dated,omitempty"`
	Description     string `json:"description,omitempty"`
	PrimaryImageURL string `json:"primaryimageurl,omitempty"`
	URL             string `json:"url,omitempty"`

	Raw json.RawMessage `json:"-"`
}

type plainRecord ResultRecord

// UnmarshalJSON decodes the known fields and retains the full payload in Raw.
func (r *ResultRecord) UnmarshalJSON(data []byte) error {
	var p plainRecord
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = ResultRecord(p)
	r.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON emits Raw when present, otherwise the known fields.
func (r ResultRecord) MarshalJSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	return json.Marshal(plainRecord(r))
}

// DisplayTitle returns the title, or a placeholder for untitled objects.
func (r ResultRecord) DisplayTitle() string {
	if r.Title == "" {
		return "Untitled"
	}
	return r.Title
}
