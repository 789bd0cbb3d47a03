package graph

// Detail is the popup payload for a single node. Every field is optional;
// sources fill what they know.
type Detail struct {
	ID          string     `json:"id" yaml:"id"`
	Explanation string     `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	Meta        DetailMeta `json:"meta" yaml:"meta"`
	Details     DetailText `json:"details" yaml:"details"`
	Chips       []Chip     `json:"chips" yaml:"chips"`
	Alerts      []Alert    `json:"alerts" yaml:"alerts"`
}

type DetailMeta struct {
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
	File string `json:"file,omitempty" yaml:"file,omitempty"`
}

type DetailText struct {
	InfoMessage string `json:"infoMessage,omitempty" yaml:"infoMessage,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

type Chip struct {
	Icon  string `json:"icon,omitempty" yaml:"icon,omitempty"`
	Label string `json:"label" yaml:"label"`
}

// Alert is a message box in the popup; Variant is "info", "warning" or "error"
type Alert struct {
	Variant string   `json:"variant" yaml:"variant"`
	Icon    string   `json:"icon,omitempty" yaml:"icon,omitempty"`
	Title   string   `json:"title" yaml:"title"`
	Text    string   `json:"text" yaml:"text"`
	Actions []string `json:"actions,omitempty" yaml:"actions,omitempty"`
}
