package program

// Status is the lifecycle state of a program item.
type Status string

const (
	StatusNotStarted  Status = "Not Started"
	StatusDraft       Status = "Draft"
	StatusPublished   Status = "Published"
	StatusImplemented Status = "Implemented"
)

// Complete reports whether the item is finished and leaves the backlog.
func (s Status) Complete() bool {
	return s == StatusPublished || s == StatusImplemented
}

func (s Status) String() string {
	return string(s)
}

// Kind separates technical controls from governance documents.
type Kind string

const (
	KindControl    Kind = "control"
	KindGovernance Kind = "governance"
)

// Item is a control, standard, or policy under consideration.
// Effort and RiskReduction are nil when the source omitted them.
type Item struct {
	ID            string   `json:"id" yaml:"id"`
	Kind          Kind     `json:"kind,omitempty" yaml:"kind,omitempty"`
	Type          string   `json:"type,omitempty" yaml:"type,omitempty"`
	Title         string   `json:"title,omitempty" yaml:"title,omitempty"`
	Description   string   `json:"description,omitempty" yaml:"description,omitempty"`
	Domain        string   `json:"domain,omitempty" yaml:"domain,omitempty"`
	Category      string   `json:"category,omitempty" yaml:"category,omitempty"`
	Owner         string   `json:"owner,omitempty" yaml:"owner,omitempty"`
	Status        Status   `json:"status" yaml:"status"`
	Priority      string   `json:"priority,omitempty" yaml:"priority,omitempty"`
	Phase         int      `json:"phase,omitempty" yaml:"phase,omitempty"`
	Effort        *float64 `json:"effort,omitempty" yaml:"effort,omitempty"`
	RiskReduction *float64 `json:"risk_reduction,omitempty" yaml:"risk_reduction,omitempty"`
	Maturity      int      `json:"maturity,omitempty" yaml:"maturity,omitempty"`
	Function      string   `json:"function,omitempty" yaml:"function,omitempty"`
	NISTCSF       []string `json:"nist_csf,omitempty" yaml:"nist_csf,omitempty"`
	Dependencies  []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Source        string   `json:"-" yaml:"-"`
}

// Document is a normalized item file loaded from YAML.
type Document struct {
	Kind   Kind
	Items  []Item
	Source string
}

// ItemRecord maps an item id to its normalized data and origin.
type ItemRecord struct {
	Item   Item
	Source string
}

// Store is the in-memory representation of loaded item files.
type Store struct {
	Documents []Document

	items map[string]ItemRecord
}

// Lookup returns the item record for the given id, if present.
func (s *Store) Lookup(id string) (ItemRecord, bool) {
	if s == nil {
		return ItemRecord{}, false
	}
	rec, ok := s.items[id]
	return rec, ok
}

// Items returns a fresh snapshot of every item in file order, then
// document order. Callers may modify the result freely.
func (s *Store) Items() []Item {
	if s == nil {
		return nil
	}
	var out []Item
	for _, doc := range s.Documents {
		for _, item := range doc.Items {
			out = append(out, item.Clone())
		}
	}
	return out
}

// Float returns a pointer to v, for building items in code.
func Float(v float64) *float64 {
	return &v
}

// Clone returns a deep copy of the item.
func (item Item) Clone() Item {
	if item.Effort != nil {
		item.Effort = Float(*item.Effort)
	}
	if item.RiskReduction != nil {
		item.RiskReduction = Float(*item.RiskReduction)
	}
	if item.NISTCSF != nil {
		item.NISTCSF = append([]string{}, item.NISTCSF...)
	}
	if item.Dependencies != nil {
		item.Dependencies = append([]string{}, item.Dependencies...)
	}
	return item
}
