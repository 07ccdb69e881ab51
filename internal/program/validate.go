package program

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

type rawDocument struct {
	Kind  string    `yaml:"kind"`
	Items []rawItem `yaml:"items"`
}

type rawItem struct {
	ID            string   `yaml:"id"`
	Kind          string   `yaml:"kind"`
	Type          string   `yaml:"type"`
	Title         string   `yaml:"title"`
	Description   string   `yaml:"description"`
	Domain        string   `yaml:"domain"`
	Category      string   `yaml:"category"`
	Owner         string   `yaml:"owner"`
	Status        string   `yaml:"status"`
	Priority      string   `yaml:"priority"`
	Phase         int      `yaml:"phase"`
	Effort        *float64 `yaml:"effort"`
	RiskReduction *float64 `yaml:"risk_reduction"`
	Maturity      int      `yaml:"maturity"`
	Function      string   `yaml:"function"`
	NISTCSF       []string `yaml:"nist_csf"`
	Dependencies  []string `yaml:"dependencies"`
}

// ValidationError captures a single field-specific validation issue.
type ValidationError struct {
	File    string
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.File, e.Field, e.Message)
}

// ValidationErrors aggregates multiple validation problems.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "\n")
}

// fold returns the case-folded form of value. A Caser is stateful, so one
// is created per call.
func fold(value string) string {
	return cases.Fold().String(value)
}

var knownStatuses = map[string]Status{
	fold(string(StatusNotStarted)):  StatusNotStarted,
	fold(string(StatusDraft)):       StatusDraft,
	fold(string(StatusPublished)):   StatusPublished,
	fold(string(StatusImplemented)): StatusImplemented,

	"not_started": StatusNotStarted,
	"notstarted":  StatusNotStarted,
}

// ParseStatus maps a user supplied status onto its canonical spelling.
// Matching ignores case and surrounding whitespace. An empty value is
// Not Started.
func ParseStatus(value string) (Status, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return StatusNotStarted, nil
	}
	if s, ok := knownStatuses[fold(value)]; ok {
		return s, nil
	}
	return Status(value), fmt.Errorf("unknown status %q (expected Not Started, Draft, Published, or Implemented)", value)
}

// ParseKind validates an item kind. An empty value is allowed.
func ParseKind(value string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case "":
		return "", nil
	case KindControl:
		return KindControl, nil
	case KindGovernance:
		return KindGovernance, nil
	default:
		return Kind(value), fmt.Errorf("invalid kind %q (expected control or governance)", value)
	}
}

// ParseAndValidateDocument unmarshals and validates a YAML item document.
func ParseAndValidateDocument(data []byte, source string) (Document, error) {
	var raw rawDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Document{}, ValidationErrors{{
			File:    source,
			Field:   "yaml",
			Message: err.Error(),
		}}
	}
	return validateRawDocument(raw, source)
}

// ParseAndValidateItem unmarshals and validates a single YAML item mapping,
// as found in markdown front matter.
func ParseAndValidateItem(data []byte, source string) (Item, error) {
	var raw rawItem
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Item{}, ValidationErrors{{
			File:    source,
			Field:   "yaml",
			Message: err.Error(),
		}}
	}
	item, errs := validateItem(raw, "front_matter", "", source)
	if len(errs) > 0 {
		return Item{}, errs
	}
	return item, nil
}

func validateRawDocument(raw rawDocument, source string) (Document, error) {
	var errs ValidationErrors

	kind, kindErr := ParseKind(raw.Kind)
	if kindErr != nil {
		errs = append(errs, ValidationError{
			File:    source,
			Field:   "kind",
			Message: kindErr.Error(),
		})
	}

	if len(raw.Items) == 0 {
		errs = append(errs, ValidationError{
			File:    source,
			Field:   "items",
			Message: "must contain at least one item",
		})
	}

	ids := make(map[string]struct{})
	items := make([]Item, 0, len(raw.Items))
	for idx, r := range raw.Items {
		path := fmt.Sprintf("items[%d]", idx)
		item, itemErrs := validateItem(r, path, kind, source)
		errs = append(errs, itemErrs...)

		if item.ID != "" {
			if _, exists := ids[item.ID]; exists {
				errs = append(errs, ValidationError{
					File:    source,
					Field:   path + ".id",
					Message: fmt.Sprintf("duplicate id %q within file", item.ID),
				})
			} else {
				ids[item.ID] = struct{}{}
			}
		}
		items = append(items, item)
	}

	if len(errs) > 0 {
		return Document{}, errs
	}
	return Document{Kind: kind, Items: items, Source: source}, nil
}

// validateItem only rejects values that cannot be interpreted. Missing
// ids and missing score inputs are allowed; scoring substitutes defaults.
func validateItem(raw rawItem, fieldPath string, docKind Kind, source string) (Item, ValidationErrors) {
	var errs ValidationErrors

	status, statusErr := ParseStatus(raw.Status)
	if statusErr != nil {
		errs = append(errs, ValidationError{
			File:    source,
			Field:   fieldPath + ".status",
			Message: statusErr.Error(),
		})
	}

	kind := docKind
	if strings.TrimSpace(raw.Kind) != "" {
		k, err := ParseKind(raw.Kind)
		if err != nil {
			errs = append(errs, ValidationError{
				File:    source,
				Field:   fieldPath + ".kind",
				Message: err.Error(),
			})
		}
		kind = k
	}

	if raw.Maturity < 0 || raw.Maturity > 5 {
		errs = append(errs, ValidationError{
			File:    source,
			Field:   fieldPath + ".maturity",
			Message: "must be between 0 and 5",
		})
	}
	if raw.Phase < 0 || raw.Phase > 4 {
		errs = append(errs, ValidationError{
			File:    source,
			Field:   fieldPath + ".phase",
			Message: "must be between 0 and 4",
		})
	}

	var deps []string
	for i, dep := range raw.Dependencies {
		dep = strings.TrimSpace(dep)
		if dep == "" {
			errs = append(errs, ValidationError{
				File:    source,
				Field:   fmt.Sprintf("%s.dependencies[%d]", fieldPath, i),
				Message: "dependency entries cannot be empty",
			})
			continue
		}
		deps = append(deps, dep)
	}

	item := Item{
		ID:           strings.TrimSpace(raw.ID),
		Kind:         kind,
		Type:         strings.TrimSpace(raw.Type),
		Title:        strings.TrimSpace(raw.Title),
		Description:  strings.TrimSpace(raw.Description),
		Domain:       strings.TrimSpace(raw.Domain),
		Category:     strings.TrimSpace(raw.Category),
		Owner:        strings.TrimSpace(raw.Owner),
		Status:       status,
		Priority:     strings.TrimSpace(raw.Priority),
		Phase:        raw.Phase,
		Maturity:     raw.Maturity,
		Function:     strings.ToUpper(strings.TrimSpace(raw.Function)),
		Dependencies: deps,
		Source:       source,
	}
	// YAML accepts .nan and .inf. Those are dropped so the scoring
	// defaults apply and the item still encodes as JSON.
	if raw.Effort != nil && finite(*raw.Effort) {
		item.Effort = Float(*raw.Effort)
	}
	if raw.RiskReduction != nil && finite(*raw.RiskReduction) {
		item.RiskReduction = Float(*raw.RiskReduction)
	}
	for _, m := range raw.NISTCSF {
		if m = strings.TrimSpace(m); m != "" {
			item.NISTCSF = append(item.NISTCSF, m)
		}
	}

	return item, errs
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
