package remedy

import "sort"

// UnavailableRemedy is the single remedy line of a degraded advisory.
const UnavailableRemedy = "Prediction unavailable."

// Advisory is the remediation guide shown for a label.
type Advisory struct {
	Disease    string   `json:"disease"`
	Cause      []string `json:"cause,omitempty"`
	Symptoms   []string `json:"symptoms,omitempty"`
	Prevention []string `json:"prevention,omitempty"`
	Remedy     []string `json:"remedy"`
}

// Resolve returns the advisory for label. Labels outside the table (error
// messages, sentinels) get a degraded advisory instead of an error so a result
// can always be rendered.
func Resolve(label string) Advisory {
	a, ok := advisories[label]
	if !ok {
		return Advisory{
			Disease: label,
			Remedy:  []string{UnavailableRemedy},
		}
	}
	return a.clone()
}

// Known reports whether label has a full advisory.
func Known(label string) bool {
	_, ok := advisories[label]
	return ok
}

// Labels returns the labels with a full advisory, sorted.
func Labels() []string {
	labels := make([]string, 0, len(advisories))
	for label := range advisories {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

func (a Advisory) clone() Advisory {
	return Advisory{
		Disease:    a.Disease,
		Cause:      append([]string(nil), a.Cause...),
		Symptoms:   append([]string(nil), a.Symptoms...),
		Prevention: append([]string(nil), a.Prevention...),
		Remedy:     append([]string(nil), a.Remedy...),
	}
}
