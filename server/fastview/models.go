// fastview implements a builder pattern for simple server-pushed views:
// given an input data format, apply a transformation to a view-model,
// and then multiplex that data to one or more views.
package fastview

import (
	"html/template"
)

// EleUpdate is an element identifier and a set of operations to apply to its attributes/content.
type EleUpdate struct {
	// The id by which to find the element
	EleId string
	// Op keys are attrib keys or 'textContent', values are the strings to which these are set.
	// Example: ('x','123') means 'set attribute 'x' to 123. 'textContent' is a reserved key:
	// ('textContent','abc') means 'set ele.textContent to abc'.
	Ops []Op
}

// TextContent is the reserved Op key for replacing an element's text.
const TextContent = "textContent"

// Op is a key and value. For example an html attribute and its new value.
type Op struct {
	Key   string
	Value string
}

// ViewComponent is a server side view: Parse adds its initial form to a page template,
// and Updates yields the ele-updates that keep a rendered page current.
type ViewComponent interface {
	Updates() <-chan []EleUpdate
	// Parse parses the view-component into the passed parent template and returns the name
	// of the template it defined. The parent's func-map is inherited.
	Parse(*template.Template) (string, error)
}

// Coalesce merges two batches of ele-updates, as batchers do, keyed by element. An element
// updated in both keeps its position in older and takes its update from newer; views always
// send the same ops for an element, so this is the same as applying older then newer.
func Coalesce(older, newer []EleUpdate) []EleUpdate {
	merged := make([]EleUpdate, 0, len(older)+len(newer))
	index := make(map[string]int, len(older)+len(newer))
	for _, batch := range [][]EleUpdate{older, newer} {
		for _, update := range batch {
			if i, ok := index[update.EleId]; ok {
				merged[i] = update
				continue
			}
			index[update.EleId] = len(merged)
			merged = append(merged, update)
		}
	}
	return merged
}
