package window

import (
	"slices"
	"strings"
	"sync"
)

// DOM is the lightweight document tree behind the stand-in window.
type DOM struct {
	root    *Element
	body    *Element
	changes []Change
	mu      sync.RWMutex
}

// Element is one node of the document tree.
type Element struct {
	TagName     string
	ID          string
	ClassName   string
	TextContent string
	Attributes  map[string]string
	Children    []*Element
	Parent      *Element
}

// Change records one mutation made through the window.
type Change struct {
	Type     string // set_attribute, set_text, append, remove
	Target   string // selector-like description of the element
	Property string
	Value    string
}

// NewDOM returns an empty document holding a single body element.
func NewDOM() *DOM {
	root := NewElement("html")
	body := NewElement("body")
	root.AddElement(body)
	return &DOM{root: root, body: body}
}

// NewElement returns a detached element.
func NewElement(tag string) *Element {
	return &Element{
		TagName:    strings.ToUpper(tag),
		Attributes: make(map[string]string),
	}
}

// Root returns the document element.
func (d *DOM) Root() *Element { return d.root }

// Body returns the body element.
func (d *DOM) Body() *Element { return d.body }

// Query finds elements by a simple selector: "#id", ".class" or a tag name.
func (d *DOM) Query(selector string) []*Element {
	d.mu.RLock()
	defer d.mu.RUnlock()

	selector = strings.TrimSpace(selector)
	switch {
	case selector == "":
		return nil
	case selector == "#":
		return nil
	case strings.HasPrefix(selector, "#"):
		if elem := findByID(d.root, selector[1:]); elem != nil {
			return []*Element{elem}
		}
		return nil
	case strings.HasPrefix(selector, "."):
		return findByClass(d.root, selector[1:])
	default:
		return findByTag(d.root, selector)
	}
}

// Changes returns the mutations recorded so far.
func (d *DOM) Changes() []Change {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Change(nil), d.changes...)
}

func (d *DOM) record(change Change) {
	d.changes = append(d.changes, change)
}

// SetAttribute sets an attribute on elem, keeping id and class in sync.
func (d *DOM) SetAttribute(elem *Element, name, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	elem.Attributes[name] = value
	switch name {
	case "id":
		elem.ID = value
	case "class":
		elem.ClassName = value
	}
	d.record(Change{Type: "set_attribute", Target: elem.describe(), Property: name, Value: value})
}

// SetText replaces the text content of elem.
func (d *DOM) SetText(elem *Element, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	elem.TextContent = text
	d.record(Change{Type: "set_text", Target: elem.describe(), Property: "textContent", Value: text})
}

// Append moves child under parent.
func (d *DOM) Append(parent, child *Element) {
	d.mu.Lock()
	defer d.mu.Unlock()

	child.detach()
	parent.AddElement(child)
	d.record(Change{Type: "append", Target: parent.describe(), Value: child.describe()})
}

// Remove detaches elem from its parent.
func (d *DOM) Remove(elem *Element) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if elem.Parent == nil {
		return
	}
	d.record(Change{Type: "remove", Target: elem.describe()})
	elem.detach()
}

// GetAttribute retrieves an attribute value.
func (e *Element) GetAttribute(name string) (string, bool) {
	v, ok := e.Attributes[name]
	return v, ok
}

// AddElement appends a child element.
func (e *Element) AddElement(child *Element) {
	child.Parent = e
	e.Children = append(e.Children, child)
}

func (e *Element) detach() {
	if e.Parent == nil {
		return
	}
	e.Parent.Children = slices.DeleteFunc(e.Parent.Children, func(c *Element) bool { return c == e })
	e.Parent = nil
}

func (e *Element) describe() string {
	if e.ID != "" {
		return "#" + e.ID
	}
	return strings.ToLower(e.TagName)
}

func findByID(elem *Element, id string) *Element {
	if elem.ID == id {
		return elem
	}
	for _, child := range elem.Children {
		if found := findByID(child, id); found != nil {
			return found
		}
	}
	return nil
}

func findByClass(elem *Element, class string) []*Element {
	var result []*Element
	if slices.Contains(strings.Fields(elem.ClassName), class) {
		result = append(result, elem)
	}
	for _, child := range elem.Children {
		result = append(result, findByClass(child, class)...)
	}
	return result
}

func findByTag(elem *Element, tag string) []*Element {
	var result []*Element
	if strings.EqualFold(elem.TagName, tag) {
		result = append(result, elem)
	}
	for _, child := range elem.Children {
		result = append(result, findByTag(child, tag)...)
	}
	return result
}
