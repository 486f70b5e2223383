package model

import (
	"bytes"
	"encoding/json"
)

// DefaultEmoji is used for categories created without one.
const DefaultEmoji = "🏷"

// Subcategory is a second-level category under a primary category.
type Subcategory struct {
	Name   string
	Emoji  string
	Custom bool
}

// Category is a primary category and its ordered subcategories.
type Category struct {
	Name          string
	Emoji         string
	Flow          FlowDirection
	Subcategories []Subcategory
	Custom        bool
}

// SubNames returns the subcategory names in order.
func (c Category) SubNames() []string {
	names := make([]string, 0, len(c.Subcategories))
	for _, sub := range c.Subcategories {
		names = append(names, sub.Name)
	}
	return names
}

// HasSub reports whether the category contains the named subcategory.
func (c Category) HasSub(name string) bool {
	for _, sub := range c.Subcategories {
		if sub.Name == name {
			return true
		}
	}
	return false
}

// Tree is an ordered primary-to-subcategory mapping for one flow direction.
type Tree struct {
	entries []TreeEntry
}

// TreeEntry is one primary category in a Tree.
type TreeEntry struct {
	Name          string
	Subcategories []string
}

// Add appends a primary category to the tree.
func (t *Tree) Add(name string, subs []string) {
	t.entries = append(t.entries, TreeEntry{Name: name, Subcategories: subs})
}

// Entries returns the tree entries in insertion order.
func (t Tree) Entries() []TreeEntry {
	return t.entries
}

// Len returns the number of primary categories.
func (t Tree) Len() int {
	return len(t.entries)
}

// TaxonomySnapshot is a point-in-time copy of the category trees.
type TaxonomySnapshot struct {
	Expense Tree
	Income  Tree
}

// MarshalJSON encodes the tree as an object of primary name to subcategory list,
// keeping insertion order.
func (t Tree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range t.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		subs := e.Subcategories
		if subs == nil {
			subs = []string{}
		}
		value, err := json.Marshal(subs)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
