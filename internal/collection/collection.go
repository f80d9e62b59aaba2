// Package collection tracks edits to one-to-many relation fields rendered as
// editable sub-grids. Each collection field keeps disjoint added, modified,
// and deleted item lists and transforms them into the mutation payload shape
// the backend expects.
package collection

import (
	"strings"

	"github.com/google/uuid"
)

// Status tags an item's pending change.
type Status string

const (
	StatusAdded    Status = "added"
	StatusModified Status = "modified"
	StatusDeleted  Status = "deleted"
)

const tempIDPrefix = "tmp:"

// TempID returns a client-side identifier for a not-yet-persisted item.
// Temp IDs are stripped before submission.
func TempID() string {
	return tempIDPrefix + uuid.NewString()
}

// IsTempID reports whether an id was generated client-side by TempID.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, tempIDPrefix)
}

// Item is one tracked collection entry. Original holds the pre-change
// payload for modified and deleted items.
type Item struct {
	ID       string
	Status   Status
	Data     map[string]interface{}
	Original map[string]interface{}
}

// ChangeSet tracks pending edits for a single collection field. An item's id
// appears in at most one of the three lists at any time; moves between lists
// are single atomic transitions.
type ChangeSet struct {
	added    []Item
	modified []Item
	deleted  []Item
}

// NewChangeSet returns an empty change set.
func NewChangeSet() *ChangeSet {
	return &ChangeSet{}
}

// Add records a new item. When the data carries no id, a temp id is
// assigned. Returns the tracked item.
func (c *ChangeSet) Add(data map[string]interface{}) Item {
	id, _ := data["id"].(string)
	if id == "" {
		id = TempID()
	}
	c.remove(id)
	item := Item{
		ID:     id,
		Status: StatusAdded,
		Data:   data,
	}
	c.added = append(c.added, item)
	return item
}

// Modify records a change to an existing item. Modifying an item that is
// currently tracked as added keeps it in the added list with the new data;
// modifying a deleted item resurrects it as modified.
func (c *ChangeSet) Modify(id string, data, original map[string]interface{}) Item {
	wasAdded := c.find(c.added, id) != nil
	c.remove(id)
	item := Item{
		ID:       id,
		Data:     data,
		Original: original,
	}
	if wasAdded {
		item.Status = StatusAdded
		item.Original = nil
		c.added = append(c.added, item)
		return item
	}
	item.Status = StatusModified
	c.modified = append(c.modified, item)
	return item
}

// Delete records a deletion. An item currently tracked as added simply
// disappears (it never existed server-side); a modified item moves to the
// deleted list atomically with its status updated.
func (c *ChangeSet) Delete(id string, original map[string]interface{}) {
	wasAdded := c.find(c.added, id) != nil
	if prior := c.find(c.modified, id); prior != nil && original == nil {
		original = prior.Original
	}
	c.remove(id)
	if wasAdded || IsTempID(id) {
		return
	}
	c.deleted = append(c.deleted, Item{
		ID:       id,
		Status:   StatusDeleted,
		Original: original,
	})
}

// Find returns the tracked item with the given id, if any.
func (c *ChangeSet) Find(id string) (Item, bool) {
	for _, list := range [][]Item{c.added, c.modified, c.deleted} {
		if item := c.find(list, id); item != nil {
			return *item, true
		}
	}
	return Item{}, false
}

// Added returns the pending additions.
func (c *ChangeSet) Added() []Item {
	return append([]Item(nil), c.added...)
}

// Modified returns the pending modifications.
func (c *ChangeSet) Modified() []Item {
	return append([]Item(nil), c.modified...)
}

// Deleted returns the pending deletions.
func (c *ChangeSet) Deleted() []Item {
	return append([]Item(nil), c.deleted...)
}

// Empty reports whether the change set has no pending changes.
func (c *ChangeSet) Empty() bool {
	return len(c.added) == 0 && len(c.modified) == 0 && len(c.deleted) == 0
}

func (c *ChangeSet) find(list []Item, id string) *Item {
	for i := range list {
		if list[i].ID == id {
			return &list[i]
		}
	}
	return nil
}

func (c *ChangeSet) remove(id string) {
	c.added = removeByID(c.added, id)
	c.modified = removeByID(c.modified, id)
	c.deleted = removeByID(c.deleted, id)
}

func removeByID(list []Item, id string) []Item {
	for i := range list {
		if list[i].ID == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
