package collection

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Item is one node of the collection tree: exactly one of Folder or
// Request is set.
type Item struct {
	Folder  *Folder
	Request *Request
}

func FolderItem(f *Folder) Item   { return Item{Folder: f} }
func RequestItem(r *Request) Item { return Item{Request: r} }

func (it Item) Type() ItemType {
	if it.Folder != nil {
		return TypeFolder
	}
	return TypeRequest
}

func (it Item) IsFolder() bool { return it.Folder != nil }

func (it Item) ID() string {
	switch {
	case it.Folder != nil:
		return it.Folder.ID
	case it.Request != nil:
		return it.Request.ID
	default:
		return ""
	}
}

func (it Item) Name() string {
	switch {
	case it.Folder != nil:
		return it.Folder.Name
	case it.Request != nil:
		return it.Request.Name
	default:
		return ""
	}
}

func (it Item) setParent(id string) {
	switch {
	case it.Folder != nil:
		it.Folder.ParentID = id
	case it.Request != nil:
		it.Request.ParentID = id
	}
}

type folderJSON struct {
	Type ItemType `json:"type"`
	*Folder
}

type requestJSON struct {
	Type ItemType `json:"type"`
	*Request
}

func (it Item) MarshalJSON() ([]byte, error) {
	switch {
	case it.Folder != nil:
		f := *it.Folder
		if f.Children == nil {
			f.Children = []Item{}
		}
		return json.Marshal(folderJSON{Type: TypeFolder, Folder: &f})
	case it.Request != nil:
		r := *it.Request
		if r.Headers == nil {
			r.Headers = []KeyValue{}
		}
		if r.QueryParams == nil {
			r.QueryParams = []KeyValue{}
		}
		if r.Examples == nil {
			r.Examples = []Example{}
		}
		if r.ResponseHistory == nil {
			r.ResponseHistory = []ResponseRecord{}
		}
		return json.Marshal(requestJSON{Type: TypeRequest, Request: &r})
	default:
		return nil, fmt.Errorf("collection item has neither folder nor request")
	}
}

func (it *Item) UnmarshalJSON(data []byte) error {
	var probe struct {
		Type     ItemType        `json:"type"`
		Children json.RawMessage `json:"children"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	kind := probe.Type
	if kind == "" && len(probe.Children) > 0 {
		kind = TypeFolder
	}
	switch kind {
	case TypeFolder:
		var f Folder
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		*it = Item{Folder: &f}
	case TypeRequest, "":
		var r Request
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		if r.Body.Type == "" {
			r.Body.Type = BodyNone
		}
		*it = Item{Request: &r}
	default:
		return fmt.Errorf("unknown collection item type %q", probe.Type)
	}
	return nil
}
