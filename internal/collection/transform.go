package collection

// Payload is the per-field collection change shape submitted to the backend.
type Payload struct {
	Added   []map[string]interface{} `json:"added"`
	Updated []map[string]interface{} `json:"updated"`
	Deleted []string                 `json:"deleted"`
}

// Empty reports whether the payload carries no changes.
func (p Payload) Empty() bool {
	return len(p.Added) == 0 && len(p.Updated) == 0 && len(p.Deleted) == 0
}

// Transform emits the backend mutation payload for the change set:
// object-valued fields are reduced to {id} references except for the named
// embedded fields (kept inline), temp client-side ids are stripped from
// added items, and __typename plus status metadata are deep-stripped.
func (c *ChangeSet) Transform(embeddedFields map[string]bool) Payload {
	payload := Payload{}

	for _, item := range c.added {
		data := transformItem(item.Data, embeddedFields)
		if id, ok := data["id"].(string); ok && IsTempID(id) {
			delete(data, "id")
		}
		payload.Added = append(payload.Added, data)
	}

	for _, item := range c.modified {
		data := transformItem(item.Data, embeddedFields)
		data["id"] = item.ID
		payload.Updated = append(payload.Updated, data)
	}

	for _, item := range c.deleted {
		payload.Deleted = append(payload.Deleted, item.ID)
	}

	return payload
}

func transformItem(data map[string]interface{}, embeddedFields map[string]bool) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for key, value := range data {
		if isMetadataKey(key) {
			continue
		}
		out[key] = TransformValue(value, embeddedFields[key])
	}
	return out
}

// TransformValue applies the submission contract to a single value: object
// values become {id} references unless embedded (kept inline with metadata
// stripped), lists transform element-wise, scalars pass through. The form
// engine reuses this for top-level relation fields.
func TransformValue(value interface{}, embedded bool) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		if embedded {
			return stripMetadata(v)
		}
		if id, ok := v["id"]; ok {
			return map[string]interface{}{"id": id}
		}
		return stripMetadata(v)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = TransformValue(item, embedded)
		}
		return out
	default:
		return value
	}
}

// stripMetadata deep-strips __typename and internal status tags from nested
// values while leaving domain data untouched.
func stripMetadata(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for key, value := range data {
		if isMetadataKey(key) {
			continue
		}
		switch v := value.(type) {
		case map[string]interface{}:
			out[key] = stripMetadata(v)
		case []interface{}:
			list := make([]interface{}, len(v))
			for i, item := range v {
				if m, ok := item.(map[string]interface{}); ok {
					list[i] = stripMetadata(m)
				} else {
					list[i] = item
				}
			}
			out[key] = list
		default:
			out[key] = value
		}
	}
	return out
}

func isMetadataKey(key string) bool {
	return key == "__typename" || key == "__status" || key == "__original"
}
