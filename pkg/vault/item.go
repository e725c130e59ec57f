package vault

// DefaultStackLimit is the stack limit assumed when an item does not
// declare its own.
const DefaultStackLimit = 64

// ItemRecord describes a single item occupying a vault slot. The engine
// treats it as an opaque value: it is serialized and deserialized by the
// codec but never interpreted, beyond the stacking rules used when an
// oversized record has to be repacked into a smaller container.
type ItemRecord struct {
	// Type is the item's type identifier (e.g. "minecraft:diamond_sword").
	Type string `json:"type"`

	// Count is the stack count. Always >= 1 for a stored item.
	Count int `json:"count"`

	// Damage is the item's damage/durability value, if any.
	Damage int `json:"damage,omitempty"`

	// StackLimit is the item's maximum stack size. Zero means
	// DefaultStackLimit.
	StackLimit int `json:"stack_limit,omitempty"`

	// Name is the item's custom display name, if any.
	Name string `json:"name,omitempty"`

	// Lore holds custom description lines, if any.
	Lore []string `json:"lore,omitempty"`

	// Enchants maps enchantment identifiers to levels.
	Enchants map[string]int `json:"enchants,omitempty"`

	// CustomModelData is the custom model data tag. A nil pointer means
	// the tag is absent, which is distinct from a zero value.
	CustomModelData *int `json:"custom_model_data,omitempty"`

	// SkullOwner is the owning player of a head item, if any. Stored as
	// a stable account id; legacy blobs stored a display name here.
	SkullOwner string `json:"skull_owner,omitempty"`

	// Tag carries any remaining item metadata verbatim.
	Tag map[string]any `json:"tag,omitempty"`

	// Contents holds nested items for container items (shulker boxes
	// and the like).
	Contents []*ItemRecord `json:"contents,omitempty"`
}

// stackLimit returns the effective stack limit for the item.
func (it *ItemRecord) stackLimit() int {
	if it.StackLimit > 0 {
		return it.StackLimit
	}
	return DefaultStackLimit
}

// stacksWith reports whether two items may share a stack. Items stack
// only when every field other than Count is identical; anything with
// nested contents never stacks.
func (it *ItemRecord) stacksWith(other *ItemRecord) bool {
	if it == nil || other == nil {
		return false
	}
	if it.Type != other.Type || it.Damage != other.Damage {
		return false
	}
	if it.Name != other.Name || it.SkullOwner != other.SkullOwner {
		return false
	}
	if it.stackLimit() != other.stackLimit() {
		return false
	}
	if len(it.Contents) > 0 || len(other.Contents) > 0 {
		return false
	}
	if (it.CustomModelData == nil) != (other.CustomModelData == nil) {
		return false
	}
	if it.CustomModelData != nil && *it.CustomModelData != *other.CustomModelData {
		return false
	}
	if len(it.Lore) != len(other.Lore) {
		return false
	}
	for i := range it.Lore {
		if it.Lore[i] != other.Lore[i] {
			return false
		}
	}
	if len(it.Enchants) != len(other.Enchants) {
		return false
	}
	for k, v := range it.Enchants {
		if ov, ok := other.Enchants[k]; !ok || ov != v {
			return false
		}
	}
	if len(it.Tag) > 0 || len(other.Tag) > 0 {
		// Arbitrary metadata is not compared structurally; be
		// conservative and keep such items in separate stacks.
		return false
	}
	return true
}

// clone returns a deep copy of the item.
func (it *ItemRecord) clone() *ItemRecord {
	if it == nil {
		return nil
	}
	out := *it
	if it.Lore != nil {
		out.Lore = append([]string(nil), it.Lore...)
	}
	if it.Enchants != nil {
		out.Enchants = make(map[string]int, len(it.Enchants))
		for k, v := range it.Enchants {
			out.Enchants[k] = v
		}
	}
	if it.CustomModelData != nil {
		cmd := *it.CustomModelData
		out.CustomModelData = &cmd
	}
	if it.Tag != nil {
		out.Tag = cloneTag(it.Tag)
	}
	if it.Contents != nil {
		out.Contents = make([]*ItemRecord, len(it.Contents))
		for i, c := range it.Contents {
			out.Contents[i] = c.clone()
		}
	}
	return &out
}

func cloneTag(tag map[string]any) map[string]any {
	out := make(map[string]any, len(tag))
	for k, v := range tag {
		if m, ok := v.(map[string]any); ok {
			out[k] = cloneTag(m)
			continue
		}
		if s, ok := v.([]any); ok {
			out[k] = append([]any(nil), s...)
			continue
		}
		out[k] = v
	}
	return out
}
