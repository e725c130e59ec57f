package vault

import (
	"encoding/base64"
	"encoding/json"
)

// Legacy blob format (format 1, pre-marker): bare base64 of a JSON
// envelope written by the original storage code. Two quirks are
// repaired on read:
//
//   - Skull items were anchored to the player name the session resolved
//     at save time, not the stable account id. The decoder rewrites a
//     skull owner matching the recorded name (or the "%owner%"
//     placeholder some builds wrote) to the holder id it is given.
//   - Slot positions were stored per item instead of positionally.
//
// Delete this file once no format-1 data remains in the wild.

type legacyEnvelope struct {
	// Owner is the display name of the player the file belonged to at
	// save time.
	Owner string       `json:"owner"`
	Items []legacyItem `json:"items"`
}

type legacyItem struct {
	Slot int         `json:"slot"`
	Item *ItemRecord `json:"item"`
}

const legacyOwnerPlaceholder = "%owner%"

func decodeLegacy(blob, holder string) ([]*ItemRecord, error) {
	payload, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, errUnknownFormat
	}
	var env legacyEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, ErrCorruptData
	}
	if len(env.Items) == 0 && env.Owner == "" {
		// Valid JSON but not a legacy vault payload.
		return nil, ErrCorruptData
	}

	max := 0
	for _, li := range env.Items {
		// Slot indexes past the largest container are corrupt, not
		// sparse data; the bound also keeps the allocation below from
		// trusting an arbitrary integer in the blob.
		if li.Item == nil || li.Slot < 0 || li.Slot >= MaxRows*RowSize {
			return nil, ErrCorruptData
		}
		if li.Slot >= max {
			max = li.Slot + 1
		}
	}
	slots := make([]*ItemRecord, max)
	for _, li := range env.Items {
		fixLegacyOwner(li.Item, env.Owner, holder)
		slots[li.Slot] = li.Item
	}
	return slots, nil
}

// fixLegacyOwner re-anchors name-bound skull metadata to the stable
// holder id, recursing into container contents.
func fixLegacyOwner(it *ItemRecord, ownerName, holder string) {
	if it == nil {
		return
	}
	if it.SkullOwner != "" {
		if it.SkullOwner == legacyOwnerPlaceholder || (ownerName != "" && it.SkullOwner == ownerName) {
			it.SkullOwner = holder
		}
	}
	for _, c := range it.Contents {
		fixLegacyOwner(c, ownerName, holder)
	}
}
