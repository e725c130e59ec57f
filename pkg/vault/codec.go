package vault

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Blob format: a short ASCII marker, then base64 of a JSON envelope.
// Older blobs carry no marker and are handled by the legacy decoder.
const (
	blobMarker = "pv2;"

	currentFormat = 2
)

// envelope is the JSON payload of a current-format blob. Slots is the
// full slot array; nil entries are empty slots. Items stored past the
// container size are overflow carried for a later repack.
type envelope struct {
	Format int           `json:"format"`
	Slots  []*ItemRecord `json:"slots"`
}

// encodeItems serializes a slot array to a storage blob. It is
// deterministic for well-formed items and does not fail for any value
// the item model can represent.
func encodeItems(slots []*ItemRecord) (string, error) {
	payload, err := json.Marshal(envelope{Format: currentFormat, Slots: slots})
	if err != nil {
		// Unreachable for the item model, but surfaced rather than
		// silently persisting a broken blob.
		return "", fmt.Errorf("vault: encode: %w", err)
	}
	return blobMarker + base64.StdEncoding.EncodeToString(payload), nil
}

// blobDecoder attempts one storage format. It returns ErrCorruptData
// when the blob is recognizably in its format but unreadable, and
// errUnknownFormat when the blob belongs to some other decoder.
type blobDecoder func(blob, holder string) ([]*ItemRecord, error)

var errUnknownFormat = fmt.Errorf("vault: unknown blob format")

// decoders are tried in order; the current format always comes first.
// Each legacy decoder is self-contained so it can be removed once its
// data generation has been migrated.
var decoders = []blobDecoder{
	decodeCurrent,
	decodeLegacy,
}

// decodeItems deserializes a storage blob. The holder id is handed to
// legacy decoders, which need it to repair metadata that earlier
// formats anchored to the session-resolved player name. A blob that no
// decoder accepts yields ErrCorruptData.
func decodeItems(blob, holder string) ([]*ItemRecord, error) {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return nil, nil
	}
	for _, dec := range decoders {
		slots, err := dec(blob, holder)
		if err == errUnknownFormat {
			continue
		}
		return slots, err
	}
	return nil, ErrCorruptData
}

// DecodeBlob deserializes a storage blob of any known format. Exported
// for migration tooling; the holder id feeds legacy-format metadata
// repair.
func DecodeBlob(blob, holder string) ([]*ItemRecord, error) { return decodeItems(blob, holder) }

func decodeCurrent(blob, _ string) ([]*ItemRecord, error) {
	if !strings.HasPrefix(blob, blobMarker) {
		return nil, errUnknownFormat
	}
	payload, err := base64.StdEncoding.DecodeString(blob[len(blobMarker):])
	if err != nil {
		return nil, ErrCorruptData
	}
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, ErrCorruptData
	}
	if env.Format != currentFormat {
		return nil, ErrCorruptData
	}
	return env.Slots, nil
}
