package vault

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func sampleSlots() []*ItemRecord {
	cmd := 7
	return []*ItemRecord{
		{Type: "minecraft:diamond_sword", Count: 1, Damage: 12, Name: "Slicer",
			Lore: []string{"line one", "line two"}, Enchants: map[string]int{"sharpness": 5}},
		nil,
		{Type: "minecraft:cobblestone", Count: 64},
		nil,
		{Type: "minecraft:shulker_box", Count: 1, CustomModelData: &cmd, Contents: []*ItemRecord{
			{Type: "minecraft:emerald", Count: 17},
			{Type: "minecraft:player_head", Count: 1, SkullOwner: "069a79f4-44e9-4726-a5be-fca90e38aaf5"},
		}},
	}
}

func TestCodecRoundTrip(t *testing.T) {
	slots := sampleSlots()

	blob, err := encodeItems(slots)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if !strings.HasPrefix(blob, blobMarker) {
		t.Fatalf("blob missing format marker: %q", blob[:8])
	}

	decoded, err := decodeItems(blob, "069a79f4-44e9-4726-a5be-fca90e38aaf5")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !reflect.DeepEqual(slots, decoded) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", decoded, slots)
	}
}

func TestCodecDeterministic(t *testing.T) {
	a, err := encodeItems(sampleSlots())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	b, err := encodeItems(sampleSlots())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if a != b {
		t.Error("same slots produced different blobs")
	}
}

func TestDecodeEmptyBlob(t *testing.T) {
	slots, err := decodeItems("  ", "holder")
	if err != nil {
		t.Fatalf("empty blob should not error, got %v", err)
	}
	if slots != nil {
		t.Errorf("empty blob should decode to nil, got %v", slots)
	}
}

func TestDecodeCorruptBlobs(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{"not base64 after marker", blobMarker + "%%%not-base64%%%"},
		{"marker with bad json", blobMarker + base64.StdEncoding.EncodeToString([]byte("{nope"))},
		{"marker with wrong format number", blobMarker + base64.StdEncoding.EncodeToString([]byte(`{"format":9,"slots":[]}`))},
		{"random text", "certainly not a vault"},
		{"legacy base64 of bad json", base64.StdEncoding.EncodeToString([]byte("[[["))},
		{"legacy base64 of wrong shape", base64.StdEncoding.EncodeToString([]byte(`{"x":1}`))},
		{"legacy negative slot", base64.StdEncoding.EncodeToString([]byte(`{"owner":"Notch","items":[{"slot":-1,"item":{"type":"minecraft:dirt","count":1}}]}`))},
		{"legacy slot beyond largest container", base64.StdEncoding.EncodeToString([]byte(`{"owner":"Notch","items":[{"slot":10000000,"item":{"type":"minecraft:dirt","count":1}}]}`))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeItems(tt.blob, "holder")
			if !errors.Is(err, ErrCorruptData) {
				t.Errorf("expected ErrCorruptData, got %v", err)
			}
		})
	}
}

func legacyBlob(t *testing.T, env legacyEnvelope) string {
	t.Helper()
	payload, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal legacy payload: %v", err)
	}
	return base64.StdEncoding.EncodeToString(payload)
}

func TestDecodeLegacyFormat(t *testing.T) {
	blob := legacyBlob(t, legacyEnvelope{
		Owner: "Notch",
		Items: []legacyItem{
			{Slot: 0, Item: &ItemRecord{Type: "minecraft:dirt", Count: 3}},
			{Slot: 4, Item: &ItemRecord{Type: "minecraft:player_head", Count: 1, SkullOwner: "Notch"}},
		},
	})

	holder := "069a79f4-44e9-4726-a5be-fca90e38aaf5"
	slots, err := decodeItems(blob, holder)
	if err != nil {
		t.Fatalf("legacy decode failed: %v", err)
	}
	if len(slots) != 5 {
		t.Fatalf("expected 5 slots, got %d", len(slots))
	}
	if slots[0] == nil || slots[0].Type != "minecraft:dirt" {
		t.Errorf("slot 0 wrong: %+v", slots[0])
	}
	if slots[1] != nil || slots[2] != nil || slots[3] != nil {
		t.Error("gap slots should be empty")
	}
	if slots[4].SkullOwner != holder {
		t.Errorf("skull owner not re-anchored: %q", slots[4].SkullOwner)
	}
}

func TestDecodeLegacyOwnerQuirks(t *testing.T) {
	holder := "069a79f4-44e9-4726-a5be-fca90e38aaf5"
	tests := []struct {
		name  string
		skull string
		want  string
	}{
		{"placeholder rewritten", legacyOwnerPlaceholder, holder},
		{"file owner name rewritten", "Notch", holder},
		{"other player kept", "Herobrine", "Herobrine"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob := legacyBlob(t, legacyEnvelope{
				Owner: "Notch",
				Items: []legacyItem{{Slot: 0, Item: &ItemRecord{
					Type: "minecraft:chest", Count: 1,
					Contents: []*ItemRecord{{Type: "minecraft:player_head", Count: 1, SkullOwner: tt.skull}},
				}}},
			})
			slots, err := decodeItems(blob, holder)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			got := slots[0].Contents[0].SkullOwner
			if got != tt.want {
				t.Errorf("skull owner = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeBlobExported(t *testing.T) {
	blob, err := encodeItems(sampleSlots())
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	slots, err := DecodeBlob(blob, "holder")
	if err != nil {
		t.Fatalf("DecodeBlob failed: %v", err)
	}
	if !reflect.DeepEqual(slots, sampleSlots()) {
		t.Error("DecodeBlob does not round trip the encoder output")
	}
}
