package safetensors

import (
	"encoding/binary"
	"encoding/json"
	"path/filepath"
	"slices"
	"testing"
)

func TestWriteFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.safetensors")

	mels := F32("mels", []int64{1, 2, 4}, []float32{1.5, -0.25, 3.25, 4.0, -1.0, 0.5, 2.5, 9.0})
	texts := I64("texts", []int64{1, 3}, []int64{1, 42, -7})
	meta := map[string]string{"run_id": "abc", "batch": "0"}

	if err := WriteFile(path, []Tensor{texts, mels}, meta); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}

	if names := store.Names(); !slices.Equal(names, []string{"mels", "texts"}) {
		t.Fatalf("Names() = %v, want [mels texts]", names)
	}

	if got := store.Metadata(); got["run_id"] != "abc" || got["batch"] != "0" {
		t.Fatalf("Metadata() = %v", got)
	}

	gotMels, err := store.Tensor("mels")
	if err != nil {
		t.Fatalf("Tensor(mels): %v", err)
	}
	if gotMels.DType() != DTypeF32 || !slices.Equal(gotMels.Shape, mels.Shape) || !slices.Equal(gotMels.Float, mels.Float) {
		t.Fatalf("mels = %+v, want %+v", gotMels, mels)
	}

	gotTexts, err := store.Tensor("texts")
	if err != nil {
		t.Fatalf("Tensor(texts): %v", err)
	}
	if gotTexts.DType() != DTypeI64 || !slices.Equal(gotTexts.Int, texts.Int) {
		t.Fatalf("texts = %+v, want %+v", gotTexts, texts)
	}

	if _, err := store.Tensor("missing"); err == nil {
		t.Fatal("expected error for missing tensor")
	}
}

func TestEncode_HeaderLayout(t *testing.T) {
	blob, err := Encode([]Tensor{
		I64("b", []int64{2}, []int64{3, 4}),
		F32("a", []int64{1, 2}, []float32{1, 2}),
	}, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	n := binary.LittleEndian.Uint64(blob[:8])
	var header map[string]storeHeaderEntry
	if err := json.Unmarshal(blob[8:8+n], &header); err != nil {
		t.Fatalf("header: %v", err)
	}

	if _, ok := header[metadataKey]; ok {
		t.Error("metadata written without entries")
	}
	if a := header["a"]; a.DType != "F32" || a.Offsets != [2]int{0, 8} {
		t.Errorf("a = %+v", a)
	}
	if b := header["b"]; b.DType != "I64" || b.Offsets != [2]int{8, 24} {
		t.Errorf("b = %+v", b)
	}
	if len(blob) != 8+int(n)+24 {
		t.Errorf("blob length = %d, want %d", len(blob), 8+int(n)+24)
	}
}

func TestEncode_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		tensors []Tensor
	}{
		{"no tensors", nil},
		{"empty name", []Tensor{F32("", []int64{1}, []float32{1})}},
		{"reserved name", []Tensor{F32(metadataKey, []int64{1}, []float32{1})}},
		{"duplicate", []Tensor{F32("x", []int64{1}, []float32{1}), I64("x", []int64{1}, []int64{2})}},
		{"shape mismatch", []Tensor{F32("x", []int64{1, 2}, []float32{1})}},
		{"both dtypes", []Tensor{{Name: "x", Shape: []int64{1}, Float: []float32{1}, Int: []int64{1}}}},
		{"negative dim", []Tensor{F32("x", []int64{-1}, nil)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Encode(tt.tensors, nil); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestOpenStoreFromBytes_Errors(t *testing.T) {
	valid, err := Encode([]Tensor{F32("x", []int64{2}, []float32{1, 2})}, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"too short", []byte{1, 2, 3}},
		{"header past end", binary.LittleEndian.AppendUint64(nil, 1<<20)},
		{"truncated data", valid[:len(valid)-4]},
		{"bad json", append(binary.LittleEndian.AppendUint64(nil, 3), []byte("{x}")...)},
		{"only metadata", encodeRawHeader(t, `{"__metadata__":{"a":"b"}}`)},
		{"unsupported dtype", encodeRawHeader(t, `{"x":{"dtype":"F16","shape":[1],"data_offsets":[0,0]}}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := OpenStoreFromBytes(tt.data); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func encodeRawHeader(t *testing.T, header string) []byte {
	t.Helper()

	out := binary.LittleEndian.AppendUint64(nil, uint64(len(header)))
	return append(out, header...)
}

func TestShapeElementCount(t *testing.T) {
	tests := []struct {
		shape   []int64
		want    int64
		wantErr bool
	}{
		{nil, 1, false},
		{[]int64{2, 3}, 6, false},
		{[]int64{4, 0, 2}, 0, false},
		{[]int64{-2}, 0, true},
		{[]int64{1 << 62, 4}, 0, true},
	}

	for _, tt := range tests {
		got, err := shapeElementCount(tt.shape)
		if (err != nil) != tt.wantErr {
			t.Fatalf("shapeElementCount(%v) err = %v", tt.shape, err)
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("shapeElementCount(%v) = %d, want %d", tt.shape, got, tt.want)
		}
	}
}
