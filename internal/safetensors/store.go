package safetensors

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
)

// Store is a decoded safetensors file held in memory.
type Store struct {
	raw      []byte
	entries  map[string]storeEntry
	names    []string
	metadata map[string]string
}

type storeEntry struct {
	DType string
	Shape []int64
	Start int
	End   int
}

type storeHeaderEntry struct {
	DType   string  `json:"dtype"`
	Shape   []int64 `json:"shape"`
	Offsets [2]int  `json:"data_offsets"`
}

func OpenStore(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("safetensors: read %s: %w", path, err)
	}

	return OpenStoreFromBytes(data)
}

func OpenStoreFromBytes(data []byte) (*Store, error) {
	headerEnd, header, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}

	s := &Store{
		raw:     data,
		entries: make(map[string]storeEntry, len(header)),
	}

	for name, rawEntry := range header {
		if name == metadataKey {
			if err := json.Unmarshal(rawEntry, &s.metadata); err != nil {
				return nil, fmt.Errorf("safetensors: decode metadata: %w", err)
			}
			continue
		}

		var entry storeHeaderEntry
		if err := json.Unmarshal(rawEntry, &entry); err != nil {
			return nil, fmt.Errorf("safetensors: decode header entry %q: %w", name, err)
		}

		se, err := validateHeaderEntry(name, entry, headerEnd, len(data))
		if err != nil {
			return nil, err
		}

		s.entries[name] = se
		s.names = append(s.names, name)
	}

	if len(s.entries) == 0 {
		return nil, errors.New("safetensors: no tensors found")
	}

	sort.Strings(s.names)

	return s, nil
}

func (s *Store) Names() []string {
	return append([]string(nil), s.names...)
}

func (s *Store) Has(name string) bool {
	_, ok := s.entries[name]
	return ok
}

// Metadata returns the __metadata__ map, or nil when the file has none.
func (s *Store) Metadata() map[string]string {
	return s.metadata
}

func (s *Store) Tensor(name string) (Tensor, error) {
	entry, ok := s.entries[name]
	if !ok {
		return Tensor{}, fmt.Errorf("safetensors: tensor %q not found (available: %s)", name, strings.Join(s.names, ", "))
	}

	raw := s.raw[entry.Start:entry.End]
	t := Tensor{Name: name, Shape: append([]int64{}, entry.Shape...)}

	switch entry.DType {
	case DTypeF32:
		t.Float = make([]float32, len(raw)/4)
		for i := range t.Float {
			t.Float[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		}
	case DTypeI64:
		t.Int = make([]int64, len(raw)/8)
		for i := range t.Int {
			t.Int[i] = int64(binary.LittleEndian.Uint64(raw[i*8:]))
		}
	}

	return t, nil
}

func decodeHeader(data []byte) (int, map[string]json.RawMessage, error) {
	if len(data) < 8 {
		return 0, nil, fmt.Errorf("safetensors: file too short (%d bytes)", len(data))
	}

	headerLen := binary.LittleEndian.Uint64(data[:8])
	if headerLen > uint64(len(data)-8) {
		return 0, nil, fmt.Errorf("safetensors: header length %d exceeds file size %d", headerLen, len(data))
	}

	headerEnd := 8 + int(headerLen)

	var header map[string]json.RawMessage
	if err := json.Unmarshal(data[8:headerEnd], &header); err != nil {
		return 0, nil, fmt.Errorf("safetensors: parse header: %w", err)
	}

	return headerEnd, header, nil
}

// validateHeaderEntry checks dtype, offsets and that the byte span matches
// the shape exactly.
func validateHeaderEntry(name string, entry storeHeaderEntry, headerEnd, size int) (storeEntry, error) {
	dtype := strings.ToUpper(entry.DType)

	elemBytes, err := dtypeBytes(dtype)
	if err != nil {
		return storeEntry{}, fmt.Errorf("safetensors: tensor %q: %w", name, err)
	}

	elemCount, err := shapeElementCount(entry.Shape)
	if err != nil {
		return storeEntry{}, fmt.Errorf("safetensors: tensor %q: %w", name, err)
	}

	start := headerEnd + entry.Offsets[0]
	end := headerEnd + entry.Offsets[1]
	if entry.Offsets[0] < 0 || end < start || end > size {
		return storeEntry{}, fmt.Errorf(
			"safetensors: tensor %q data [%d:%d] exceeds file size %d",
			name,
			start,
			end,
			size,
		)
	}

	if want := int(elemCount) * elemBytes; end-start != want {
		return storeEntry{}, fmt.Errorf("safetensors: tensor %q needs %d bytes but data has %d", name, want, end-start)
	}

	return storeEntry{
		DType: dtype,
		Shape: append([]int64{}, entry.Shape...),
		Start: start,
		End:   end,
	}, nil
}
