package chunk

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/tanema/lvm/src/conf"
	"github.com/tanema/lvm/src/lerrors"
)

// Load reads a chunk, detecting from its signature if it is a luac binary chunk
// or a snapshot.
func Load(src io.Reader) (*Prototype, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, lerrors.Wrap(lerrors.LoadErr, errors.Wrap(err, "load"))
	}
	switch {
	case bytes.HasPrefix(data, []byte(conf.LUASIGNATURE)):
		return Undump(bytes.NewReader(data))
	case bytes.HasPrefix(data, []byte(conf.LVMSIGNATURE)):
		return UnmarshalSnapshot(data)
	default:
		return nil, lerrors.New(lerrors.LoadErr, "not a precompiled chunk, source text is not supported")
	}
}

// LoadFile opens and loads a chunk file.
func LoadFile(path string) (*Prototype, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, lerrors.Wrap(lerrors.LoadErr, err)
	}
	defer file.Close()
	return Load(file)
}
