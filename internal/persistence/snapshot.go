package persistence

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/umuterturk/investment-game/internal/engine"
)

// SnapshotHeader is the first line of a snapshot file. It can be read
// without decoding the body.
type SnapshotHeader struct {
	Version int    `json:"version"`
	Dataset string `json:"dataset"`
	Date    string `json:"date"`
	Age     int    `json:"age"`
	Ticks   uint64 `json:"ticks"`
}

// WriteSnapshot writes st to path as zstd-compressed JSON: a header line
// followed by the full state.
func WriteSnapshot(path string, st engine.State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := EncodeSnapshot(f, st); err != nil {
		return err
	}
	return f.Close()
}

// EncodeSnapshot writes the compressed snapshot stream to w.
func EncodeSnapshot(w io.Writer, st engine.State) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, _ := json.Marshal(SnapshotHeader{
		Version: st.Version,
		Dataset: st.Dataset,
		Date:    st.Clock.Date.String(),
		Age:     st.Clock.Age,
		Ticks:   st.Ticks,
	})
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		enc.Close()
		return err
	}
	if err := json.NewEncoder(bw).Encode(&st); err != nil {
		enc.Close()
		return fmt.Errorf("json encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// ReadSnapshot loads a snapshot written by WriteSnapshot.
func ReadSnapshot(path string) (SnapshotHeader, engine.State, error) {
	f, err := os.Open(path)
	if err != nil {
		return SnapshotHeader{}, engine.State{}, err
	}
	defer f.Close()
	return DecodeSnapshot(f)
}

// DecodeSnapshot reads a compressed snapshot stream from r.
func DecodeSnapshot(r io.Reader) (SnapshotHeader, engine.State, error) {
	var hdr SnapshotHeader
	var st engine.State

	dec, err := zstd.NewReader(r)
	if err != nil {
		return hdr, st, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return hdr, st, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &hdr); err != nil {
		return hdr, st, fmt.Errorf("decode header: %w", err)
	}
	if err := json.NewDecoder(br).Decode(&st); err != nil {
		return hdr, st, fmt.Errorf("json decode: %w", err)
	}
	return hdr, st, nil
}
