// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package xcnv

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-daq/tdaq"
	"github.com/go-lpc/legendre/finder"
	"github.com/go-lpc/legendre/internal/crc16"
	"github.com/go-lpc/legendre/track"
	"gonum.org/v1/gonum/spatial/r2"
)

// sizes (in bytes) of the encoded frame header and records.
const (
	headerSize = 8 + 4                   // event number, number of records
	hitSize    = 8 + 4*8 + 1 + 3*4       // index, position, drift, sigma, axial, layer, wire, nwires
	trackSize  = 4 + 4 + 4*8 + 1 + 8 + 4 // nhits, axial, theta, r, ref, charge, chi2, ndf
)

// EncodeHits writes the hits of an event to w.
func EncodeHits(w io.Writer, evt int64, hits []track.Hit) error {
	buf := new(bytes.Buffer)
	enc := tdaq.NewEncoder(buf)
	enc.WriteI64(evt)
	enc.WriteU32(uint32(len(hits)))
	for _, h := range hits {
		enc.WriteI64(int64(h.Index))
		enc.WriteF64(h.Pos.X)
		enc.WriteF64(h.Pos.Y)
		enc.WriteF64(h.Drift)
		enc.WriteF64(h.Sigma)
		enc.WriteBool(h.Axial)
		enc.WriteI32(int32(h.Layer))
		enc.WriteI32(int32(h.Wire))
		enc.WriteI32(int32(h.NWires))
	}
	if err := enc.Err(); err != nil {
		return fmt.Errorf("xcnv: could not encode hits: %w", err)
	}
	return writeFrame(w, buf.Bytes())
}

// DecodeHits reads the hits of an event from r.
func DecodeHits(r io.Reader) (int64, []track.Hit, error) {
	raw, err := readFrame(r)
	if err != nil {
		return 0, nil, fmt.Errorf("xcnv: could not read hits frame: %w", err)
	}

	var (
		dec = tdaq.NewDecoder(bytes.NewReader(raw))
		evt = dec.ReadI64()
		n   = int(dec.ReadU32())
	)
	if err := dec.Err(); err != nil {
		return evt, nil, fmt.Errorf("xcnv: could not decode hits header: %w", err)
	}
	if lim := (len(raw) - headerSize) / hitSize; n > lim {
		return evt, nil, fmt.Errorf("xcnv: invalid number of hits (n=%d, max=%d)", n, lim)
	}

	hits := make([]track.Hit, n)
	for i := range hits {
		hits[i] = track.Hit{
			Index:  int(dec.ReadI64()),
			Pos:    r2.Vec{X: dec.ReadF64(), Y: dec.ReadF64()},
			Drift:  dec.ReadF64(),
			Sigma:  dec.ReadF64(),
			Axial:  dec.ReadBool(),
			Layer:  int(dec.ReadI32()),
			Wire:   int(dec.ReadI32()),
			NWires: int(dec.ReadI32()),
		}
	}
	if err := dec.Err(); err != nil {
		return evt, nil, fmt.Errorf("xcnv: could not decode hits: %w", err)
	}
	return evt, hits, nil
}

// EncodeTracks writes the track candidates of an event to w.
func EncodeTracks(w io.Writer, evt int64, trks []finder.Track) error {
	buf := new(bytes.Buffer)
	enc := tdaq.NewEncoder(buf)
	enc.WriteI64(evt)
	enc.WriteU32(uint32(len(trks)))
	for _, trk := range trks {
		enc.WriteU32(uint32(len(trk.Hits)))
		for _, idx := range trk.Hits {
			enc.WriteI64(int64(idx))
		}
		enc.WriteI32(int32(trk.Axial))
		enc.WriteF64(trk.Theta)
		enc.WriteF64(trk.R)
		enc.WriteF64(trk.Ref.X)
		enc.WriteF64(trk.Ref.Y)
		enc.WriteI8(int8(trk.Charge))
		enc.WriteF64(trk.Chi2)
		enc.WriteI32(int32(trk.NDF))
	}
	if err := enc.Err(); err != nil {
		return fmt.Errorf("xcnv: could not encode tracks: %w", err)
	}
	return writeFrame(w, buf.Bytes())
}

// DecodeTracks reads the track candidates of an event from r.
func DecodeTracks(r io.Reader) (int64, []finder.Track, error) {
	raw, err := readFrame(r)
	if err != nil {
		return 0, nil, fmt.Errorf("xcnv: could not read tracks frame: %w", err)
	}

	var (
		dec = tdaq.NewDecoder(bytes.NewReader(raw))
		evt = dec.ReadI64()
		n   = int(dec.ReadU32())
	)
	if err := dec.Err(); err != nil {
		return evt, nil, fmt.Errorf("xcnv: could not decode tracks header: %w", err)
	}
	if lim := (len(raw) - headerSize) / trackSize; n > lim {
		return evt, nil, fmt.Errorf("xcnv: invalid number of tracks (n=%d, max=%d)", n, lim)
	}

	trks := make([]finder.Track, n)
	for i := range trks {
		trk := &trks[i]
		nhits := int(dec.ReadU32())
		if nhits > len(raw)/8 {
			return evt, nil, fmt.Errorf("xcnv: invalid number of hits for track %d (n=%d)", i, nhits)
		}
		trk.Hits = make([]int, nhits)
		for j := range trk.Hits {
			trk.Hits[j] = int(dec.ReadI64())
		}
		trk.Axial = int(dec.ReadI32())
		trk.Theta = dec.ReadF64()
		trk.R = dec.ReadF64()
		trk.Ref = r2.Vec{X: dec.ReadF64(), Y: dec.ReadF64()}
		trk.Charge = track.Charge(dec.ReadI8())
		trk.Chi2 = dec.ReadF64()
		trk.NDF = int(dec.ReadI32())
		if err := dec.Err(); err != nil {
			return evt, nil, fmt.Errorf("xcnv: could not decode track %d: %w", i, err)
		}
		if !trk.Charge.Valid() {
			return evt, nil, fmt.Errorf("xcnv: track %d has an invalid charge %d", i, trk.Charge)
		}
	}
	return evt, trks, nil
}

// writeFrame writes the payload followed by its CRC-16 checksum.
func writeFrame(w io.Writer, payload []byte) error {
	var crc [crc16.Size]byte
	binary.BigEndian.PutUint16(crc[:], crc16.Checksum(payload))

	_, err := w.Write(payload)
	if err != nil {
		return fmt.Errorf("xcnv: could not write frame: %w", err)
	}
	_, err = w.Write(crc[:])
	if err != nil {
		return fmt.Errorf("xcnv: could not write frame checksum: %w", err)
	}
	return nil
}

// readFrame reads a whole frame and returns its payload, once its
// CRC-16 checksum has been verified.
func readFrame(r io.Reader) ([]byte, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(raw) < crc16.Size {
		return nil, fmt.Errorf("short frame (len=%d)", len(raw))
	}
	var (
		n       = len(raw) - crc16.Size
		payload = raw[:n]
		want    = binary.BigEndian.Uint16(raw[n:])
	)
	if got := crc16.Checksum(payload); got != want {
		return nil, fmt.Errorf("invalid frame checksum (got=0x%04x, want=0x%04x)", got, want)
	}
	return payload, nil
}
