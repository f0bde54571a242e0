/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

package romutil

import (
	"encoding/binary"
	"io"
)

// Serializer is implemented by objects that can write themselves to a
// binary stream. Nothing in this repository implements it; `branescript
// build` writes no file.
type Serializer interface {
	Serialize(w io.Writer) error
}

// Deserializer is implemented by objects that can read themselves back from
// a binary stream written by a Serializer.
type Deserializer interface {
	Deserialize(r io.Reader) error
}

// SerializeU32 writes v to w as a little-endian uint32.
func SerializeU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

// DeserializeU32 reads a little-endian uint32 from r.
func DeserializeU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// SerializeString writes a length-prefixed UTF-8 string to w.
func SerializeString(w io.Writer, s string) error {
	if err := SerializeU32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// DeserializeString reads a length-prefixed UTF-8 string from r.
func DeserializeString(r io.Reader) (string, error) {
	length, err := DeserializeU32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
