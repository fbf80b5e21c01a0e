// LZ output writers

// Copyright (C) 2025 Elliot Nunn

// This library is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 2.1 of the License, or (at your option) any later version.

// This library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.

package bitstream

// ForwardWriter fills buf from the front.
type ForwardWriter struct {
	buf []byte
	pos int
}

func NewForwardWriter(buf []byte) *ForwardWriter {
	return &ForwardWriter{buf: buf}
}

func (w *ForwardWriter) WriteByte(b byte) error {
	if w.pos >= len(w.buf) {
		return ErrOverrun
	}
	w.buf[w.pos] = b
	w.pos++
	return nil
}

// Copy repeats count bytes starting distance bytes behind the write position.
// Source and destination may overlap. The last byte written is returned.
func (w *ForwardWriter) Copy(distance, count int) (byte, error) {
	if distance <= 0 || distance > w.pos {
		return 0, ErrDistance
	}
	if count > len(w.buf)-w.pos {
		return 0, ErrOverrun
	}
	var b byte
	for range count {
		b = w.buf[w.pos-distance]
		w.buf[w.pos] = b
		w.pos++
	}
	return b, nil
}

// CopyWithHistory is Copy for a stream whose earlier output lives in history,
// oldest buffer first. The distance may reach back through any of it.
func (w *ForwardWriter) CopyWithHistory(distance, count int, history [][]byte) (byte, error) {
	if distance <= w.pos {
		return w.Copy(distance, count)
	}
	reach := w.pos
	for _, h := range history {
		reach += len(h)
	}
	if distance <= 0 || distance > reach {
		return 0, ErrDistance
	}
	if count > len(w.buf)-w.pos {
		return 0, ErrOverrun
	}
	var b byte
	for range count {
		back := distance - w.pos // how far before the current buffer
		if back <= 0 {
			b = w.buf[w.pos-distance]
		} else {
			for i := len(history) - 1; i >= 0; i-- {
				if back <= len(history[i]) {
					b = history[i][len(history[i])-back]
					break
				}
				back -= len(history[i])
			}
		}
		w.buf[w.pos] = b
		w.pos++
	}
	return b, nil
}

func (w *ForwardWriter) EOF() bool   { return w.pos >= len(w.buf) }
func (w *ForwardWriter) Offset() int { return w.pos }

// BackwardWriter fills buf from the back, so the first byte written is the last in buf.
// A copy reads from distance bytes above the write position.
type BackwardWriter struct {
	buf []byte
	pos int
}

func NewBackwardWriter(buf []byte) *BackwardWriter {
	return &BackwardWriter{buf: buf, pos: len(buf)}
}

func (w *BackwardWriter) WriteByte(b byte) error {
	if w.pos <= 0 {
		return ErrOverrun
	}
	w.pos--
	w.buf[w.pos] = b
	return nil
}

func (w *BackwardWriter) Copy(distance, count int) (byte, error) {
	if distance <= 0 || w.pos+distance > len(w.buf) {
		return 0, ErrDistance
	}
	if count > w.pos {
		return 0, ErrOverrun
	}
	var b byte
	for range count {
		w.pos--
		b = w.buf[w.pos+distance]
		w.buf[w.pos] = b
	}
	return b, nil
}

func (w *BackwardWriter) EOF() bool   { return w.pos <= 0 }
func (w *BackwardWriter) Offset() int { return len(w.buf) - w.pos }
