package cstruct

import (
	"bytes"
	"testing"
)

func TestBitBufferLittleEndianFillsLowBitUpward(t *testing.T) {
	ctx := NewContext()
	u8, _ := ctx.Resolve("uint8")

	var buf bytes.Buffer
	w := newWriter(&buf)
	bb := newBitBuffer(LittleEndian)

	if err := bb.write(w, u8, 3, 0b101); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := bb.write(w, u8, 5, 0b10110); err != nil {
		t.Fatalf("write: %v", err)
	}

	want := byte(0b101) | byte(0b10110<<3)
	if got := buf.Bytes()[0]; got != want {
		t.Fatalf("got %08b, want %08b", got, want)
	}

	r := newReader(bytes.NewReader(buf.Bytes()))
	rb := newBitBuffer(LittleEndian)
	v1, err := rb.read(r, u8, 3)
	if err != nil || v1 != 0b101 {
		t.Fatalf("read low field: got %v, err %v", v1, err)
	}
	v2, err := rb.read(r, u8, 5)
	if err != nil || v2 != 0b10110 {
		t.Fatalf("read high field: got %v, err %v", v2, err)
	}
}

func TestBitBufferBigEndianFillsHighBitDownward(t *testing.T) {
	ctx := NewContext()
	u8, _ := ctx.Resolve("uint8")

	var buf bytes.Buffer
	w := newWriter(&buf)
	bb := newBitBuffer(BigEndian)

	if err := bb.write(w, u8, 3, 0b101); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := bb.write(w, u8, 5, 0b10110); err != nil {
		t.Fatalf("write: %v", err)
	}

	want := byte(0b101<<5) | byte(0b10110)
	if got := buf.Bytes()[0]; got != want {
		t.Fatalf("got %08b, want %08b", got, want)
	}
}

func TestBitBufferRejectsWiderThanStorage(t *testing.T) {
	ctx := NewContext()
	u8, _ := ctx.Resolve("uint8")

	var buf bytes.Buffer
	w := newWriter(&buf)
	bb := newBitBuffer(LittleEndian)

	if err := bb.write(w, u8, 9, 1); err == nil {
		t.Fatal("expected a straddle error for a 9-bit field on an 8-bit storage unit")
	}
}

func TestBitBufferSwitchingStorageTypeFlushes(t *testing.T) {
	ctx := NewContext()
	u8, _ := ctx.Resolve("uint8")
	u16, _ := ctx.Resolve("uint16")

	var buf bytes.Buffer
	w := newWriter(&buf)
	bb := newBitBuffer(LittleEndian)

	if err := bb.write(w, u8, 4, 0xA); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := bb.write(w, u16, 4, 0xB); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := bb.flush(w); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if len(buf.Bytes()) != 3 {
		t.Fatalf("expected 1 byte for the uint8 run + 2 bytes for the uint16 run, got %d", len(buf.Bytes()))
	}
}
