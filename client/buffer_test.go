package client

import (
	"bytes"
	"testing"
)

func TestBuffer_Growth(t *testing.T) {
	tests := map[string]struct {
		chunks  []int
		wantLen int
		wantCap int
	}{
		"single":        {chunks: []int{10}, wantLen: 10, wantCap: 10},
		"exact fit":     {chunks: []int{4, 4}, wantLen: 8, wantCap: 8},
		"doubling":      {chunks: []int{1, 3, 4096, 1}, wantLen: 4101, wantCap: 8192},
		"empty writes":  {chunks: []int{0, 0}, wantLen: 0, wantCap: 0},
		"large then 1s": {chunks: []int{100, 1, 1}, wantLen: 102, wantCap: 200},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var b Buffer
			var want []byte
			for i, n := range tc.chunks {
				chunk := bytes.Repeat([]byte{byte('a' + i)}, n)
				want = append(want, chunk...)

				written, err := DefaultWriter(chunk, &b)
				if err != nil || written != n {
					t.Fatalf("write %d: n=%d err=%v", i, written, err)
				}
			}

			if b.Len() != tc.wantLen || b.Cap() != tc.wantCap {
				t.Errorf("len/cap = %d/%d, want %d/%d", b.Len(), b.Cap(), tc.wantLen, tc.wantCap)
			}
			if !bytes.Equal(b.Bytes(), want) {
				t.Error("contents mismatch")
			}
		})
	}
}

func TestBuffer_NoCopy(t *testing.T) {
	data := []byte("abc")
	b := NewBuffer(data)

	data[0] = 'x'
	if string(b.Bytes()) != "xbc" {
		t.Errorf("expected buffer to alias its input, got %q", b.Bytes())
	}
}

func TestBuffer_RewindReset(t *testing.T) {
	b := NewBuffer([]byte("abc"))

	p := make([]byte, 3)
	if n, _ := b.Read(p); n != 3 {
		t.Fatalf("read %d", n)
	}
	if b.Remaining() != 0 {
		t.Fatalf("remaining %d", b.Remaining())
	}

	b.Rewind()
	if b.Remaining() != 3 {
		t.Errorf("remaining after rewind = %d", b.Remaining())
	}

	b.Reset()
	if b.Len() != 0 || b.Cap() != 0 || b.Remaining() != 0 {
		t.Errorf("expected empty buffer after reset")
	}
}
