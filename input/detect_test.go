package input

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectKind(t *testing.T) {
	cases := []struct {
		name string
		path string
		data []byte
		want Kind
	}{
		{"bitcode", "a.bc", []byte{0x42, 0x43, 0xC0, 0xDE, 0, 0, 0, 0}, KindBitcode},
		{"bitcode wrapper", "a.bc", []byte{0xDE, 0xC0, 0x17, 0x0B, 0, 0, 0, 0}, KindBitcode},
		{"elf", "a.o", []byte{0x7F, 'E', 'L', 'F', 2, 1, 1, 0}, KindElf},
		{"mach-o", "a.o", []byte{0xCF, 0xFA, 0xED, 0xFE, 0, 0, 0, 0}, KindMachO},
		{"archive", "a.a", []byte("!<arch>\x0Amember"), KindArchive},
		{"ir text", "a.ll", []byte("define i64 @foo() {\n"), KindIRText},
		{"ir text extension beats content", "a.ll", []byte{}, KindIRText},
		{"unknown", "a.rmeta", []byte("rust-metadata"), KindUnknown},
		{"short", "a.o", []byte{0x7F, 'E'}, KindUnknown},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, DetectKind(c.path, c.data))
		})
	}
}
