package shaders

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gogpu/naga"
)

const (
	spirvMagic         = 0x07230203
	spirvHeaderWords   = 5
	opEntryPoint       = 15
	execModelGLCompute = 5
)

// Program is the WGSL particle program compiled to SPIR-V, with the compute
// entry points the compiled module actually exports.
type Program struct {
	Source  string
	SPIRV   []uint32
	Entries []string
}

// Compile builds the particle program for the given workgroup size.
func Compile(threads int) (*Program, error) {
	return CompileSource(WGSL(threads))
}

// CompileSource compiles WGSL source and reflects its compute entry points.
func CompileSource(src string) (*Program, error) {
	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("shaders: failed to compile program: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("shaders: spir-v length %d is not word aligned", len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}

	entries, err := computeEntryPoints(words)
	if err != nil {
		return nil, err
	}
	return &Program{Source: src, SPIRV: words, Entries: entries}, nil
}

// Has reports whether name is an exported compute entry point.
func (p *Program) Has(name string) bool {
	i := sort.SearchStrings(p.Entries, name)
	return i < len(p.Entries) && p.Entries[i] == name
}

func computeEntryPoints(words []uint32) ([]string, error) {
	if len(words) < spirvHeaderWords || words[0] != spirvMagic {
		return nil, errors.New("shaders: not a spir-v module")
	}

	var names []string
	for i := spirvHeaderWords; i < len(words); {
		count := int(words[i] >> 16)
		opcode := words[i] & 0xffff
		if count == 0 || i+count > len(words) {
			return nil, fmt.Errorf("shaders: malformed instruction at word %d", i)
		}
		if opcode == opEntryPoint && count > 3 && words[i+1] == execModelGLCompute {
			names = append(names, literalString(words[i+3:i+count]))
		}
		i += count
	}
	sort.Strings(names)
	return names, nil
}

// literalString decodes a nul-terminated SPIR-V literal packed into words.
func literalString(words []uint32) string {
	buf := make([]byte, 0, len(words)*4)
	for _, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			c := byte(w >> shift)
			if c == 0 {
				return string(buf)
			}
			buf = append(buf, c)
		}
	}
	return string(buf)
}
