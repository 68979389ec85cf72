package shaders

import (
	_ "embed"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

//go:embed particles.wgsl
var particlesWGSL string

//go:embed particles.glsl
var particlesGLSL string

const workgroupToken = "{{WORKGROUP_SIZE}}"

var (
	wgslEntryRe = regexp.MustCompile(`@compute\s+@workgroup_size\([^)]*\)\s*fn\s+(\w+)`)
	glslEntryRe = regexp.MustCompile(`#ifdef\s+ENTRY_(\w+)`)
)

// WGSL returns the particle program with its workgroup size set to threads.
func WGSL(threads int) string {
	return strings.ReplaceAll(particlesWGSL, workgroupToken, strconv.Itoa(threads))
}

// GLSL returns the program for one entry, ready for glShaderSource.
func GLSL(entry string, threads int) string {
	var b strings.Builder
	b.WriteString("#version 430\n#define ENTRY_")
	b.WriteString(entry)
	b.WriteString("\n")
	b.WriteString(strings.ReplaceAll(particlesGLSL, workgroupToken, strconv.Itoa(threads)))
	return b.String()
}

// GLSLEntries lists the entry bodies the GLSL program can be specialized to.
func GLSLEntries() []string {
	return matches(glslEntryRe, particlesGLSL)
}

// WGSLEntries lists the compute entry points declared in the WGSL program text.
// It needs no compiler, so it also answers when Compile fails.
func WGSLEntries(threads int) []string {
	return matches(wgslEntryRe, WGSL(threads))
}

func matches(re *regexp.Regexp, src string) []string {
	var names []string
	for _, m := range re.FindAllStringSubmatch(src, -1) {
		names = append(names, m[1])
	}
	sort.Strings(names)
	return names
}
