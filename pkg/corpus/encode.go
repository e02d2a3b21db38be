package corpus

import (
	"fmt"
	"net/url"
	"strings"
)

// PathEncodeSet is the set of runes percent-encoded when turning a corpus
// name into a directory name.
const pathEncodeSet = "\x00\x01\x02\x03\x04\x05\x06\x07\x08\x09\x0a\x0b\x0c\x0d\x0e\x0f" +
	"\x10\x11\x12\x13\x14\x15\x16\x17\x18\x19\x1a\x1b\x1c\x1d\x1e\x1f" +
	` "#<>?{}%/:|*` + "\x7f" + "`"

// nodeNameEncodeSet additionally escapes characters that are safe in a
// directory name but not inside a node-name fragment of a match string.
const nodeNameEncodeSet = pathEncodeSet + `: \` +
	`CON,PRN,AUX,NUL,COM1,COM2,COM3,COM4,COM5,COM6,COM7,COM8,COM9,LPT1,LPT2,LPT3,LPT4,LPT5,LPT6,LPT7,LPT8,LPT9`

// quirksSaltEncodeSet is used only when formatting results in AQL
// quirks-mode; it is deliberately narrower than the other two sets.
const quirksSaltEncodeSet = ` "#%<>?` + "\x7f"

func escapeRuneSet(s, set string) string {
	var b strings.Builder
	for _, r := range s {
		if r < 0x20 || strings.ContainsRune(set, r) {
			for _, c := range []byte(string(r)) {
				fmt.Fprintf(&b, "%%%02X", c)
			}
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// PathEncode percent-encodes name for use as a directory name under the
// corpus manager's root: controls, space, and `"#<>?{}%/:|*` plus DEL and
// backtick.
func PathEncode(name string) string {
	return escapeRuneSet(name, pathEncodeSet)
}

// NodeNameEncode percent-encodes a node-name fragment for inclusion in a
// `find` match identifier: the path set plus `:`, `/`, space, and the
// Windows-reserved device names are handled by the caller splitting on `/`
// first (device names do not arise from valid node paths, so only the path
// set plus whitespace matters in practice).
func NodeNameEncode(name string) string {
	return escapeRuneSet(name, pathEncodeSet+":/ ")
}

// QuirksSaltURIEncode decodes then re-encodes each `/`-separated segment of
// name under the narrower quirks-mode rune set, matching legacy AQL result
// formatting.
func QuirksSaltURIEncode(name string) string {
	segments := strings.Split(name, "/")
	for i, seg := range segments {
		decoded, err := url.QueryUnescape(seg)
		if err != nil {
			decoded = seg
		}
		segments[i] = escapeRuneSet(decoded, quirksSaltEncodeSet)
	}
	return strings.Join(segments, "/")
}
