package harness

import "strings"

const xhtmlNS = ` xmlns="http://www.w3.org/1999/xhtml"`

// Normalize compensates for two known XMLSerializer artifacts before a
// round-trip result is compared: doubled newlines introduced around some
// text nodes, and the xmlns attribute the serializer stamps on the root
// element. The namespace is stripped only when the source markup is not
// itself XML-namespaced, so a genuinely namespaced fixture keeps it.
// Nothing else is touched; this is not a sanitizer.
func Normalize(serialized, source string) string {
	out := strings.ReplaceAll(serialized, "\n\n", "")
	if !strings.Contains(source, "xmlns") {
		out = strings.ReplaceAll(out, xhtmlNS, "")
	}
	return out
}
