package program

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// Parse decodes program XML arriving in any of the three shapes the SDK
// clients use: a bare <screen> document, one prefixed with an XML
// declaration, or a full <sdk>...<in method="..."><screen>...</screen>
// wrapper used by the live TCP protocol.
func Parse(raw string) (*Screen, error) {
	trimmed := strings.TrimSpace(raw)

	switch {
	case strings.HasPrefix(trimmed, "<sdk"):
		return parseSDKWrapped(trimmed)
	case strings.HasPrefix(trimmed, "<screen"):
		var screen Screen
		if err := xml.Unmarshal([]byte(trimmed), &screen); err != nil {
			return nil, fmt.Errorf("program: parse <screen> xml: %w", err)
		}
		return &screen, nil
	case strings.HasPrefix(trimmed, "<?xml"):
		pos := strings.Index(trimmed, "?>")
		if pos < 0 {
			return nil, fmt.Errorf("program: malformed xml declaration")
		}
		return Parse(strings.TrimSpace(trimmed[pos+2:]))
	default:
		preview := trimmed
		if len(preview) > 50 {
			preview = preview[:50]
		}
		return nil, fmt.Errorf("program: unknown xml format, expected <screen> or <sdk>, got: %s...", preview)
	}
}

// parseSDKWrapped extracts the <screen>...</screen> substring from an
// SDK envelope like <sdk guid="..."><in method="AddProgram"><screen>...
// </screen></in></sdk> and parses it directly, tolerating any wrapper
// contents around it.
func parseSDKWrapped(raw string) (*Screen, error) {
	start := strings.Index(raw, "<screen")
	if start < 0 {
		return nil, fmt.Errorf("program: no <screen> element found inside sdk xml")
	}
	const closeTag = "</screen>"
	end := strings.LastIndex(raw, closeTag)
	if end < 0 {
		return nil, fmt.Errorf("program: no closing </screen> tag found")
	}
	screenXML := raw[start : end+len(closeTag)]
	var screen Screen
	if err := xml.Unmarshal([]byte(screenXML), &screen); err != nil {
		return nil, fmt.Errorf("program: parse <screen> from sdk xml: %w", err)
	}
	return &screen, nil
}

// ExtractMethod pulls the method="..." attribute out of an <in method="...">
// element inside an SDK envelope, the way the dispatcher decides which
// command handler to invoke without fully parsing the envelope as XML
// (the envelope's inner payload isn't always well-formed once it contains
// a <screen> subtree with its own namespaces).
func ExtractMethod(raw string) (string, bool) {
	const marker = `method="`
	idx := strings.Index(raw, marker)
	if idx < 0 {
		return "", false
	}
	rest := raw[idx+len(marker):]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}
