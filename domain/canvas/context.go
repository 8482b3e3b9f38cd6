package canvas

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ResolveContext derives the ordered context strings a chat node should
// send alongside a user message. It reads the store's current state, so
// concurrent edits are reflected, and follows edge insertion order.
// Duplicates are kept; sizing is left to the chat service boundary.
func (s *Store) ResolveContext(chatNodeID string) []string {
	snap := s.Snapshot()

	byID := make(map[string]Node, len(snap.Nodes))
	for _, n := range snap.Nodes {
		byID[n.ID] = n
	}

	var out []string
	for _, e := range snap.Edges {
		if e.Target != chatNodeID {
			continue
		}
		source, ok := byID[e.Source]
		if !ok {
			continue
		}
		if text, ok := describeSource(source); ok {
			out = append(out, text)
		}
	}
	return out
}

// describeSource renders one context line for a source node. The switch
// is exhaustive over payload types; a chat source should never appear
// here because Connect rejects chat -> chat edges.
func describeSource(n Node) (string, bool) {
	switch d := n.Data.(type) {
	case TextBlockData:
		text := strings.TrimSpace(d.Text)
		notes := strings.TrimSpace(d.Notes)
		if text == "" && notes == "" {
			return "", false
		}
		if notes == "" {
			return text, true
		}
		if text == "" {
			return "Notes: " + notes, true
		}
		return text + "\nNotes: " + notes, true
	case ContextData:
		return describeContext(d), true
	case ExternalDocData:
		title := fallback(d.Title, "Untitled document")
		url := fallback(d.URL, "no URL")
		if d.Provider != "" {
			return fmt.Sprintf("External document (%s): %s (%s)", d.Provider, title, url), true
		}
		return fmt.Sprintf("External document: %s (%s)", title, url), true
	case ChatData:
		return "", false
	default:
		return "", false
	}
}

func describeContext(d ContextData) string {
	title := fallback(d.Title, "Untitled")
	url := fallback(d.URL, "no URL")
	desc := fallback(d.Description, "no description")

	switch d.ContentType {
	case ContentText:
		body := strings.TrimSpace(d.Text)
		if body == "" {
			body = desc
		}
		return fmt.Sprintf("Text: %s: %s", title, body)
	case ContentVideo:
		return fmt.Sprintf("Video: %s (%s): %s", title, url, desc)
	case ContentImage:
		return fmt.Sprintf("Image: %s (%s): %s", title, url, desc)
	case ContentWebsite:
		return fmt.Sprintf("Website: %s (%s): %s", title, url, desc)
	case ContentDocument:
		return fmt.Sprintf("Document: %s (%s): %s", title, url, desc)
	default:
		// Unknown subtype: generic label plus a serialized dump so the
		// model still sees whatever the node carries.
		raw, err := json.Marshal(d)
		if err != nil {
			return fmt.Sprintf("Context item (%s)", d.ContentType)
		}
		return fmt.Sprintf("Context item (%s): %s", d.ContentType, raw)
	}
}

func fallback(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
